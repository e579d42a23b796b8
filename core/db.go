package core

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a new unique object identifier, as a 24 characters hex string.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is a well-formed object identifier.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

// IDsOf maps items to their ids, skipping duplicates.
func IDsOf[T any](items []T, id func(T) string) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		k := id(item)
		if _, ok := seen[k]; ok || k == "" {
			continue
		}
		seen[k] = struct{}{}
		ids = append(ids, k)
	}
	return ids
}
