package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/storage/database"
)

type (
	participantDoc struct {
		UserID primitive.ObjectID `bson:"user_id"`
		Role   string             `bson:"role"`
	}

	groupDoc struct {
		ID           primitive.ObjectID `bson:"_id"`
		Name         string             `bson:"name"`
		Slug         string             `bson:"slug"`
		Participants []participantDoc   `bson:"participants"`
		CreatedBy    primitive.ObjectID `bson:"created_by"`
		CreatedAt    time.Time          `bson:"created_at"`
		UpdatedAt    time.Time          `bson:"updated_at"`
	}
)

type groupRepository struct {
	coll *mongo.Collection
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *mongo.Database) *groupRepository {
	return &groupRepository{coll: db.Collection(database.GroupCollection)}
}

func (repo groupRepository) participantDocs(participants []group.Participant) []participantDoc {
	docs := make([]participantDoc, 0, len(participants))
	for _, p := range participants {
		oid, _ := objectID(p.UserID)
		docs = append(docs, participantDoc{UserID: oid, Role: p.Role})
	}
	return docs
}

func (repo groupRepository) toDoc(grp group.Group) groupDoc {
	oid, _ := objectID(grp.ID)
	creator, _ := objectID(grp.CreatedBy)
	return groupDoc{
		ID:           oid,
		Name:         grp.Name,
		Slug:         grp.Slug,
		Participants: repo.participantDocs(grp.Participants),
		CreatedBy:    creator,
		CreatedAt:    grp.CreatedAt.UTC(),
		UpdatedAt:    grp.UpdatedAt.UTC(),
	}
}

func (repo groupRepository) fromDoc(doc groupDoc) group.Group {
	participants := make([]group.Participant, 0, len(doc.Participants))
	for _, p := range doc.Participants {
		participants = append(participants, group.Participant{UserID: hexOrEmpty(p.UserID), Role: p.Role})
	}
	return group.Group{
		ID:           hexOrEmpty(doc.ID),
		Name:         doc.Name,
		Slug:         doc.Slug,
		Participants: participants,
		CreatedBy:    hexOrEmpty(doc.CreatedBy),
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
}

// trapNoDocErr maps mongo "no documents" err to group.ErrNotFound
func (repo groupRepository) trapNoDocErr(err error, msg string) error {
	if err == mongo.ErrNoDocuments {
		return group.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo groupRepository) CreateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	doc := repo.toDoc(grp)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		if duplicateKeyOn(err, "slug") {
			return group.Group{}, group.ErrSlugExists
		}
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return repo.fromDoc(doc), nil
}

func (repo groupRepository) GetGroup(ctx context.Context, filter group.GetFilter) (group.Group, error) {
	f := bson.M{}
	switch {
	case filter.ID != "":
		oid, ok := objectID(filter.ID)
		if !ok {
			return group.Group{}, group.ErrNotFound
		}
		f["_id"] = oid
	case filter.Slug != "":
		f["slug"] = filter.Slug
	default:
		return group.Group{}, group.ErrNotFound
	}

	var doc groupDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		return group.Group{}, repo.trapNoDocErr(err, "selecting group")
	}
	return repo.fromDoc(doc), nil
}

func (repo groupRepository) QueryGroups(ctx context.Context, filter group.QueryFilter) ([]group.Group, error) {
	f := bson.M{}
	if filter.IDs != nil {
		f["_id"] = bson.M{"$in": objectIDs(filter.IDs)}
	}
	if filter.ParticipantID != "" {
		oid, ok := objectID(filter.ParticipantID)
		if !ok {
			return []group.Group{}, nil
		}
		f["participants.user_id"] = oid
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}
	var docs []groupDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding groups")
	}

	grps := make([]group.Group, 0, len(docs))
	for _, doc := range docs {
		grps = append(grps, repo.fromDoc(doc))
	}
	return grps, nil
}

// UpdateGroup saves the name and participants of grp.
func (repo groupRepository) UpdateGroup(ctx context.Context, grp group.Group) (group.Group, error) {
	oid, ok := objectID(grp.ID)
	if !ok {
		return group.Group{}, group.ErrNotFound
	}

	update := bson.M{"$set": bson.M{
		"name":         grp.Name,
		"participants": repo.participantDocs(grp.Participants),
		"updated_at":   grp.UpdatedAt.UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc groupDoc
	if err := repo.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return group.Group{}, repo.trapNoDocErr(err, "updating group")
	}
	return repo.fromDoc(doc), nil
}

func (repo groupRepository) DeleteGroup(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return group.ErrNotFound
	}
	res, err := repo.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	if res.DeletedCount == 0 {
		return group.ErrNotFound
	}
	return nil
}
