package mongorepos

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	Role         string             `bson:"role"`
	PasswordHash []byte             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
	LastLogin    time.Time          `bson:"last_login,omitempty"`
}

type userRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *mongo.Database) *userRepository {
	return &userRepository{coll: db.Collection(database.UserCollection)}
}

func (repo userRepository) toDoc(usr user.User) userDoc {
	oid, _ := objectID(usr.ID)
	return userDoc{
		ID:           oid,
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin.UTC(),
	}
}

func (repo userRepository) fromDoc(doc userDoc) user.User {
	return user.User{
		ID:           hexOrEmpty(doc.ID),
		Username:     doc.Username,
		Email:        doc.Email,
		Role:         doc.Role,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
		LastLogin:    doc.LastLogin.UTC(),
	}
}

// trapDuplicateErr maps unique index violations to the user errors.
func (repo userRepository) trapDuplicateErr(err error, msg string) error {
	switch {
	case duplicateKeyOn(err, "username"):
		return user.ErrUsernameExists
	case duplicateKeyOn(err, "email"):
		return user.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	or := bson.A{}
	if username != "" {
		or = append(or, bson.M{"username": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if len(or) == 0 {
		return nil
	}

	filter := bson.M{"$or": or}
	if len(excludedIDs) > 0 {
		filter["_id"] = bson.M{"$nin": objectIDs(excludedIDs)}
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if username != "" && doc.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc := repo.toDoc(usr)
	doc.ID = primitive.NewObjectID()
	if _, err := repo.coll.InsertOne(ctx, doc); err != nil {
		return user.User{}, repo.trapDuplicateErr(err, "inserting user")
	}
	return repo.fromDoc(doc), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	f := bson.M{}
	switch {
	case filter.ID != "":
		oid, ok := objectID(filter.ID)
		if !ok {
			return user.User{}, user.ErrNotFound
		}
		f["_id"] = oid
	case filter.Username != "":
		f["username"] = filter.Username
	case filter.Email != "":
		f["email"] = filter.Email
	case filter.UsernameOrEmail != "":
		f["$or"] = bson.A{
			bson.M{"username": filter.UsernameOrEmail},
			bson.M{"email": filter.UsernameOrEmail},
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	if err := repo.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return repo.fromDoc(doc), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	f := bson.M{}
	if filter.IDs != nil {
		f["_id"] = bson.M{"$in": objectIDs(filter.IDs)}
	}
	if filter.Role != "" {
		f["role"] = filter.Role
	}
	// users with Username or Email matching the search keyword
	if filter.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		f["$or"] = bson.A{bson.M{"username": rx}, bson.M{"email": rx}}
	}

	cur, err := repo.coll.Find(ctx, f, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding users")
	}

	users := make([]user.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, repo.fromDoc(doc))
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	doc := repo.toDoc(usr)
	if doc.ID.IsZero() {
		return user.User{}, user.ErrNotFound
	}
	res, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return user.User{}, repo.trapDuplicateErr(err, "updating user")
	}
	if res.MatchedCount == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromDoc(doc), nil
}
