package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/storage/database"
)

type (
	messageDoc struct {
		SenderID primitive.ObjectID `bson:"sender_id"`
		Content  string             `bson:"content"`
		SentAt   time.Time          `bson:"sent_at"`
	}

	// chatDoc is unique per pair_key.
	chatDoc struct {
		ID           primitive.ObjectID   `bson:"_id"`
		PairKey      string               `bson:"pair_key"`
		Participants []primitive.ObjectID `bson:"participants"`
		Messages     []messageDoc         `bson:"messages"`
		LastUpdated  time.Time            `bson:"last_updated"`
		CreatedAt    time.Time            `bson:"created_at"`
	}
)

type chatRepository struct {
	coll *mongo.Collection
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *mongo.Database) *chatRepository {
	return &chatRepository{coll: db.Collection(database.ChatCollection)}
}

func (repo chatRepository) toDoc(c chat.Chat) chatDoc {
	oid, _ := objectID(c.ID)
	participants := make([]primitive.ObjectID, 0, len(c.ParticipantIDs))
	for _, id := range c.ParticipantIDs {
		pid, _ := objectID(id)
		participants = append(participants, pid)
	}
	msgs := make([]messageDoc, 0, len(c.Messages))
	for _, m := range c.Messages {
		sender, _ := objectID(m.SenderID)
		msgs = append(msgs, messageDoc{SenderID: sender, Content: m.Content, SentAt: m.SentAt.UTC()})
	}
	return chatDoc{
		ID:           oid,
		PairKey:      c.Key(),
		Participants: participants,
		Messages:     msgs,
		LastUpdated:  c.LastUpdated.UTC(),
		CreatedAt:    c.CreatedAt.UTC(),
	}
}

func (repo chatRepository) fromDoc(doc chatDoc) chat.Chat {
	ids := make([]string, 0, len(doc.Participants))
	for _, oid := range doc.Participants {
		ids = append(ids, hexOrEmpty(oid))
	}
	msgs := make([]chat.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		msgs = append(msgs, chat.Message{SenderID: hexOrEmpty(m.SenderID), Content: m.Content, SentAt: m.SentAt.UTC()})
	}
	return chat.Chat{
		ID:             hexOrEmpty(doc.ID),
		ParticipantIDs: ids,
		Messages:       msgs,
		LastUpdated:    doc.LastUpdated.UTC(),
		CreatedAt:      doc.CreatedAt.UTC(),
	}
}

// GetOrCreateChat upserts on pair_key, so only the first of concurrent calls inserts.
func (repo chatRepository) GetOrCreateChat(ctx context.Context, c chat.Chat) (chat.Chat, bool, error) {
	doc := repo.toDoc(c)
	doc.ID = primitive.NewObjectID()
	filter := bson.M{"pair_key": doc.PairKey}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var saved chatDoc
	err := repo.coll.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": doc}, opts).Decode(&saved)
	if duplicateKeyOn(err, "pair_key") { // lost the upsert race
		err = repo.coll.FindOne(ctx, filter).Decode(&saved)
	}
	if err != nil {
		return chat.Chat{}, false, errors.Wrap(err, "upserting chat")
	}
	return repo.fromDoc(saved), saved.ID == doc.ID, nil
}

func (repo chatRepository) QueryChats(ctx context.Context, filter chat.QueryFilter) ([]chat.Chat, error) {
	f := bson.M{}
	if filter.ParticipantID != "" {
		oid, ok := objectID(filter.ParticipantID)
		if !ok {
			return []chat.Chat{}, nil
		}
		f["participants"] = oid
	}

	opts := options.Find().SetSort(bson.D{{Key: "last_updated", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := repo.coll.Find(ctx, f, opts)
	if err != nil {
		return nil, errors.Wrap(err, "selecting chats")
	}
	var docs []chatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding chats")
	}

	chats := make([]chat.Chat, 0, len(docs))
	for _, doc := range docs {
		chats = append(chats, repo.fromDoc(doc))
	}
	return chats, nil
}
