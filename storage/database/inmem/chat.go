package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
)

type chatRepository struct {
	db *chatTable
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

func NewChatRepository(db *DB) *chatRepository {
	return &chatRepository{db: db.chat}
}

func (repo *chatRepository) copy(c chat.Chat) chat.Chat {
	c.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	c.Messages = append([]chat.Message{}, c.Messages...)
	c.Participants = nil
	return c
}

func (repo *chatRepository) GetOrCreateChat(_ context.Context, c chat.Chat) (chat.Chat, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := c.Key()
	for _, existing := range repo.db.table {
		if existing.Key() == key {
			return repo.copy(existing), false, nil
		}
	}
	c.ID = core.NewID()
	c = repo.copy(c)
	repo.db.table[c.ID] = c
	return repo.copy(c), true, nil
}

func (repo *chatRepository) QueryChats(_ context.Context, filter chat.QueryFilter) ([]chat.Chat, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	chats := make([]chat.Chat, 0)
	for _, c := range repo.db.table {
		if filter.ParticipantID != "" && !hasParticipant(c, filter.ParticipantID) {
			continue
		}
		chats = append(chats, repo.copy(c))
	}
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].LastUpdated.Equal(chats[j].LastUpdated) {
			return chats[i].ID > chats[j].ID
		}
		return chats[i].LastUpdated.After(chats[j].LastUpdated)
	})
	return chats, nil
}

func hasParticipant(c chat.Chat, userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}
