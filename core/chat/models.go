package chat

import (
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type Message struct {
	SenderID string    `json:"sender_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"` // UTC
}

// Chat is a direct conversation between two users.
type Chat struct {
	ID             string      `json:"id"`
	ParticipantIDs []string    `json:"participant_ids"`
	Participants   []*user.Ref `json:"participants"`
	Messages       []Message   `json:"messages"`
	LastUpdated    time.Time   `json:"last_updated"` // UTC
	CreatedAt      time.Time   `json:"created_at"`   // UTC
}

// PairKey identifies the chat between two users, whatever their order.
func PairKey(userID, otherID string) string {
	ids := []string{userID, otherID}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// Key returns the PairKey of the chat participants.
func (c Chat) Key() string {
	if len(c.ParticipantIDs) != 2 {
		return ""
	}
	return PairKey(c.ParticipantIDs[0], c.ParticipantIDs[1])
}

// NewChat identifies the user to start a chat with.
type NewChat struct {
	ParticipantID string `json:"participant_id" validate:"required"`
}

func (nc *NewChat) Validate(validate *validator.Validate) error {
	nc.ParticipantID = core.CleanString(nc.ParticipantID)
	return validate.Struct(nc)
}

// QueryFilter applies AND operation on its set fields.
type QueryFilter struct {
	ParticipantID string
}
