package chat

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var ErrSelfChat = core.NewValidationError(errors.New("cannot start a chat with yourself"))

type (
	Repository interface {
		// GetOrCreateChat returns the chat with the same PairKey as c if there is one,
		// otherwise it saves c. created reports which happened.
		GetOrCreateChat(ctx context.Context, c Chat) (chat Chat, created bool, err error)
		// QueryChats returns matching chats, most recently updated first.
		QueryChats(ctx context.Context, filter QueryFilter) ([]Chat, error)
	}

	ServiceInterface interface {
		QueryForUser(ctx context.Context, actor user.User) ([]Chat, error)
		// GetOrCreate returns the chat between actor and the requested user, starting it if needed.
		GetOrCreate(ctx context.Context, actor user.User, nc NewChat) (chat Chat, created bool, err error)
	}

	Service struct {
		repo   Repository
		usrSvc user.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, usrSvc user.ServiceInterface) *Service {
	return &Service{repo: repo, usrSvc: usrSvc}
}

func (svc *Service) QueryForUser(ctx context.Context, actor user.User) ([]Chat, error) {
	chats, err := svc.repo.QueryChats(ctx, QueryFilter{ParticipantID: actor.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying chats")
	}
	ptrs := make([]*Chat, 0, len(chats))
	for i := range chats {
		ptrs = append(ptrs, &chats[i])
	}
	return chats, svc.populate(ctx, ptrs...)
}

func (svc *Service) GetOrCreate(ctx context.Context, actor user.User, nc NewChat) (Chat, bool, error) {
	if nc.ParticipantID == actor.ID {
		return Chat{}, false, ErrSelfChat
	}
	other, err := svc.usrSvc.GetByID(ctx, nc.ParticipantID)
	if err != nil {
		return Chat{}, false, err
	}

	now := core.NowFunc()
	c, created, err := svc.repo.GetOrCreateChat(ctx, Chat{
		ParticipantIDs: []string{actor.ID, other.ID},
		Messages:       []Message{},
		LastUpdated:    now,
		CreatedAt:      now,
	})
	if err != nil {
		return Chat{}, false, pkgerrors.Wrap(err, "getting or creating chat")
	}
	return c, created, svc.populate(ctx, &c)
}

// populate fills in the user references of the chats' participants.
// Deleted users are left out.
func (svc *Service) populate(ctx context.Context, chats ...*Chat) error {
	ids := make([]string, 0, 2*len(chats))
	for _, c := range chats {
		ids = append(ids, c.ParticipantIDs...)
	}
	refs, err := svc.usrSvc.Refs(ctx, core.IDsOf(ids, func(id string) string { return id })...)
	if err != nil {
		return pkgerrors.Wrap(err, "populating chats")
	}
	for _, c := range chats {
		c.Participants = make([]*user.Ref, 0, len(c.ParticipantIDs))
		for _, id := range c.ParticipantIDs {
			if ref, ok := refs[id]; ok {
				c.Participants = append(c.Participants, ref)
			}
		}
	}
	return nil
}
