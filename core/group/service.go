package group

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const maxSlugAttempts = 5

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("group")
	ErrSlugExists      = errors.New("a group with this slug already exists")
	ErrCreateForbidden = core.NewPermissionError("only teachers can create groups")
	ErrCreatorRequired = core.NewPermissionError("only the group creator can perform this action")
	ErrRemoveCreator   = core.NewPermissionError("the group creator cannot be removed")
	ErrAlreadyMember   = core.NewConflictError("user is already a member of this group")
	ErrNotParticipant  = core.NewNotFoundError("participant")
)

type (
	Repository interface {
		// CreateGroup returns ErrSlugExists if the slug is taken.
		CreateGroup(ctx context.Context, grp Group) (Group, error)
		GetGroup(ctx context.Context, filter GetFilter) (Group, error)
		// QueryGroups returns matching groups, newest first.
		QueryGroups(ctx context.Context, filter QueryFilter) ([]Group, error)
		UpdateGroup(ctx context.Context, grp Group) (Group, error)
		DeleteGroup(ctx context.Context, id string) error
	}

	// AssignmentCleaner removes the assignments of a deleted group.
	AssignmentCleaner interface {
		DeleteGroupAssignments(ctx context.Context, groupID string) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, ng NewGroup) (Group, error)
		// Get finds a group by ID or slug, without any authorization check.
		Get(ctx context.Context, idOrSlug string) (Group, error)
		// GetForMember finds a group by ID or slug and authorizes actor as one of roles.
		GetForMember(ctx context.Context, actor user.User, idOrSlug string, roles ...string) (Group, error)
		QueryForUser(ctx context.Context, actor user.User) ([]Group, error)
		Rename(ctx context.Context, actor user.User, idOrSlug string, ug UpdateGroup) (Group, error)
		Delete(ctx context.Context, actor user.User, idOrSlug string) error
		AddParticipant(ctx context.Context, actor user.User, idOrSlug string, np NewParticipant) (Group, error)
		RemoveParticipant(ctx context.Context, actor user.User, idOrSlug, userID string) (Group, error)
		Populate(ctx context.Context, grps ...*Group) error
	}

	Service struct {
		repo    Repository
		usrSvc  user.ServiceInterface
		cleaner AssignmentCleaner
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, usrSvc user.ServiceInterface, cleaner AssignmentCleaner) *Service {
	return &Service{repo: repo, usrSvc: usrSvc, cleaner: cleaner}
}

func (svc *Service) Create(ctx context.Context, actor user.User, ng NewGroup) (Group, error) {
	if !actor.IsTeacher() {
		return Group{}, ErrCreateForbidden
	}

	now := core.NowFunc()
	grp := Group{
		Name:         ng.Name,
		Participants: []Participant{{UserID: actor.ID, Role: user.RoleTeacher}},
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var err error
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		grp.Slug = Slugify(grp.Name, now, attempt)
		var created Group
		if created, err = svc.repo.CreateGroup(ctx, grp); err == nil {
			return created, svc.Populate(ctx, &created)
		}
		if err != ErrSlugExists {
			return Group{}, pkgerrors.Wrap(err, "creating group")
		}
	}
	return Group{}, pkgerrors.Wrap(err, "generating group slug")
}

func (svc *Service) Get(ctx context.Context, idOrSlug string) (Group, error) {
	idOrSlug = core.CleanString(idOrSlug)
	if idOrSlug == "" {
		return Group{}, ErrNotFound
	}
	if core.IsValidID(idOrSlug) {
		return svc.repo.GetGroup(ctx, GetFilter{ID: idOrSlug})
	}
	return svc.repo.GetGroup(ctx, GetFilter{Slug: core.CleanString(idOrSlug, true /* lower */)})
}

func (svc *Service) GetForMember(ctx context.Context, actor user.User, idOrSlug string, roles ...string) (Group, error) {
	grp, err := svc.Get(ctx, idOrSlug)
	if err != nil {
		return Group{}, err
	}
	if _, err := Authorize(grp, actor.ID, roles...); err != nil {
		return Group{}, err
	}
	return grp, nil
}

func (svc *Service) QueryForUser(ctx context.Context, actor user.User) ([]Group, error) {
	grps, err := svc.repo.QueryGroups(ctx, QueryFilter{ParticipantID: actor.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "querying groups")
	}
	ptrs := make([]*Group, 0, len(grps))
	for i := range grps {
		ptrs = append(ptrs, &grps[i])
	}
	return grps, svc.Populate(ctx, ptrs...)
}

func (svc *Service) Rename(ctx context.Context, actor user.User, idOrSlug string, ug UpdateGroup) (Group, error) {
	grp, err := svc.GetForMember(ctx, actor, idOrSlug, user.RoleTeacher)
	if err != nil {
		return Group{}, err
	}
	grp.Name = ug.Name
	grp.UpdatedAt = core.NowFunc()
	if grp, err = svc.repo.UpdateGroup(ctx, grp); err != nil {
		return Group{}, pkgerrors.Wrap(err, "updating group")
	}
	return grp, svc.Populate(ctx, &grp)
}

// Delete deletes the group and all its assignments. Only the creator may delete a group.
func (svc *Service) Delete(ctx context.Context, actor user.User, idOrSlug string) error {
	grp, err := svc.Get(ctx, idOrSlug)
	if err != nil {
		return err
	}
	if grp.CreatedBy != actor.ID {
		return ErrCreatorRequired
	}
	if svc.cleaner != nil {
		if _, err := svc.cleaner.DeleteGroupAssignments(ctx, grp.ID); err != nil {
			return pkgerrors.Wrap(err, "deleting group assignments")
		}
	}
	return pkgerrors.Wrap(svc.repo.DeleteGroup(ctx, grp.ID), "deleting group")
}

func (svc *Service) AddParticipant(ctx context.Context, actor user.User, idOrSlug string, np NewParticipant) (Group, error) {
	grp, err := svc.GetForMember(ctx, actor, idOrSlug, user.RoleTeacher)
	if err != nil {
		return Group{}, err
	}

	usr, err := svc.usrSvc.GetByUsername(ctx, np.Username)
	if err != nil {
		return Group{}, err
	}
	if _, ok := grp.RoleOf(usr.ID); ok {
		return Group{}, ErrAlreadyMember
	}

	grp.Participants = append(grp.Participants, Participant{UserID: usr.ID, Role: np.Role})
	grp.UpdatedAt = core.NowFunc()
	if grp, err = svc.repo.UpdateGroup(ctx, grp); err != nil {
		return Group{}, pkgerrors.Wrap(err, "adding participant")
	}
	return grp, svc.Populate(ctx, &grp)
}

func (svc *Service) RemoveParticipant(ctx context.Context, actor user.User, idOrSlug, userID string) (Group, error) {
	grp, err := svc.GetForMember(ctx, actor, idOrSlug, user.RoleTeacher)
	if err != nil {
		return Group{}, err
	}
	if userID == grp.CreatedBy {
		return Group{}, ErrRemoveCreator
	}

	idx := -1
	for i, p := range grp.Participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Group{}, ErrNotParticipant
	}

	participants := make([]Participant, 0, len(grp.Participants)-1)
	participants = append(participants, grp.Participants[:idx]...)
	grp.Participants = append(participants, grp.Participants[idx+1:]...)
	grp.UpdatedAt = core.NowFunc()
	if grp, err = svc.repo.UpdateGroup(ctx, grp); err != nil {
		return Group{}, pkgerrors.Wrap(err, "removing participant")
	}
	return grp, svc.Populate(ctx, &grp)
}

// Populate fills in the user references of the groups' creators and participants.
func (svc *Service) Populate(ctx context.Context, grps ...*Group) error {
	ids := make([]string, 0)
	for _, grp := range grps {
		ids = append(ids, grp.CreatedBy)
		for _, p := range grp.Participants {
			ids = append(ids, p.UserID)
		}
	}
	refs, err := svc.usrSvc.Refs(ctx, core.IDsOf(ids, func(id string) string { return id })...)
	if err != nil {
		return pkgerrors.Wrap(err, "populating groups")
	}
	for _, grp := range grps {
		grp.Creator = refs[grp.CreatedBy]
		for i := range grp.Participants {
			grp.Participants[i].User = refs[grp.Participants[i].UserID]
		}
	}
	return nil
}
