package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/group"
)

type groupRepository struct {
	db *groupTable
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) *groupRepository {
	return &groupRepository{db: db.group}
}

func (repo *groupRepository) copy(grp group.Group) group.Group {
	participants := make([]group.Participant, len(grp.Participants))
	for i, p := range grp.Participants {
		participants[i] = group.Participant{UserID: p.UserID, Role: p.Role}
	}
	grp.Participants = participants
	grp.Creator = nil
	return grp
}

func (repo *groupRepository) CreateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, g := range repo.db.table {
		if g.Slug == grp.Slug {
			return group.Group{}, group.ErrSlugExists
		}
	}
	grp.ID = core.NewID()
	grp = repo.copy(grp)
	repo.db.table[grp.ID] = grp
	return repo.copy(grp), nil
}

func (repo *groupRepository) GetGroup(_ context.Context, filter group.GetFilter) (group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if grp, ok := repo.db.table[filter.ID]; ok {
			return repo.copy(grp), nil
		}
		return group.Group{}, group.ErrNotFound
	}
	for _, grp := range repo.db.table {
		if filter.Slug != "" && grp.Slug == filter.Slug {
			return repo.copy(grp), nil
		}
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryGroups(_ context.Context, filter group.QueryFilter) ([]group.Group, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}

	grps := make([]group.Group, 0)
	for _, grp := range repo.db.table {
		if filter.IDs != nil {
			if _, ok := ids[grp.ID]; !ok {
				continue
			}
		}
		if filter.ParticipantID != "" {
			if _, ok := grp.RoleOf(filter.ParticipantID); !ok {
				continue
			}
		}
		grps = append(grps, repo.copy(grp))
	}
	sort.Slice(grps, func(i, j int) bool {
		if grps[i].CreatedAt.Equal(grps[j].CreatedAt) {
			return grps[i].ID > grps[j].ID
		}
		return grps[i].CreatedAt.After(grps[j].CreatedAt)
	})
	return grps, nil
}

func (repo *groupRepository) UpdateGroup(_ context.Context, grp group.Group) (group.Group, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[grp.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	orig.Name = grp.Name
	orig.Participants = grp.Participants
	orig.UpdatedAt = grp.UpdatedAt
	orig = repo.copy(orig)
	repo.db.table[grp.ID] = orig
	return repo.copy(orig), nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return group.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
