package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/group"
)

type assignmentRepository struct {
	db *assignmentTable
}

var (
	_ assignment.Repository   = (*assignmentRepository)(nil) // interface compliance check
	_ group.AssignmentCleaner = (*assignmentRepository)(nil)
)

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) copySubmission(sub assignment.Submission) assignment.Submission {
	sub.User = nil
	if sub.Grade != nil {
		grade := *sub.Grade
		sub.Grade = &grade
	}
	if sub.GradedAt != nil {
		gradedAt := *sub.GradedAt
		sub.GradedAt = &gradedAt
	}
	return sub
}

func (repo *assignmentRepository) copy(a assignment.Assignment) assignment.Assignment {
	subs := make(assignment.Submissions, len(a.Submissions))
	for uid, sub := range a.Submissions {
		subs[uid] = repo.copySubmission(sub)
	}
	a.Submissions = subs
	a.Group = nil
	a.Creator = nil
	return a
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = core.NewID()
	a = repo.copy(a)
	repo.db.table[a.ID] = a
	return repo.copy(a), nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return repo.copy(a), nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, filter assignment.QueryFilter) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	groupIDs := make(map[string]struct{}, len(filter.GroupIDs))
	for _, id := range filter.GroupIDs {
		groupIDs[id] = struct{}{}
	}

	asgmts := make([]assignment.Assignment, 0)
	for _, a := range repo.db.table {
		if filter.GroupIDs != nil {
			if _, ok := groupIDs[a.GroupID]; !ok {
				continue
			}
		}
		asgmts = append(asgmts, repo.copy(a))
	}
	sort.Slice(asgmts, func(i, j int) bool {
		if asgmts[i].CreatedAt.Equal(asgmts[j].CreatedAt) {
			return asgmts[i].ID > asgmts[j].ID
		}
		return asgmts[i].CreatedAt.After(asgmts[j].CreatedAt)
	})
	return asgmts, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *assignmentRepository) DeleteGroupAssignments(_ context.Context, groupID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, a := range repo.db.table {
		if a.GroupID == groupID {
			delete(repo.db.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *assignmentRepository) PutSubmission(_ context.Context, assignmentID string, sub assignment.Submission) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.table[assignmentID]
	if !ok {
		return assignment.ErrNotFound
	}
	if a.Submissions == nil {
		a.Submissions = make(assignment.Submissions)
	}
	a.Submissions[sub.UserID] = repo.copySubmission(sub)
	a.UpdatedAt = core.NowFunc()
	repo.db.table[assignmentID] = a
	return nil
}

func (repo *assignmentRepository) PutSubmissions(_ context.Context, assignmentID string, subs []assignment.Submission, report assignment.AIReport) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.table[assignmentID]
	if !ok {
		return assignment.ErrNotFound
	}
	if a.Submissions == nil {
		a.Submissions = make(assignment.Submissions)
	}
	for _, sub := range subs {
		a.Submissions[sub.UserID] = repo.copySubmission(sub)
	}
	a.AIMarkScheme = report.MarkScheme
	a.AIReport = report.Summary
	a.UpdatedAt = core.NowFunc()
	repo.db.table[assignmentID] = a
	return nil
}
