package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func TestUserRepository(t *testing.T) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	ctx := context.Background()
	alice := testutil.CreateUser(t, repo, "alice", "alice@test.cd", "Sup3r-S3cret!", user.RoleStudent)

	_, err := repo.CreateUser(ctx, user.User{Username: "alice", Email: "other@test.cd"})
	assert.Equal(t, user.ErrUsernameExists, err)
	_, err = repo.CreateUser(ctx, user.User{Username: "other", Email: "alice@test.cd"})
	assert.Equal(t, user.ErrEmailExists, err)

	t.Run("stored users are copies", func(t *testing.T) {
		alice.PasswordHash[0] ^= 0xff
		got, err := repo.GetUser(ctx, user.GetFilter{ID: alice.ID})
		require.NoError(t, err)
		assert.NoError(t, got.CheckPassword("Sup3r-S3cret!"))
	})

	_, err = repo.UpdateUser(ctx, user.User{ID: core.NewID()})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestGroupRepository(t *testing.T) {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewGroupRepository(db)
	ctx := context.Background()
	teacher := testutil.CreateUser(t, usrRepo, "teacher", "teacher@test.cd", "", user.RoleTeacher)
	grp := testutil.CreateGroup(t, repo, "Maths", teacher)

	_, err := repo.CreateGroup(ctx, group.Group{Name: "Maths", Slug: grp.Slug})
	assert.Equal(t, group.ErrSlugExists, err)

	t.Run("participants are copied", func(t *testing.T) {
		grp.Participants[0].Role = user.RoleStudent
		got, err := repo.GetGroup(ctx, group.GetFilter{Slug: grp.Slug})
		require.NoError(t, err)
		assert.Equal(t, user.RoleTeacher, got.Participants[0].Role)
	})

	grps, err := repo.QueryGroups(ctx, group.QueryFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, grps, "an empty IDs filter matches nothing")

	grps, err = repo.QueryGroups(ctx, group.QueryFilter{ParticipantID: teacher.ID})
	require.NoError(t, err)
	assert.Len(t, grps, 1)

	db.Reset()
	_, err = repo.GetGroup(ctx, group.GetFilter{ID: grp.ID})
	assert.Equal(t, group.ErrNotFound, err)
}

func TestAssignmentRepository(t *testing.T) {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	grpRepo := inmemdb.NewGroupRepository(db)
	repo := inmemdb.NewAssignmentRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, usrRepo, "teacher", "teacher@test.cd", "", user.RoleTeacher)
	alice := testutil.CreateUser(t, usrRepo, "alice", "alice@test.cd", "", user.RoleStudent)
	maths := testutil.CreateGroup(t, grpRepo, "Maths", teacher, alice)
	physics := testutil.CreateGroup(t, grpRepo, "Physics", teacher, alice)

	orig := core.NowFunc
	t.Cleanup(func() { core.NowFunc = orig })
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	deadline := base.Add(48 * time.Hour)

	core.NowFunc = func() time.Time { return base }
	first := testutil.CreateAssignment(t, repo, maths, teacher, "First", deadline)
	core.NowFunc = func() time.Time { return base.Add(time.Hour) }
	second := testutil.CreateAssignment(t, repo, physics, teacher, "Second", deadline)

	t.Run("newest first", func(t *testing.T) {
		asgmts, err := repo.QueryAssignments(ctx, assignment.QueryFilter{GroupIDs: []string{maths.ID, physics.ID}})
		require.NoError(t, err)
		require.Len(t, asgmts, 2)
		assert.Equal(t, second.ID, asgmts[0].ID)
		assert.Equal(t, first.ID, asgmts[1].ID)
	})

	t.Run("one submission per student", func(t *testing.T) {
		grade := 50
		require.NoError(t, repo.PutSubmission(ctx, first.ID, assignment.Submission{UserID: alice.ID, Content: "v1", Grade: &grade}))
		require.NoError(t, repo.PutSubmission(ctx, first.ID, assignment.Submission{UserID: alice.ID, Content: "v2"}))
		grade = 99

		got, err := repo.GetAssignment(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, got.Submissions, 1)
		assert.Equal(t, "v2", got.Submissions[alice.ID].Content)
		assert.Nil(t, got.Submissions[alice.ID].Grade)
	})

	t.Run("batch save", func(t *testing.T) {
		err := repo.PutSubmissions(ctx, first.ID,
			[]assignment.Submission{{UserID: alice.ID, Content: "v2", Status: assignment.StatusGraded, Feedback: "ai"}},
			assignment.AIReport{MarkScheme: "criteria", Summary: "report"},
		)
		require.NoError(t, err)

		got, err := repo.GetAssignment(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "criteria", got.AIMarkScheme)
		assert.Equal(t, "report", got.AIReport)
		assert.Equal(t, "ai", got.Submissions[alice.ID].Feedback)

		assert.Equal(t, assignment.ErrNotFound, repo.PutSubmissions(ctx, core.NewID(), nil, assignment.AIReport{}))
	})

	t.Run("group cleanup", func(t *testing.T) {
		n, err := repo.DeleteGroupAssignments(ctx, maths.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = repo.GetAssignment(ctx, first.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
		_, err = repo.GetAssignment(ctx, second.ID)
		assert.NoError(t, err)
	})
}

func TestChatRepository(t *testing.T) {
	repo := inmemdb.NewChatRepository(inmemdb.Open())
	ctx := context.Background()
	alice, bob, carol := core.NewID(), core.NewID(), core.NewID()
	now := time.Now().UTC()

	first, created, err := repo.GetOrCreateChat(ctx, chat.Chat{ParticipantIDs: []string{alice, bob}, LastUpdated: now})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)

	t.Run("same pair in any order", func(t *testing.T) {
		got, created, err := repo.GetOrCreateChat(ctx, chat.Chat{ParticipantIDs: []string{bob, alice}, LastUpdated: now.Add(time.Hour)})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, got.ID)
		assert.True(t, got.LastUpdated.Equal(now))
	})

	other, created, err := repo.GetOrCreateChat(ctx, chat.Chat{ParticipantIDs: []string{carol, alice}, LastUpdated: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.True(t, created)

	t.Run("query by participant, latest first", func(t *testing.T) {
		chats, err := repo.QueryChats(ctx, chat.QueryFilter{ParticipantID: alice})
		require.NoError(t, err)
		if assert.Len(t, chats, 2) {
			assert.Equal(t, other.ID, chats[0].ID)
			assert.Equal(t, first.ID, chats[1].ID)
		}

		chats, err = repo.QueryChats(ctx, chat.QueryFilter{ParticipantID: bob})
		require.NoError(t, err)
		assert.Len(t, chats, 1)

		chats, err = repo.QueryChats(ctx, chat.QueryFilter{ParticipantID: core.NewID()})
		require.NoError(t, err)
		assert.Empty(t, chats)
	})

	t.Run("stored chats are copies", func(t *testing.T) {
		first.ParticipantIDs[0] = carol
		chats, err := repo.QueryChats(ctx, chat.QueryFilter{ParticipantID: bob})
		require.NoError(t, err)
		require.Len(t, chats, 1)
		assert.ElementsMatch(t, []string{alice, bob}, chats[0].ParticipantIDs)
	})
}
