package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

func setup() (*user.Service, user.Repository) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo), repo
}

func TestService_CheckUniqueness(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	alice := testutil.CreateUser(t, repo, "alice", "alice@test.cd", "", user.RoleStudent)

	tests := []struct {
		name      string
		uname     string
		email     string
		excl      []user.User
		wantField string
	}{
		{name: "username taken", uname: "alice", email: "new@test.cd", wantField: "username"},
		{name: "email taken", uname: "new", email: "alice@test.cd", wantField: "email"},
		{name: "unique", uname: "new", email: "new@test.cd"},
		{name: "excluded user", uname: "alice", email: "alice@test.cd", excl: []user.User{alice}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckUniqueness(ctx, tt.uname, tt.email, tt.excl...)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.wantField, verr.Fields[0].Field)
		})
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	usr, err := svc.Create(ctx, user.NewUser{Username: "bob", Email: "bob@test.cd", Password: "Sup3r-S3cret!", Role: user.RoleTeacher})
	require.NoError(t, err)
	assert.True(t, core.IsValidID(usr.ID))
	assert.True(t, usr.IsTeacher())
	assert.NoError(t, usr.CheckPassword("Sup3r-S3cret!"))
	assert.Error(t, usr.CheckPassword("wrong"))
	assert.False(t, usr.CreatedAt.IsZero())

	t.Run("lookups are case insensitive", func(t *testing.T) {
		got, err := svc.GetByUsername(ctx, "  BOB ")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)

		got, err = svc.GetByUsernameOrEmail(ctx, "Bob@Test.cd")
		require.NoError(t, err)
		assert.Equal(t, usr.ID, got.ID)
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := svc.GetByID(ctx, "lol")
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}

func TestService_Refs(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	alice := testutil.CreateUser(t, repo, "alice", "alice@test.cd", "", user.RoleStudent)
	bob := testutil.CreateUser(t, repo, "bob", "bob@test.cd", "", user.RoleTeacher)

	refs, err := svc.Refs(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)

	refs, err = svc.Refs(ctx, alice.ID, bob.ID, core.NewID())
	require.NoError(t, err)
	assert.Equal(t, map[string]*user.Ref{
		alice.ID: {ID: alice.ID, Username: "alice", Email: "alice@test.cd"},
		bob.ID:   {ID: bob.ID, Username: "bob", Email: "bob@test.cd"},
	}, refs)
}

func TestService_Query(t *testing.T) {
	svc, repo := setup()
	ctx := context.Background()
	testutil.CreateUser(t, repo, "zoe", "zoe@test.cd", "", user.RoleStudent)
	testutil.CreateUser(t, repo, "adam", "adam@school.cd", "", user.RoleStudent)
	testutil.CreateUser(t, repo, "mr_t", "mrt@school.cd", "", user.RoleTeacher)

	usernames := func(users []user.User) []string {
		names := make([]string, 0, len(users))
		for _, u := range users {
			names = append(names, u.Username)
		}
		return names
	}

	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []string
	}{
		{name: "all", want: []string{"adam", "mr_t", "zoe"}},
		{name: "students", filter: user.QueryFilter{Role: "student"}, want: []string{"adam", "zoe"}},
		{name: "search email", filter: user.QueryFilter{Search: "SCHOOL"}, want: []string{"adam", "mr_t"}},
		{name: "search and role", filter: user.QueryFilter{Search: "school", Role: user.RoleStudent}, want: []string{"adam"}},
		{name: "no match", filter: user.QueryFilter{Search: "nobody"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Clean()
			got, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(got))
		})
	}
}
