package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

func participantIDs(grp group.Group) map[string]string {
	ids := make(map[string]string, len(grp.Participants))
	for _, p := range grp.Participants {
		ids[p.UserID] = p.Role
	}
	return ids
}

func Test_groupApi_create(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	student := app.createUser(t, "student", user.RoleStudent)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/groups",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "teacher required", method: http.MethodPost, path: "/api/groups", token: app.token(t, student),
			body:     marchallObj(t, group.NewGroup{Name: "Maths"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only teachers can perform this action"}),
		},
		{
			name: "name required", method: http.MethodPost, path: "/api/groups", token: app.token(t, teacher),
			body:     marchallObj(t, group.NewGroup{Name: "   "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/groups", app.token(t, teacher), marchallObj(t, group.NewGroup{Name: " Maths 101! "}))
		var got group.Group
		require.Equal(t, http.StatusCreated, app.do(t, req, rec, &got), rec.Body.String())

		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Maths 101!", got.Name)
		assert.Regexp(t, `^maths-101-\d{4}$`, got.Slug)
		assert.Equal(t, teacher.ID, got.CreatedBy)
		require.NotNil(t, got.Creator)
		assert.Equal(t, teacher.Username, got.Creator.Username)
		require.Len(t, got.Participants, 1)
		assert.Equal(t, user.RoleTeacher, got.Participants[0].Role)
		require.NotNil(t, got.Participants[0].User)
		assert.Equal(t, teacher.Email, got.Participants[0].User.Email)
	})
}

func Test_groupApi_queryAndRetrieve(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	student := app.createUser(t, "student", user.RoleStudent)
	outsider := app.createUser(t, "outsider", user.RoleStudent)

	maths := testutil.CreateGroup(t, app.grpRepo, "Maths", teacher, student)
	physics := testutil.CreateGroup(t, app.grpRepo, "Physics", teacher)
	asgmt := testutil.CreateAssignment(t, app.asgmtRepo, maths, teacher, "Algebra", time.Now().Add(24*time.Hour))
	testutil.Submit(t, app.asgmtRepo, asgmt, student, "x = 2")

	t.Run("query returns member groups only", func(t *testing.T) {
		cases := []struct {
			usr  user.User
			want []string
		}{
			{usr: teacher, want: []string{maths.ID, physics.ID}},
			{usr: student, want: []string{maths.ID}},
			{usr: outsider, want: []string{}},
		}
		for _, c := range cases {
			req, rec := newAuthRequest(http.MethodGet, "/api/groups", app.token(t, c.usr))
			var got []group.Group
			require.Equal(t, http.StatusOK, app.do(t, req, rec, &got))

			ids := make([]string, 0, len(got))
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			assert.ElementsMatch(t, c.want, ids, c.usr.Username)
		}
	})

	tests := []httpTest{
		{
			name: "retrieve (non member)", path: "/api/groups/" + maths.ID, token: app.token(t, outsider),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: group.ErrNotMember.Error()}),
		},
		{
			name: "retrieve (unknown)", path: "/api/groups/unknown-slug", token: app.token(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "group not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	for _, key := range []string{maths.ID, maths.Slug} {
		t.Run("retrieve by "+key, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/api/groups/"+key, app.token(t, teacher))
			var got GroupDetail
			require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())

			assert.Equal(t, maths.ID, got.ID)
			assert.Equal(t, map[string]string{teacher.ID: user.RoleTeacher, student.ID: user.RoleStudent}, participantIDs(got.Group))
			require.Len(t, got.Assignments, 1)
			assert.Equal(t, asgmt.ID, got.Assignments[0].ID)
			assert.Len(t, got.Assignments[0].Submissions, 1)
		})
	}

	t.Run("student sees only own submissions in group assignments", func(t *testing.T) {
		other := app.createUser(t, "other", user.RoleStudent)
		grp, err := app.grpRepo.GetGroup(context.Background(), group.GetFilter{ID: maths.ID})
		require.NoError(t, err)
		grp.Participants = append(grp.Participants, group.Participant{UserID: other.ID, Role: user.RoleStudent})
		_, err = app.grpRepo.UpdateGroup(context.Background(), grp)
		require.NoError(t, err)

		req, rec := newAuthRequest(http.MethodGet, "/api/groups/"+maths.ID+"/assignments", app.token(t, other))
		var got []assignment.Assignment
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		require.Len(t, got, 1)
		assert.Empty(t, got[0].Submissions)
		assert.Equal(t, assignment.StatusPending, got[0].MyStatus)
	})
}

func Test_groupApi_renameAndDelete(t *testing.T) {
	app := setup(t)
	creator := app.createUser(t, "creator", user.RoleTeacher)
	coTeacher := app.createUser(t, "coteacher", user.RoleTeacher)
	student := app.createUser(t, "student", user.RoleStudent)

	grp := testutil.CreateGroup(t, app.grpRepo, "Maths", creator, student)
	grp.Participants = append(grp.Participants, group.Participant{UserID: coTeacher.ID, Role: user.RoleTeacher})
	grp, err := app.grpRepo.UpdateGroup(context.Background(), grp)
	require.NoError(t, err)
	asgmt := testutil.CreateAssignment(t, app.asgmtRepo, grp, creator, "Algebra", time.Now().Add(time.Hour))

	tests := []httpTest{
		{
			name: "rename (student)", method: http.MethodPut, path: "/api/groups/" + grp.ID, token: app.token(t, student),
			body:     marchallObj(t, group.UpdateGroup{Name: "Hacked"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: group.ErrTeacherRequired.Error()}),
		},
		{
			name: "rename (invalid)", method: http.MethodPut, path: "/api/groups/" + grp.ID, token: app.token(t, coTeacher),
			body:     []byte(`{"name": ""}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "delete (co-teacher)", method: http.MethodDelete, path: "/api/groups/" + grp.ID, token: app.token(t, coTeacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: group.ErrCreatorRequired.Error()}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("rename (co-teacher)", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/groups/"+grp.Slug, app.token(t, coTeacher), marchallObj(t, group.UpdateGroup{Name: "Algebra"}))
		var got group.Group
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		assert.Equal(t, "Algebra", got.Name)
		assert.Equal(t, grp.Slug, got.Slug, "slug is stable")
	})

	t.Run("delete cascades to assignments", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/groups/"+grp.ID, app.token(t, creator))
		require.Equal(t, http.StatusNoContent, app.do(t, req, rec), rec.Body.String())

		_, err := app.grpRepo.GetGroup(context.Background(), group.GetFilter{ID: grp.ID})
		assert.Equal(t, group.ErrNotFound, err)
		_, err = app.asgmtRepo.GetAssignment(context.Background(), asgmt.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
	})
}

func Test_groupApi_participants(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	student := app.createUser(t, "student", user.RoleStudent)
	newbie := app.createUser(t, "newbie", user.RoleStudent)
	grp := testutil.CreateGroup(t, app.grpRepo, "Maths", teacher, student)

	path := "/api/groups/" + grp.ID + "/participants"
	teacherToken := app.token(t, teacher)

	tests := []httpTest{
		{
			name: "add (student)", method: http.MethodPost, path: path, token: app.token(t, student),
			body:     marchallObj(t, group.NewParticipant{Username: newbie.Username, Role: user.RoleStudent}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: group.ErrTeacherRequired.Error()}),
		},
		{
			name: "add (invalid role)", method: http.MethodPost, path: path, token: teacherToken,
			body: marchallObj(t, group.NewParticipant{Username: newbie.Username, Role: "ADMIN"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "add (unknown user)", method: http.MethodPost, path: path, token: teacherToken,
			body:     marchallObj(t, group.NewParticipant{Username: "ghost", Role: user.RoleStudent}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "add (already member)", method: http.MethodPost, path: path, token: teacherToken,
			body:     marchallObj(t, group.NewParticipant{Username: student.Username, Role: user.RoleStudent}),
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: group.ErrAlreadyMember.Error()}),
		},
		{
			name: "remove (creator)", method: http.MethodDelete, path: path, token: teacherToken,
			body:     marchallObj(t, group.RemoveParticipant{UserID: teacher.ID}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: group.ErrRemoveCreator.Error()}),
		},
		{
			name: "remove (not a participant)", method: http.MethodDelete, path: path, token: teacherToken,
			body:     marchallObj(t, group.RemoveParticipant{UserID: newbie.ID}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "participant not found"}),
		},
		{
			name: "remove (user_id required)", method: http.MethodDelete, path: path, token: teacherToken,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"user_id": "this field is required"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("add then remove", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, teacherToken, marchallObj(t, group.NewParticipant{Username: " NEWBIE ", Role: "student"}))
		var got group.Group
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		assert.Equal(t, user.RoleStudent, participantIDs(got)[newbie.ID])

		req, rec = newAuthRequest(http.MethodDelete, path, teacherToken, marchallObj(t, group.RemoveParticipant{UserID: newbie.ID}))
		got = group.Group{}
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		assert.NotContains(t, participantIDs(got), newbie.ID)
		assert.Contains(t, participantIDs(got), student.ID)
	})
}
