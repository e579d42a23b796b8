package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/user"
)

func usernames(c chat.Chat) []string {
	names := make([]string, 0, len(c.Participants))
	for _, ref := range c.Participants {
		names = append(names, ref.Username)
	}
	return names
}

func Test_chatApi_start(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	student := app.createUser(t, "student", user.RoleStudent)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodPost, path: "/api/chats",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "participant required", method: http.MethodPost, path: "/api/chats", token: app.token(t, student),
			body:     marchallObj(t, chat.NewChat{ParticipantID: " "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"participant_id": "this field is required"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/api/chats", token: app.token(t, student),
			body:     marchallObj(t, chat.NewChat{ParticipantID: core.NewID()}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "malformed id", method: http.MethodPost, path: "/api/chats", token: app.token(t, student),
			body:     marchallObj(t, chat.NewChat{ParticipantID: "lol"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "not with yourself", method: http.MethodPost, path: "/api/chats", token: app.token(t, student),
			body:     marchallObj(t, chat.NewChat{ParticipantID: student.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "cannot start a chat with yourself"}),
		},
	}
	runHTTPTests(t, app, tests)

	var created chat.Chat
	t.Run("creates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/chats", app.token(t, student), marchallObj(t, chat.NewChat{ParticipantID: teacher.ID}))
		require.Equal(t, http.StatusCreated, app.do(t, req, rec, &created), rec.Body.String())

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, []string{student.ID, teacher.ID}, created.ParticipantIDs)
		assert.Equal(t, []string{"student", "teacher"}, usernames(created))
		assert.NotNil(t, created.Messages)
		assert.Empty(t, created.Messages)
	})

	t.Run("returns the existing chat, from either side", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/chats", app.token(t, teacher), marchallObj(t, chat.NewChat{ParticipantID: student.ID}))
		var got chat.Chat
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, []string{"student", "teacher"}, usernames(got))

		chats, err := app.chatRepo.QueryChats(context.Background(), chat.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, chats, 1)
	})
}

func Test_chatApi_query(t *testing.T) {
	app := setup(t)
	alice := app.createUser(t, "alice", user.RoleStudent)
	bob := app.createUser(t, "bob", user.RoleStudent)
	carol := app.createUser(t, "carol", user.RoleTeacher)
	dave := app.createUser(t, "dave", user.RoleStudent)

	now := time.Now().UTC()
	newChat := func(t *testing.T, a, b user.User, updated time.Time) chat.Chat {
		c, created, err := app.chatRepo.GetOrCreateChat(context.Background(), chat.Chat{
			ParticipantIDs: []string{a.ID, b.ID},
			Messages:       []chat.Message{},
			LastUpdated:    updated,
			CreatedAt:      updated,
		})
		require.NoError(t, err)
		require.True(t, created)
		return c
	}
	older := newChat(t, alice, bob, now.Add(-time.Hour))
	newer := newChat(t, carol, alice, now)
	newChat(t, bob, carol, now.Add(time.Minute))

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/chats")
		assert.Equal(t, http.StatusUnauthorized, app.do(t, req, rec))
	})

	t.Run("latest first, participants populated", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/chats", app.token(t, alice))
		var got []chat.Chat
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())

		require.Len(t, got, 2)
		assert.Equal(t, newer.ID, got[0].ID)
		assert.Equal(t, []string{"carol", "alice"}, usernames(got[0]))
		assert.Equal(t, older.ID, got[1].ID)
		assert.Equal(t, []string{"alice", "bob"}, usernames(got[1]))
	})

	t.Run("no chats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/chats", app.token(t, dave))
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, serve(app, req, rec))
	})
}
