package tests

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/feedback"
	"github.com/trezcool/darasa/core/user"
	aisvc "github.com/trezcool/darasa/services/ai"
	testutil "github.com/trezcool/darasa/tests"
)

// flakyGenerator fails the submission prompts mentioning failFor.
type flakyGenerator struct {
	failFor string
	calls   int32
}

func (g *flakyGenerator) Generate(ctx context.Context, prompt feedback.Prompt) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	if strings.Contains(prompt.User, "Student: "+g.failFor+"\n") {
		return "", errors.New("upstream unavailable")
	}
	return aisvc.DummyGenerator{}.Generate(ctx, prompt)
}

func Test_assignmentApi_generateAIFeedback(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	alice := app.createUser(t, "alice", user.RoleStudent)
	bob := app.createUser(t, "bob", user.RoleStudent)
	grp := testutil.CreateGroup(t, app.grpRepo, "Maths", teacher, alice, bob)

	t.Run("no submissions", func(t *testing.T) {
		empty := testutil.CreateAssignment(t, app.asgmtRepo, grp, teacher, "Empty", time.Now().Add(time.Hour))
		req, rec := newAuthRequest(
			http.MethodPost, "/api/assignments/"+empty.ID+"/ai-feedback", app.token(t, teacher),
			marchallObj(t, assignment.GenerateFeedback{MarkScheme: "criteria"}),
		)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, feedback.Report{Evaluation: feedback.NoSubmissionsText, Results: []feedback.Result{}}),
		}, serve(app, req, rec))

		a, err := app.asgmtRepo.GetAssignment(context.Background(), empty.ID)
		require.NoError(t, err)
		assert.Empty(t, a.AIReport, "nothing written")
	})

	t.Run("every submission graded", func(t *testing.T) {
		asgmt := testutil.CreateAssignment(t, app.asgmtRepo, grp, teacher, "Essay", time.Now().Add(time.Hour))
		testutil.Submit(t, app.asgmtRepo, asgmt, alice, "alice's essay")
		testutil.Submit(t, app.asgmtRepo, asgmt, bob, "bob's essay")
		app.mailSvc.Reset()

		req, rec := newAuthRequest(
			http.MethodPost, "/api/assignments/"+asgmt.ID+"/ai-feedback", app.token(t, teacher),
			marchallObj(t, assignment.GenerateFeedback{MarkScheme: "criteria"}),
		)
		var report feedback.Report
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &report), rec.Body.String())
		assert.Contains(t, report.Evaluation, "# AI Feedback for Assignment: Essay")
		assert.Contains(t, report.Evaluation, "- 2 submissions evaluated")
		require.Len(t, report.Results, 2)
		assert.ElementsMatch(t, []string{"alice", "bob"}, []string{report.Results[0].Username, report.Results[1].Username})

		a, err := app.asgmtRepo.GetAssignment(context.Background(), asgmt.ID)
		require.NoError(t, err)
		assert.Equal(t, "criteria", a.AIMarkScheme)
		assert.Equal(t, report.Evaluation, a.AIReport)
		for _, sub := range a.Submissions {
			assert.Equal(t, assignment.StatusGraded, sub.Status)
			assert.Equal(t, "## Submission\n\n- # Assignment", sub.Feedback)
			assert.NotNil(t, sub.GradedAt)
		}
		assert.Len(t, app.mailSvc.SentMessages(), 2)
	})
}

func Test_assignmentApi_generateAIFeedback_allOrNothing(t *testing.T) {
	gen := &flakyGenerator{failFor: "bob"}
	app := setup(t, gen)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	alice := app.createUser(t, "alice", user.RoleStudent)
	bob := app.createUser(t, "bob", user.RoleStudent)
	grp := testutil.CreateGroup(t, app.grpRepo, "Maths", teacher, alice, bob)
	asgmt := testutil.CreateAssignment(t, app.asgmtRepo, grp, teacher, "Essay", time.Now().Add(time.Hour))
	testutil.Submit(t, app.asgmtRepo, asgmt, alice, "alice's essay")
	testutil.Submit(t, app.asgmtRepo, asgmt, bob, "bob's essay")
	app.mailSvc.Reset()

	req, rec := newAuthRequest(
		http.MethodPost, "/api/assignments/"+asgmt.ID+"/ai-feedback", app.token(t, teacher),
		marchallObj(t, assignment.GenerateFeedback{MarkScheme: "criteria"}),
	)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusInternalServerError,
		wantData: marchallObj(t, httpErr{Error: http.StatusText(http.StatusInternalServerError)}),
	}, serve(app, req, rec))
	assert.NotZero(t, atomic.LoadInt32(&gen.calls))

	a, err := app.asgmtRepo.GetAssignment(context.Background(), asgmt.ID)
	require.NoError(t, err)
	assert.Empty(t, a.AIReport)
	assert.Empty(t, a.AIMarkScheme)
	for _, sub := range a.Submissions {
		assert.Equal(t, assignment.StatusSubmitted, sub.Status, sub.UserID)
		assert.Empty(t, sub.Feedback)
	}
	assert.Empty(t, app.mailSvc.SentMessages())
}

func Test_aiApi_process(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "student", user.RoleStudent)
	token := app.token(t, usr)

	tests := []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/ai", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "summarize (JSON)", method: http.MethodPost, path: "/api/ai", token: token,
			body:     marchallObj(t, AIRequest{Action: "summarize", Text: "Read chapter 1\nThen chapter 2"}),
			wantCode: http.StatusOK, wantData: marchallObj(t, SummaryResponse{Summary: "## Summary\n\n- Read chapter 1"}),
		},
		{
			name: "evaluate (JSON)", method: http.MethodPost, path: "/api/ai", token: token,
			body:     marchallObj(t, AIRequest{Action: "evaluate", Text: "my work", Descriptor: "the task"}),
			wantCode: http.StatusOK, wantData: marchallObj(t, EvaluationResponse{Evaluation: "## Evaluation\n\n- Task Description:"}),
		},
		{
			name: "empty content", method: http.MethodPost, path: "/api/ai", token: token,
			body:     marchallObj(t, AIRequest{Action: "summarize", Text: "   "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "no content to process"}),
		},
		{
			name: "invalid action", method: http.MethodPost, path: "/api/ai", token: token,
			body:     marchallObj(t, AIRequest{Action: "translate", Text: "hello"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid action specified"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("summarize (uploaded file)", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/ai", token, map[string]string{"action": "summarize", "text": "ignored"}, "notes.txt", []byte("From the file\nmore"))
		var got SummaryResponse
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		assert.Equal(t, "## Summary\n\n- From the file", got.Summary)
	})

	for name, file := range map[string]struct {
		name    string
		content []byte
	}{
		"pdf rejected":      {name: "task.PDF", content: []byte("%PDF-1.4")},
		"docx rejected":     {name: "task.docx", content: []byte("PK")},
		"non-text rejected": {name: "task.bin", content: []byte{0xff, 0xfe, 0xfd}},
	} {
		t.Run(name, func(t *testing.T) {
			req, rec := newMultipartRequest(t, "/api/ai", token, map[string]string{"action": "summarize"}, file.name, file.content)
			checkCodeAndData(t, httpTest{
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, httpErr{Error: "file cannot be read as text; upload a plain-text file"}),
			}, serve(app, req, rec))
		})
	}

	t.Run("file size limit", func(t *testing.T) {
		orig := app.conf.Storage.MaxUploadSize
		app.conf.Storage.MaxUploadSize = 8
		t.Cleanup(func() { app.conf.Storage.MaxUploadSize = orig })

		for _, content := range []string{"abcdefghijklmnop", "abcdefgé rest"} {
			req, rec := newMultipartRequest(t, "/api/ai", token, map[string]string{"action": "summarize"}, "notes.txt", []byte(content))
			checkCodeAndData(t, httpTest{
				wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, httpErr{Error: "file too large"}),
			}, serve(app, req, rec))
		}

		// exactly at the limit, ending on a multi-byte rune
		req, rec := newMultipartRequest(t, "/api/ai", token, map[string]string{"action": "summarize"}, "notes.txt", []byte("abcdefé"))
		var got SummaryResponse
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())
		assert.Equal(t, "## Summary\n\n- abcdefé", got.Summary)
	})

	t.Run("upstream failure", func(t *testing.T) {
		failing := setup(t, aisvc.DummyGenerator{Err: errors.New("boom")})
		usr := failing.createUser(t, "student", user.RoleStudent)
		req, rec := newAuthRequest(http.MethodPost, "/api/ai", failing.token(t, usr), marchallObj(t, AIRequest{Action: "summarize", Text: "hi"}))
		assert.Equal(t, http.StatusInternalServerError, failing.do(t, req, rec))
	})
}

func Test_aiApi_generateReport(t *testing.T) {
	app := setup(t)
	teacher := app.createUser(t, "teacher", user.RoleTeacher)
	student := app.createUser(t, "student", user.RoleStudent)
	grp := testutil.CreateGroup(t, app.grpRepo, "Maths", teacher, student)
	asgmt := testutil.CreateAssignment(t, app.asgmtRepo, grp, teacher, "Essay", time.Now().Add(time.Hour))
	testutil.Submit(t, app.asgmtRepo, asgmt, student, "my essay")

	path := "/api/ai/generate-report"
	token := app.token(t, teacher)

	tests := []httpTest{
		{
			name: "teacher required", method: http.MethodPost, path: path, token: app.token(t, student),
			body:     marchallObj(t, ReportRequest{Action: "evaluate", AssignmentID: asgmt.ID}),
			wantCode: http.StatusForbidden,
		},
		{
			name: "missing fields", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, ReportRequest{Action: "evaluate"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "missing required fields: action and assignment_id"}),
		},
		{
			name: "invalid action", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, ReportRequest{Action: "summarize", AssignmentID: asgmt.ID}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid action specified"}),
		},
		{
			name: "invalid id", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, ReportRequest{Action: "evaluate", AssignmentID: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid assignment ID"}),
		},
		{
			name: "unknown assignment", method: http.MethodPost, path: path, token: token,
			body:     marchallObj(t, ReportRequest{Action: "evaluate", AssignmentID: "5f8d0d55b54764421b7156c9"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "assignment not found"}),
		},
	}
	runHTTPTests(t, app, tests)

	t.Run("success (multipart)", func(t *testing.T) {
		req, rec := newMultipartRequest(
			t, path, token,
			map[string]string{"action": "evaluate", "assignment_id": asgmt.ID, "text": "criteria"},
			"scheme.md", []byte("from file"),
		)
		var report feedback.Report
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &report), rec.Body.String())
		require.Len(t, report.Results, 1)
		assert.Equal(t, student.ID, report.Results[0].UserID)

		a, err := app.asgmtRepo.GetAssignment(context.Background(), asgmt.ID)
		require.NoError(t, err)
		assert.Equal(t, "criteria\nfrom file", a.AIMarkScheme)
		assert.Equal(t, assignment.StatusGraded, a.StatusFor(student.ID))
	})
}

func Test_uploadApi(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "student", user.RoleStudent)
	token := app.token(t, usr)

	t.Run("auth required", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/upload", "", nil, "notes.txt", []byte("hello"))
		assert.Equal(t, http.StatusUnauthorized, app.do(t, req, rec))
	})

	t.Run("no file", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/upload", token, map[string]string{"foo": "bar"}, "", nil)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "no file provided"}),
		}, serve(app, req, rec))
	})

	t.Run("too large", func(t *testing.T) {
		big := make([]byte, app.conf.Storage.MaxUploadSize+1)
		req, rec := newMultipartRequest(t, "/api/upload", token, nil, "big.txt", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, app.do(t, req, rec))
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newMultipartRequest(t, "/api/upload", token, nil, "My Notes.TXT", []byte("hello"))
		var got UploadResponse
		require.Equal(t, http.StatusOK, app.do(t, req, rec, &got), rec.Body.String())

		assert.Equal(t, "My Notes.TXT", got.FileName)
		assert.Regexp(t, `^/uploads/[0-9a-f-]{36}\.txt$`, got.FileURL)
		assert.EqualValues(t, 5, got.Size)

		b, err := os.ReadFile(filepath.Join(app.conf.WorkDir, "uploads", filepath.Base(got.FileURL)))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))

		// served back by the API
		req, rec = newRequest(http.MethodGet, got.FileURL)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "hello", string(body))
	})
}
