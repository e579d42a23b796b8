package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/feedback"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
	aisvc "github.com/trezcool/darasa/services/ai"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/services/filestore"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

const password = "Sup3r-S3cret!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*Server
	conf      *core.Config
	usrRepo   user.Repository
	grpRepo   group.Repository
	asgmtRepo assignment.Repository
	chatRepo  chat.Repository
	mailSvc   *emailsvc.ConsoleServiceMock
}

// setup returns a server backed by a fresh in-memory database. gen defaults to the dummy generator.
func setup(t *testing.T, gen ...feedback.Generator) *testApp {
	t.Helper()

	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	grpRepo := inmemdb.NewGroupRepository(db)
	asgmtRepo := inmemdb.NewAssignmentRepository(db)
	chatRepo := inmemdb.NewChatRepository(db)

	// set up services
	var generator feedback.Generator = aisvc.DummyGenerator{}
	if len(gen) > 0 {
		generator = gen[0]
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	store, err := filestore.NewLocalStore(conf)
	require.NoError(t, err)

	usrSvc := user.NewService(usrRepo)
	grpSvc := group.NewService(grpRepo, usrSvc, asgmtRepo)
	fbSvc := feedback.NewService(generator)
	asgmtSvc := assignment.NewService(asgmtRepo, grpSvc, usrSvc, fbSvc, mailSvc, conf)
	chatSvc := chat.NewService(chatRepo, usrSvc)

	// set up server
	server := NewServer(ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		GroupSvc:      grpSvc,
		AssignmentSvc: asgmtSvc,
		FeedbackSvc:   fbSvc,
		ChatSvc:       chatSvc,
		FileStore:     store,
		Validate:      validate,
		Translator:    translator,
	})

	return &testApp{
		Server:    server,
		conf:      conf,
		usrRepo:   usrRepo,
		grpRepo:   grpRepo,
		asgmtRepo: asgmtRepo,
		chatRepo:  chatRepo,
		mailSvc:   mailSvc,
	}
}

func (app *testApp) createUser(t *testing.T, uname, role string) user.User {
	return testutil.CreateUser(t, app.usrRepo, uname, uname+"@test.cd", password, role)
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	return getToken(t, app.conf, usr)
}

// do serves the request and decodes the JSON response into out, if any.
func (app *testApp) do(t *testing.T, req *http.Request, rec *httptest.ResponseRecorder, out ...interface{}) int {
	t.Helper()
	app.ServeHTTP(rec, req)
	if len(out) > 0 && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out[0]), rec.Body.String())
	}
	return rec.Code
}

func serve(app *testApp, req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newMultipartRequest builds a multipart/form-data request; fileName and fileContent are optional.
func newMultipartRequest(
	t *testing.T,
	path, token string,
	fields map[string]string,
	fileName string,
	fileContent []byte,
) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileContent)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if _, ok := j1.([]interface{}); !ok {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
