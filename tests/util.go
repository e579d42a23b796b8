package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
)

// NewConfig returns a TEST mode config backed by the in-memory database and the dummy AI provider.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "Darasa",
		TestMode:                  true,
		WorkDir:                   t.TempDir(),
		SecretKey:                 "test-secret",
		RefreshSecretKey:          "test-refresh-secret",
		JWTExpirationDelta:        15 * time.Minute,
		JWTRefreshExpirationDelta: 24 * time.Hour,
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "Darasa", Address: "noreply@test.cd"},
		Server: core.ServerConfig{
			Host:           "localhost",
			DisableReqLogs: true,
		},
		Database: core.DatabaseConfig{Engine: "memory"},
		AI: core.AIConfig{
			Provider:    "dummy",
			Model:       "gpt-4o",
			MaxTokens:   1500,
			Temperature: 0.7,
			Timeout:     5 * time.Second,
		},
		Storage: core.StorageConfig{
			Provider:      "local",
			LocalDir:      "uploads",
			BaseURL:       "/uploads",
			MaxUploadSize: 1 << 20,
		},
	}
}

// NewLogger returns a disabled logger writing nowhere.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with the core and user validators registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(t *testing.T, repo user.Repository, uname, email, pwd, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := core.NowFunc()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateGroup creates a group owned by creator, who joins it as its teacher along with the given students.
func CreateGroup(t *testing.T, repo group.Repository, name string, creator user.User, students ...user.User) group.Group {
	t.Helper()
	now := core.NowFunc()
	participants := []group.Participant{{UserID: creator.ID, Role: user.RoleTeacher}}
	for _, s := range students {
		participants = append(participants, group.Participant{UserID: s.ID, Role: user.RoleStudent})
	}
	grp, err := repo.CreateGroup(context.Background(), group.Group{
		Name:         name,
		Slug:         group.Slugify(name, now, 0),
		Participants: participants,
		CreatedBy:    creator.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	grp group.Group,
	creator user.User,
	title string,
	deadline time.Time,
) assignment.Assignment {
	t.Helper()
	now := core.NowFunc()
	a, err := repo.CreateAssignment(context.Background(), assignment.Assignment{
		Title:       title,
		Description: title + " description",
		GroupID:     grp.ID,
		Deadline:    deadline.UTC(),
		CreatedBy:   creator.ID,
		Submissions: make(assignment.Submissions),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return a
}

// Submit stores a submission of student as-is, bypassing the service rules.
func Submit(t *testing.T, repo assignment.Repository, a assignment.Assignment, student user.User, content string) assignment.Submission {
	t.Helper()
	sub := assignment.Submission{
		UserID:      student.ID,
		Content:     content,
		SubmittedAt: core.NowFunc(),
		Late:        core.NowFunc().After(a.Deadline),
		Status:      assignment.StatusSubmitted,
	}
	if err := repo.PutSubmission(context.Background(), a.ID, sub); err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	return sub
}
