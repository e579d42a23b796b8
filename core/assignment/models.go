package assignment

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
)

// Submission statuses. A student with no submission is implicitly pending.
const (
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusGraded    = "graded"
)

type Submission struct {
	UserID      string     `json:"user_id"`
	User        *user.Ref  `json:"user,omitempty"`
	Content     string     `json:"content"`
	FileName    string     `json:"file_name,omitempty"`
	FileURL     string     `json:"file_url,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"` // UTC
	Late        bool       `json:"late"`
	Status      string     `json:"status"`
	Feedback    string     `json:"feedback,omitempty"`
	Grade       *int       `json:"grade,omitempty"`
	GradedAt    *time.Time `json:"graded_at,omitempty"` // UTC
}

// Submissions holds at most one Submission per student, keyed by user ID.
type Submissions map[string]Submission

// List returns the submissions ordered by submission time.
func (s Submissions) List() []Submission {
	list := make([]Submission, 0, len(s))
	for _, sub := range s {
		list = append(list, sub)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].UserID < list[j].UserID
		}
		return list[i].SubmittedAt.Before(list[j].SubmittedAt)
	})
	return list
}

// Only keeps the submission of userID, if any.
func (s Submissions) Only(userID string) Submissions {
	only := make(Submissions, 1)
	if sub, ok := s[userID]; ok {
		only[userID] = sub
	}
	return only
}

func (s Submissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

func (s *Submissions) UnmarshalJSON(data []byte) error {
	var list []Submission
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = make(Submissions, len(list))
	for _, sub := range list {
		(*s)[sub.UserID] = sub
	}
	return nil
}

type Assignment struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	GroupID      string      `json:"group_id"`
	Group        *group.Ref  `json:"group,omitempty"`
	Deadline     time.Time   `json:"deadline"` // UTC
	CreatedBy    string      `json:"created_by"`
	Creator      *user.Ref   `json:"creator,omitempty"`
	Submissions  Submissions `json:"submissions"`
	AIMarkScheme string      `json:"ai_mark_scheme,omitempty"`
	AIReport     string      `json:"ai_report,omitempty"`
	MyStatus     string      `json:"my_status,omitempty"` // status of the viewing student
	CreatedAt    time.Time   `json:"created_at"`          // UTC
	UpdatedAt    time.Time   `json:"updated_at"`          // UTC
}

// StatusFor returns the submission status of userID.
func (a Assignment) StatusFor(userID string) string {
	if sub, ok := a.Submissions[userID]; ok {
		return sub.Status
	}
	return StatusPending
}

// AIReport is what a batch feedback generation stores on the assignment.
type AIReport struct {
	MarkScheme string
	Summary    string
}

// NewAssignment contains information needed to create a new Assignment.
// GroupID may be the ID or the slug of the group.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	GroupID     string    `json:"group_id" validate:"required"`
	Deadline    time.Time `json:"deadline" validate:"required,gt"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.GroupID = core.CleanString(na.GroupID)
	na.Deadline = na.Deadline.UTC()
	return validate.Struct(na)
}

// NewSubmission is a student's answer to an assignment.
type NewSubmission struct {
	Content  string `json:"content" validate:"required"`
	FileName string `json:"file_name" validate:"max=255"`
	FileURL  string `json:"file_url" validate:"required_with=FileName,max=2048"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	ns.FileName = core.CleanString(ns.FileName)
	ns.FileURL = core.CleanString(ns.FileURL)
	return validate.Struct(ns)
}

// GradeSubmission is a teacher's feedback on a submission. At least one of Feedback or Grade is required.
type GradeSubmission struct {
	Feedback string `json:"feedback" validate:"required_without=Grade"`
	Grade    *int   `json:"grade" validate:"omitempty,min=0,max=100"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}

// GenerateFeedback requests AI feedback for every submission of an assignment.
type GenerateFeedback struct {
	MarkScheme string `json:"ai_mark_scheme" validate:"required"`
}

func (gf *GenerateFeedback) Validate(validate *validator.Validate) error {
	gf.MarkScheme = core.CleanString(gf.MarkScheme)
	return validate.Struct(gf)
}

// QueryFilter applies AND operation on its set fields.
type QueryFilter struct {
	GroupIDs []string
}
