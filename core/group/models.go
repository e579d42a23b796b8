package group

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	slugStripRegex = regexp.MustCompile(`[^\w ]+`)
	slugSpaceRegex = regexp.MustCompile(` +`)
)

type Participant struct {
	UserID string    `json:"user_id"`
	Role   string    `json:"role"`
	User   *user.Ref `json:"user,omitempty"`
}

type Group struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Slug         string        `json:"slug"`
	Participants []Participant `json:"participants"`
	CreatedBy    string        `json:"created_by"`
	Creator      *user.Ref     `json:"creator,omitempty"`
	CreatedAt    time.Time     `json:"created_at"` // UTC
	UpdatedAt    time.Time     `json:"updated_at"` // UTC
}

// Ref returns the public reference of the group, embedded in assignments.
func (g Group) Ref() *Ref {
	return &Ref{ID: g.ID, Name: g.Name, Slug: g.Slug}
}

// Ref is a lightweight Group reference.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Slugify derives a group slug from its name and creation time:
// lower-cased, non-word characters stripped, spaces dashed,
// then suffixed with the last 4 digits of the timestamp in milliseconds.
// attempt bumps the suffix to get out of collisions.
func Slugify(name string, t time.Time, attempt int) string {
	base := strings.ToLower(core.CleanString(name))
	base = slugStripRegex.ReplaceAllString(base, "")
	base = slugSpaceRegex.ReplaceAllString(strings.TrimSpace(base), "-")
	if base == "" {
		base = "group"
	}
	ms := t.UnixNano()/int64(time.Millisecond) + int64(attempt)
	return fmt.Sprintf("%s-%04d", base, ms%10000)
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
type UpdateGroup struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	ug.Name = core.CleanString(ug.Name)
	return validate.Struct(ug)
}

// NewParticipant identifies a user to add to a group, with their role in it.
type NewParticipant struct {
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=TEACHER STUDENT"`
}

func (np *NewParticipant) Validate(validate *validator.Validate) error {
	np.Username = core.CleanString(np.Username, true /* lower */)
	np.Role = strings.ToUpper(core.CleanString(np.Role))
	return validate.Struct(np)
}

type RemoveParticipant struct {
	UserID string `json:"user_id" query:"user_id" validate:"required"`
}

func (rp *RemoveParticipant) Validate(validate *validator.Validate) error {
	rp.UserID = core.CleanString(rp.UserID)
	return validate.Struct(rp)
}

type GetFilter struct {
	ID   string
	Slug string
}

// QueryFilter applies AND operation on its set fields.
type QueryFilter struct {
	ParticipantID string
	IDs           []string
}
