package group

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/user"
)

func TestSlugify(t *testing.T) {
	// 1704164645123 ms since epoch
	tstamp := time.Date(2024, 1, 2, 3, 4, 5, 123456789, time.UTC)

	tests := []struct {
		name    string
		grpName string
		t       time.Time
		attempt int
		want    string
	}{
		{name: "simple", grpName: "Maths", t: tstamp, want: "maths-5123"},
		{name: "spaces and punctuation", grpName: "  Physics, 1st   Year! ", t: tstamp, want: "physics-1st-year-5123"},
		{name: "underscores kept", grpName: "cs_101", t: tstamp, want: "cs_101-5123"},
		{name: "nothing left", grpName: "!!!", t: tstamp, want: "group-5123"},
		{name: "attempt bumps suffix", grpName: "Maths", t: tstamp, attempt: 2, want: "maths-5125"},
		{name: "zero padded", grpName: "Maths", t: time.Unix(0, 7*int64(time.Millisecond)), want: "maths-0007"},
		{name: "suffix wraps", grpName: "Maths", t: time.Unix(9, 999*int64(time.Millisecond)), attempt: 1, want: "maths-0000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.grpName, tt.t, tt.attempt))
		})
	}
}

func TestAuthorize(t *testing.T) {
	grp := Group{
		Participants: []Participant{
			{UserID: "teacher", Role: user.RoleTeacher},
			{UserID: "student", Role: user.RoleStudent},
		},
	}

	tests := []struct {
		name     string
		userID   string
		roles    []string
		wantRole string
		wantErr  error
	}{
		{name: "any member", userID: "student", wantRole: user.RoleStudent},
		{name: "not a member", userID: "stranger", wantErr: ErrNotMember},
		{name: "not a member, role required", userID: "stranger", roles: []string{user.RoleTeacher}, wantErr: ErrNotMember},
		{name: "teacher required", userID: "student", roles: []string{user.RoleTeacher}, wantErr: ErrTeacherRequired},
		{name: "student required", userID: "teacher", roles: []string{user.RoleStudent}, wantErr: ErrStudentRequired},
		{name: "teacher", userID: "teacher", roles: []string{user.RoleTeacher}, wantRole: user.RoleTeacher},
		{name: "one of roles", userID: "student", roles: []string{user.RoleTeacher, user.RoleStudent}, wantRole: user.RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := Authorize(grp, tt.userID, tt.roles...)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantRole, role)
		})
	}
}
