package group

import (
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	ErrNotMember       = core.NewPermissionError("you are not a member of this group")
	ErrTeacherRequired = core.NewPermissionError("only teachers of this group can perform this action")
	ErrStudentRequired = core.NewPermissionError("only students of this group can perform this action")
)

// RoleOf returns the role of userID in the group, if they are a participant.
func (g Group) RoleOf(userID string) (string, bool) {
	for _, p := range g.Participants {
		if p.UserID == userID {
			return p.Role, true
		}
	}
	return "", false
}

// Authorize returns the role of userID in grp, provided it is one of roles.
// Any participant is authorized when no roles are given.
func Authorize(grp Group, userID string, roles ...string) (string, error) {
	role, ok := grp.RoleOf(userID)
	if !ok {
		return "", ErrNotMember
	}
	if len(roles) == 0 {
		return role, nil
	}
	for _, r := range roles {
		if r == role {
			return role, nil
		}
	}
	if len(roles) == 1 && roles[0] == user.RoleStudent {
		return "", ErrStudentRequired
	}
	return "", ErrTeacherRequired
}
