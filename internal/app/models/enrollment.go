package models

import (
	"fmt"
	"time"

	"github.com/oklib/courseflow/internal/pkg/apperrors"
)

// Role is the closed set of roles a user can be enrolled with. The zero
// value is invalid; construct roles through ParseRole or the constants.
type Role string

const (
	RoleTA         Role = "ta"
	RoleInstructor Role = "instructor"
	RoleDesigner   Role = "designer"
)

// roleToCanvasType maps each role to the enrollment type name the LMS API
// expects. The mapping is closed in both directions; anything outside it is
// rejected at parse time.
var roleToCanvasType = map[Role]string{
	RoleTA:         "TaEnrollment",
	RoleInstructor: "TeacherEnrollment",
	RoleDesigner:   "DesignerEnrollment",
}

var canvasTypeToRole = map[string]Role{
	"TaEnrollment":       RoleTA,
	"TeacherEnrollment":  RoleInstructor,
	"DesignerEnrollment": RoleDesigner,
}

// ParseRole validates a role string, accepting both the internal names and
// the LMS enrollment type names.
func ParseRole(value string) (Role, error) {
	if _, ok := roleToCanvasType[Role(value)]; ok {
		return Role(value), nil
	}
	if role, ok := canvasTypeToRole[value]; ok {
		return role, nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, value)
}

// CanvasType returns the LMS enrollment type name for the role.
func (r Role) CanvasType() string {
	return roleToCanvasType[r]
}

// Valid reports whether the role is one of the closed set.
func (r Role) Valid() bool {
	_, ok := roleToCanvasType[r]
	return ok
}

// UsesLibrarianRole reports whether enrollment must override the default
// role id. The designer role shares an API name with the librarian role in
// the LMS, so designers are enrolled under the librarian role id.
func (r Role) UsesLibrarianRole() bool {
	return r == RoleDesigner
}

// SectionEnrollment is one (user, role) pair attached to a request. Rows
// are unique per (request, user, role); instructor-derived rows are created
// by the enrollment calculator, manual rows by the requester.
type SectionEnrollment struct {
	ID        int64     `json:"id" db:"id"`
	RequestID string    `json:"requestId" db:"request_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	Manual    bool      `json:"manual" db:"manual"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	User *User `json:"user,omitempty"`
}

// AutoAdd is a standing policy enrolling a user with a role on every site
// provisioned for a (school, subject) pair. Unique per
// (school, subject, user, role).
type AutoAdd struct {
	ID          int64     `json:"id" db:"id"`
	SchoolCode  string    `json:"schoolCode" db:"school_code"`
	SubjectCode string    `json:"subjectCode" db:"subject_code"`
	UserID      int64     `json:"userId" db:"user_id"`
	Role        Role      `json:"role" db:"role"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	User    *User    `json:"user,omitempty"`
	School  *School  `json:"school,omitempty"`
	Subject *Subject `json:"subject,omitempty"`
}

// RoleAssignment is a computed (user, role) pair ready to be applied to a
// course site.
type RoleAssignment struct {
	User User
	Role Role
}
