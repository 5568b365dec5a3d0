package models

import (
	"strings"
	"time"
)

// User defines the user model based on the 'users' table. Users mirror the
// institutional directory; PennID-style numeric ids live in SISID and the
// login key in Username.
type User struct {
	ID          int64      `json:"id" db:"id"`
	Username    string     `json:"username" db:"username"`
	FirstName   string     `json:"firstName" db:"first_name"`
	LastName    string     `json:"lastName" db:"last_name"`
	Email       string     `json:"email" db:"email"`
	SISID       string     `json:"sisId" db:"sis_id"`
	Password    string     `json:"-" db:"password"`
	IsStaff     bool       `json:"isStaff" db:"is_staff"`
	CanvasID    *int64     `json:"canvasId,omitempty" db:"canvas_id"` // cached external account id, nil until resolved
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

// FullName returns the user's display name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
