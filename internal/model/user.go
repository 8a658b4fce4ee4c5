package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleStudent    UserRole = "student"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super-admin"
)

var UserRoles = []UserRole{UserRoleStudent, UserRoleAdmin, UserRoleSuperAdmin}

func (r UserRole) Valid() bool {
	return slices.Contains(UserRoles, r)
}

// Administrative reports whether the role manages events.
func (r UserRole) Administrative() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            UserRole  `json:"role"`
	ProfileComplete bool      `json:"isProfileComplete"`
	Course          string    `json:"course,omitempty"`
	Department      string    `json:"department,omitempty"`
	Year            int       `json:"year,omitempty"`
	Interests       []string  `json:"interests"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID          uuid.UUID `json:"userId"`
	Role            UserRole  `json:"role"`
	ProfileComplete bool      `json:"profileComplete"`
}

func (p Principal) Anonymous() bool {
	return p.UserID == uuid.Nil
}
