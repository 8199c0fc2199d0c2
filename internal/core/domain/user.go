package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the closed set of roles a user can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Roles returns every valid role.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// IsValid reports whether r is a member of the role enumeration.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts s into a Role. Matching is exact and case-sensitive.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

const (
	// MaxUsernameLength is counted in characters.
	MaxUsernameLength = 64
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// NormalizeUsername trims s and rejects blank or over-long names.
func NormalizeUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", InvalidInput("username is required")
	}
	if utf8.RuneCountInString(s) > MaxUsernameLength {
		return "", InvalidInput("username is too long")
	}
	return s, nil
}

// CheckPassword rejects blank passwords and passwords bcrypt cannot hash.
func CheckPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return InvalidInput("password is required")
	}
	if len(password) > MaxPasswordBytes {
		return InvalidInput("password is too long")
	}
	return nil
}

// Claim is the verified identity of the requester, produced by the token
// verifier once per request. A nil *Claim means the caller is unauthenticated.
type Claim struct {
	UserID string
	Role   Role
}

// User models an account and the watch list it owns.
type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Role         Role        `json:"role"`
	WatchList    []WatchItem `json:"watch_list"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
