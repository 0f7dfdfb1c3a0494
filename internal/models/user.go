package models

import (
	"net/mail"
	"strings"
	"time"
)

// DefaultUserID is the account used when the server runs without required
// authentication.
const DefaultUserID int64 = 1

// User is an account on the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks that the user has valid field values.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return NewValidationError("username is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email is invalid")
	}
	return nil
}
