package models

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/desertthunder/musive/internal/shared"
)

// User is the identity subject of a session token.
type User struct {
	ID        string     `json:"id"`
	Sequence  int        `json:"-"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// NewUser creates a user with timestamps set to now.
func NewUser(email, name string) *User {
	now := time.Now().UTC()
	return &User{Email: email, Name: name, CreatedAt: now, UpdatedAt: now}
}

func (u *User) Validate() error {
	if u.Email == "" {
		return fmt.Errorf("%w: email is required", shared.ErrValidation)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", shared.ErrValidation, u.Email)
	}
	return nil
}

// SpotifyCredential is the stored upstream access for one user.
type SpotifyCredential struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

func (c *SpotifyCredential) Validate() error {
	if c.UserID == "" || c.AccessToken == "" {
		return fmt.Errorf("%w: credential requires user id and access token", shared.ErrValidation)
	}
	return nil
}

// ExpiresWithin reports whether the access token is expired or expires within buffer of now.
func (c *SpotifyCredential) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return !now.Add(buffer).Before(c.ExpiresAt)
}
