package models

import "time"

// User represents an account in the system. Email is stored lowercase and is
// unique across users.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"-"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RefreshToken backs the /auth/refresh endpoint. Tokens are single-use:
// a refresh rotates the token and revokes the old one.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}

// IsExpired checks if the refresh token has expired.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
