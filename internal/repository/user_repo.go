package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"famledger/internal/database"
	"famledger/internal/models"
)

// UserRepository handles database operations for users and refresh tokens
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user. Email is normalized to lowercase.
func (r *UserRepository) CreateUser(email, passwordHash, name string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', '', ?, ?)`
	_, err := r.db.Exec(query, user.ID, user.Email, user.PasswordHash, user.Name, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// CreateOAuthUser inserts a user provisioned through an OAuth provider
func (r *UserRepository) CreateOAuthUser(email, name, provider, subject, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:            uuid.New().String(),
		Email:         strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:  passwordHash,
		Name:          name,
		OAuthProvider: provider,
		OAuthSubject:  subject,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `INSERT INTO users (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, user.ID, user.Email, user.PasswordHash, user.Name,
		user.OAuthProvider, user.OAuthSubject, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive). Returns nil if not found.
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at
		FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRow(query, strings.ToLower(strings.TrimSpace(email))))
}

// GetUserByID retrieves a user by ID. Returns nil if not found.
func (r *UserRepository) GetUserByID(id string) (*models.User, error) {
	query := `SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at
		FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRow(query, id))
}

// GetUserByOAuthSubject retrieves a user by OAuth provider and subject. Returns nil if not found.
func (r *UserRepository) GetUserByOAuthSubject(provider, subject string) (*models.User, error) {
	query := `SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at
		FROM users WHERE oauth_provider = ? AND oauth_subject = ?`
	return r.scanUser(r.db.QueryRow(query, provider, subject))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name,
		&user.OAuthProvider, &user.OAuthSubject, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// CreateRefreshToken stores a refresh token for a user
func (r *UserRepository) CreateRefreshToken(token, userID string, expiresAt time.Time) error {
	query := `INSERT INTO refresh_tokens (token, user_id, expires_at, created_at, revoked) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, token, userID, expiresAt, time.Now(), false)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken retrieves a refresh token. Returns nil if not found.
func (r *UserRepository) GetRefreshToken(token string) (*models.RefreshToken, error) {
	query := `SELECT token, user_id, expires_at, created_at, revoked FROM refresh_tokens WHERE token = ?`
	rt := &models.RefreshToken{}
	err := r.db.QueryRow(query, token).Scan(&rt.Token, &rt.UserID, &rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return rt, nil
}

// RevokeRefreshToken marks a refresh token as revoked
func (r *UserRepository) RevokeRefreshToken(token string) error {
	query := `UPDATE refresh_tokens SET revoked = ? WHERE token = ?`
	_, err := r.db.Exec(query, true, token)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes tokens past their expiry
func (r *UserRepository) DeleteExpiredRefreshTokens() error {
	query := `DELETE FROM refresh_tokens WHERE expires_at < ?`
	_, err := r.db.Exec(query, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired refresh tokens: %w", err)
	}
	return nil
}
