package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"famledger/internal/models"
	"famledger/internal/security"
	"famledger/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// UserStore is the persistence surface the auth service needs.
// Implemented by repository.UserRepository.
type UserStore interface {
	CreateUser(email, passwordHash, name string) (*models.User, error)
	CreateOAuthUser(email, name, provider, subject, passwordHash string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	GetUserByOAuthSubject(provider, subject string) (*models.User, error)
	CreateRefreshToken(token, userID string, expiresAt time.Time) error
	GetRefreshToken(token string) (*models.RefreshToken, error)
	RevokeRefreshToken(token string) error
}

// WelcomeMailer sends the post-registration email. Implemented by
// EmailService; delivery failures never fail registration.
type WelcomeMailer interface {
	SendWelcomeEmail(ctx context.Context, toEmail, name string) error
}

// TokenPair is what a successful login or refresh hands back: a short-lived
// JWT access token and a single-use refresh token.
type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
}

// AuthService handles registration, login, token refresh and OAuth login.
type AuthService struct {
	users      UserStore
	issuer     *security.TokenIssuer
	refreshTTL time.Duration
	mailer     WelcomeMailer
}

// NewAuthService creates a new auth service
func NewAuthService(users UserStore, issuer *security.TokenIssuer, refreshTTL time.Duration, mailer WelcomeMailer) *AuthService {
	return &AuthService{
		users:      users,
		issuer:     issuer,
		refreshTTL: refreshTTL,
		mailer:     mailer,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName("name", name); err != nil {
		return nil, err
	}

	existing, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.CreateUser(email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			slog.Warn("failed to send welcome email", "email", user.Email, "error", err)
		}
	}

	return user, nil
}

// Login authenticates a user and issues a token pair.
func (s *AuthService) Login(email, password string) (*TokenPair, *models.User, error) {
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued. A revoked or expired token yields ErrInvalidToken.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, *models.User, error) {
	stored, err := s.users.GetRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if stored == nil || stored.Revoked || stored.IsExpired() {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(stored.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidToken
	}

	if err := s.users.RevokeRefreshToken(refreshToken); err != nil {
		return nil, nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Logout revokes a refresh token. The access token simply ages out.
func (s *AuthService) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.users.RevokeRefreshToken(refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate validates a bearer access token and resolves its user.
func (s *AuthService) Authenticate(accessToken string) (*models.User, error) {
	claims, err := s.issuer.Validate(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// OAuthLogin finds or creates the account bound to an OAuth identity and
// issues a token pair. Accounts created this way get a random password hash
// so password login stays closed for them.
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (*TokenPair, *models.User, error) {
	if subject == "" || email == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByOAuthSubject(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up oauth user: %w", err)
	}
	if user == nil {
		// An existing password account with the same email keeps its
		// identity; we do not silently link providers.
		existing, err := s.users.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return nil, nil, ErrEmailTaken
		}

		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		random, err := security.GenerateToken()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate placeholder password: %w", err)
		}
		passwordHash, err := security.HashPassword(random)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash placeholder password: %w", err)
		}
		user, err = s.users.CreateOAuthUser(email, name, provider, subject, passwordHash)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	access, accessExpiry, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, err := security.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	if err := s.users.CreateRefreshToken(refresh, user.ID, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:     access,
		AccessExpiresAt: accessExpiry,
		RefreshToken:    refresh,
	}, nil
}
