package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"famledger/internal/models"
	"famledger/internal/security"
)

type fakeUserStore struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (f *fakeUserStore) CreateUser(email, passwordHash, name string) (*models.User, error) {
	f.nextID++
	u := &models.User{
		ID:           fmt.Sprintf("user-%d", f.nextID),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) CreateOAuthUser(email, name, provider, subject, passwordHash string) (*models.User, error) {
	u, err := f.CreateUser(email, passwordHash, name)
	if err != nil {
		return nil, err
	}
	u.OAuthProvider = provider
	u.OAuthSubject = subject
	return u, nil
}

func (f *fakeUserStore) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetUserByID(id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) GetUserByOAuthSubject(provider, subject string) (*models.User, error) {
	for _, u := range f.users {
		if u.OAuthProvider == provider && u.OAuthSubject == subject {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) CreateRefreshToken(token, userID string, expiresAt time.Time) error {
	f.tokens[token] = &models.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeUserStore) GetRefreshToken(token string) (*models.RefreshToken, error) {
	return f.tokens[token], nil
}

func (f *fakeUserStore) RevokeRefreshToken(token string) error {
	if t, ok := f.tokens[token]; ok {
		t.Revoked = true
	}
	return nil
}

func newTestAuth() (*AuthService, *fakeUserStore) {
	store := newFakeUserStore()
	issuer := security.NewTokenIssuer("test-secret", 15*time.Minute)
	return NewAuthService(store, issuer, 24*time.Hour, nil), store
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth()

	user, err := svc.Register(ctx, "maria@example.com", "password123", "Maria")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password must not be stored in plaintext")
	}

	if _, err := svc.Register(ctx, "maria@example.com", "password456", "Maria Again"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate register error = %v, want ErrEmailTaken", err)
	}
	if _, err := svc.Register(ctx, "bad-email", "password123", "Maria"); err == nil {
		t.Error("invalid email should be rejected")
	}
	if _, err := svc.Register(ctx, "other@example.com", "short", "Maria"); err == nil {
		t.Error("short password should be rejected")
	}

	pair, logged, err := svc.Login("maria@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("logged in as %q, want %q", logged.ID, user.ID)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("token pair should be populated")
	}

	if _, _, err := svc.Login("maria@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth()

	user, err := svc.Register(ctx, "maria@example.com", "password123", "Maria")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, _, err := svc.Login("maria@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	resolved, err := svc.Authenticate(pair.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("resolved %q, want %q", resolved.ID, user.ID)
	}

	if _, err := svc.Authenticate("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token error = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestAuth()

	if _, err := svc.Register(ctx, "maria@example.com", "password123", "Maria"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, _, err := svc.Login("maria@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, _, err := svc.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh should rotate the token")
	}

	// The old token is single-use.
	if _, _, err := svc.Refresh(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("reused token error = %v, want ErrInvalidToken", err)
	}

	// An expired token is rejected even if unrevoked.
	store.tokens[next.RefreshToken].ExpiresAt = time.Now().Add(-time.Minute)
	if _, _, err := svc.Refresh(next.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token error = %v, want ErrInvalidToken", err)
	}

	if _, _, err := svc.Refresh("unknown-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown token error = %v, want ErrInvalidToken", err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestAuth()

	if _, err := svc.Register(ctx, "maria@example.com", "password123", "Maria"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	pair, _, err := svc.Login("maria@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !store.tokens[pair.RefreshToken].Revoked {
		t.Error("logout should revoke the refresh token")
	}
	if err := svc.Logout(""); err != nil {
		t.Errorf("empty token logout should be a no-op, got %v", err)
	}
}

func TestOAuthLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuth()

	pair, user, err := svc.OAuthLogin("google", "sub-1", "maria@example.com", "")
	if err != nil {
		t.Fatalf("OAuthLogin: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("token pair should be populated")
	}
	if user.Name != "maria" {
		t.Errorf("name = %q, want the email local part", user.Name)
	}

	// Same identity logs into the same account.
	_, again, err := svc.OAuthLogin("google", "sub-1", "maria@example.com", "Maria")
	if err != nil {
		t.Fatalf("second OAuthLogin: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("second login resolved %q, want %q", again.ID, user.ID)
	}

	// A password account with the same email is never silently linked.
	if _, err := svc.Register(ctx, "joao@example.com", "password123", "João"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.OAuthLogin("google", "sub-2", "joao@example.com", "João"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("conflicting email error = %v, want ErrEmailTaken", err)
	}

	if _, _, err := svc.OAuthLogin("google", "", "x@example.com", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("missing subject error = %v, want ErrInvalidCredentials", err)
	}
}
