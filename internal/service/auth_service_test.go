package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestBlacklist(t *testing.T) *TokenBlacklist {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewTokenBlacklist(client, zap.NewNop())
}

func newTestAuthService(t *testing.T) (AuthService, *mockUserRepository, *mockSessionRepository) {
	t.Helper()

	userRepo := newMockUserRepository()
	sessionRepo := newMockSessionRepository()
	svc := NewAuthService(userRepo, sessionRepo, newTestBlacklist(t), "test-secret", 15*time.Minute, 7*24*time.Hour)
	return svc, userRepo, sessionRepo
}

func TestProperty_RegisterHashesPasswords(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("registration stores a bcrypt hash, never the plaintext", prop.ForAll(
		func(name, email, password string) bool {
			svc, userRepo, _ := newTestAuthService(t)

			user, tokens, err := svc.Register(context.Background(), name, email, password)
			if err != nil {
				t.Logf("FAIL: Register returned error: %v", err)
				return false
			}

			if tokens.AccessToken == "" || tokens.RefreshToken == "" {
				t.Logf("FAIL: Register did not issue a token pair")
				return false
			}

			stored := userRepo.users[email]
			if stored == nil {
				t.Logf("FAIL: User not stored")
				return false
			}
			if stored.PasswordHash == password {
				t.Logf("FAIL: Password stored as plaintext")
				return false
			}
			if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte(password)); err != nil {
				t.Logf("FAIL: Stored hash does not verify: %v", err)
				return false
			}

			if user.Role != "user" {
				t.Logf("FAIL: Expected default role user, got %s", user.Role)
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,12}`),
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.com`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "password123"); err != nil {
		t.Fatalf("First registration failed: %v", err)
	}

	_, _, err := svc.Register(ctx, "Ada Again", "ada@example.com", "different123")
	if err == nil || err.Error() != "Email already registered" {
		t.Fatalf("Expected duplicate email rejection, got: %v", err)
	}
}

func TestLogin_VerifiesCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "Ada", "ada@example.com", "password123"); err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	user, tokens, err := svc.Login(ctx, "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("Login with correct credentials failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("Unexpected user: %s", user.Email)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("Login did not issue a token pair")
	}

	if _, _, err := svc.Login(ctx, "ada@example.com", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials for wrong password, got: %v", err)
	}

	if _, _, err := svc.Login(ctx, "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Expected ErrInvalidCredentials for unknown email, got: %v", err)
	}
}

func TestRefresh_RotatesSession(t *testing.T) {
	svc, _, sessionRepo := newTestAuthService(t)
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	user, rotated, err := svc.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("Refresh returned wrong user: %s", user.Email)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("Refresh did not rotate the refresh token")
	}

	// The old token's session is retired; replaying it must fail
	if _, _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken replaying a rotated token, got: %v", err)
	}

	// The new token still works
	if _, _, err := svc.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("Refresh with rotated token failed: %v", err)
	}

	// Exactly one live session remains
	live := 0
	for _, session := range sessionRepo.sessions {
		if !session.Deleted {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("Expected 1 live session after rotations, got %d", live)
	}
}

func TestRefresh_RejectsGarbageToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	if _, _, err := svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestLogout_RetiresSessionAndBlacklistsAccessToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	// Access token is valid before logout
	if _, err := svc.ValidateAccessToken(ctx, tokens.AccessToken); err != nil {
		t.Fatalf("Access token invalid before logout: %v", err)
	}

	if err := svc.Logout(ctx, tokens.RefreshToken, tokens.AccessToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	// Refresh token no longer works
	if _, _, err := svc.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Expected ErrInvalidToken after logout, got: %v", err)
	}

	// Access token is revoked
	if _, err := svc.ValidateAccessToken(ctx, tokens.AccessToken); err == nil {
		t.Fatal("Expected access token to be rejected after logout")
	}
}

func TestValidateAccessToken_RejectsForgedToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, tokens, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	if err != nil {
		t.Fatalf("Registration failed: %v", err)
	}

	other := NewAuthService(newMockUserRepository(), newMockSessionRepository(),
		newTestBlacklist(t), "a-different-secret", 15*time.Minute, 7*24*time.Hour)

	if _, err := other.ValidateAccessToken(ctx, tokens.AccessToken); err == nil {
		t.Fatal("Expected token signed with another secret to be rejected")
	}
}
