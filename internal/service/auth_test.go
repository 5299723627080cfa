package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fsakai/autopost/internal/apperror"
	"github.com/fsakai/autopost/internal/auth"
)

// newTestAuthService wires an AuthService with fakes. Cost 4 is the bcrypt
// minimum, which keeps the hashing tests fast.
func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	repo := newFakeUserRepo()
	return NewAuthService(repo, passwords, tokens, testLogger()), repo
}

func TestSignup(t *testing.T) {
	svc, _ := newTestAuthService(t)

	user, token, err := svc.Signup(context.Background(), "Alice@Example.com", "password123", "Alice")
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if user.ID == "" {
		t.Error("user has no ID")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == "password123" || user.PasswordHash == "" {
		t.Error("password was not hashed")
	}
	if token == "" {
		t.Error("no session token issued")
	}
}

func TestSignup_InvalidEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, _, err := svc.Signup(context.Background(), email, "password123", "x")
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("email %q: error = %v, want ErrValidation", email, err)
		}
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, _, err := svc.Signup(context.Background(), "a@example.com", "short", "x")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)

	if _, _, err := svc.Signup(context.Background(), "a@example.com", "password123", "x"); err != nil {
		t.Fatalf("setup: Signup() error = %v", err)
	}

	_, _, err := svc.Signup(context.Background(), "a@example.com", "password456", "y")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuthService(t)
	svc.Signup(context.Background(), "a@example.com", "password123", "x")

	user, token, err := svc.Login(context.Background(), "a@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Email != "a@example.com" {
		t.Errorf("Email = %q", user.Email)
	}
	if token == "" {
		t.Error("no session token issued")
	}
}

// Wrong email and wrong password must be indistinguishable to the caller.
func TestLogin_BadCredentials(t *testing.T) {
	svc, _ := newTestAuthService(t)
	svc.Signup(context.Background(), "a@example.com", "password123", "x")

	_, _, errNoUser := svc.Login(context.Background(), "b@example.com", "password123")
	_, _, errBadPass := svc.Login(context.Background(), "a@example.com", "wrongpass123")

	for _, err := range []error{errNoUser, errBadPass} {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
	}
	if errNoUser.Error() != errBadPass.Error() {
		t.Errorf("messages differ: %q vs %q, must not reveal which accounts exist",
			errNoUser.Error(), errBadPass.Error())
	}
}
