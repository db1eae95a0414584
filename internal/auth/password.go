package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyCredentials   = errors.New("username and password are required")
)

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	users storage.UserRepository
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(users storage.UserRepository) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		users: users,
		cost:  bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost, mostly to keep tests fast.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// Authenticate checks username and password against the user table.
// Usernames match exactly. Unknown users still pay for a hash comparison so
// response time does not reveal which usernames exist.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, credential string) (Identity, error) {
	if username == "" || credential == "" {
		return Identity{}, ErrInvalidCredentials
	}

	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		bcrypt.CompareHashAndPassword(a.dummy(), []byte(credential))
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UserID: user.ID, Username: user.Username}, nil
}

// EnsureUser creates the account if no user with that username exists.
// It reports whether a user was created. Existing passwords are left alone.
func (a *PasswordAuthenticator) EnsureUser(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, ErrEmptyCredentials
	}

	_, err := a.users.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: string(hash)}
	if err := a.users.Create(ctx, user); err != nil {
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return true, nil
}

func (a *PasswordAuthenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), a.cost)
	})
	return a.dummyHash
}
