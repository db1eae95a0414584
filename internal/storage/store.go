// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mmynk/futsalon/internal/models"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// Entity is implemented by every persisted model.
type Entity interface {
	models.Player | models.PlaySession | models.Payment | models.User
}

// Repository is the generic create/read/update/delete contract for one
// record type. Ids are assigned by the store on Create.
type Repository[T Entity] interface {
	// Create inserts rec and sets its ID.
	Create(ctx context.Context, rec *T) error

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id int64) (*T, error)

	// List returns every record in the table's natural order.
	List(ctx context.Context) ([]T, error)

	// Update overwrites the stored record with rec.ID, or returns ErrNotFound.
	Update(ctx context.Context, rec *T) error

	// Delete removes the record permanently, or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error
}

// PaymentRepository adds player lookups to the payment table.
type PaymentRepository interface {
	Repository[models.Payment]

	// ListByPlayer returns a player's payments, newest first.
	ListByPlayer(ctx context.Context, playerID int64) ([]models.Payment, error)
}

// UserRepository adds username lookups to the user table.
type UserRepository interface {
	Repository[models.User]

	// GetByUsername returns the user with exactly this username, or ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// RevocationRepository remembers login tokens that were ended before they
// expired.
type RevocationRepository interface {
	// Revoke records tokenID as unusable until expiresAt. Entries that have
	// already expired may be purged.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error

	// IsRevoked reports whether tokenID was revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Store bundles the repositories of the application.
// This abstraction allows swapping storage backends without changing the
// handlers that depend on it.
type Store interface {
	Players() Repository[models.Player]
	Sessions() Repository[models.PlaySession]
	Payments() PaymentRepository
	Users() UserRepository
	Revocations() RevocationRepository

	// Snapshot writes a consistent copy of the whole database to w.
	Snapshot(ctx context.Context, w io.Writer) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
