// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string

	players  *table[models.Player]
	sessions *table[models.PlaySession]
	payments *paymentTable
	users    *userTable
	revoked  *revocationTable
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver; writers wait instead of failing with SQLITE_BUSY
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return newStore(db, dbPath), nil
}

// newStore wraps an open database without touching its schema.
func newStore(db *sql.DB, path string) *SQLiteStore {
	return &SQLiteStore{
		db:       db,
		path:     path,
		players:  &table[models.Player]{db: db, m: playerMapper},
		sessions: &table[models.PlaySession]{db: db, m: sessionMapper},
		payments: &paymentTable{table[models.Payment]{db: db, m: paymentMapper}},
		users:    &userTable{table[models.User]{db: db, m: userMapper}},
		revoked:  &revocationTable{db: db, now: time.Now},
	}
}

// Players returns the player repository.
func (s *SQLiteStore) Players() storage.Repository[models.Player] { return s.players }

// Sessions returns the play session repository. Lists are newest first.
func (s *SQLiteStore) Sessions() storage.Repository[models.PlaySession] { return s.sessions }

// Payments returns the payment repository.
func (s *SQLiteStore) Payments() storage.PaymentRepository { return s.payments }

// Users returns the staff account repository.
func (s *SQLiteStore) Users() storage.UserRepository { return s.users }

// Revocations returns the revoked login token list.
func (s *SQLiteStore) Revocations() storage.RevocationRepository { return s.revoked }

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database to w. VACUUM INTO
// reads inside a single transaction, so writes made during the download
// cannot tear the copy.
func (s *SQLiteStore) Snapshot(ctx context.Context, w io.Writer) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.db")
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", tmpPath); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy snapshot: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type paymentTable struct {
	table[models.Payment]
}

// ListByPlayer returns a player's payments, newest first.
func (t *paymentTable) ListByPlayer(ctx context.Context, playerID int64) ([]models.Payment, error) {
	return t.query(ctx, t.selectSQL()+" WHERE player_id = ? ORDER BY date DESC, id DESC", playerID)
}

type userTable struct {
	table[models.User]
}

// GetByUsername looks a user up by exact, case-sensitive username.
func (t *userTable) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := t.m.scan(t.db.QueryRowContext(ctx, t.selectSQL()+" WHERE username = ?", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

type revocationTable struct {
	db  *sql.DB
	now func() time.Time
}

// Revoke stores tokenID and drops entries whose tokens have expired anyway.
func (t *revocationTable) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if _, err := t.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO revoked_token (token_id, expires_at) VALUES (?, ?)",
		tokenID, expiresAt.Unix(),
	); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if _, err := t.db.ExecContext(ctx, "DELETE FROM revoked_token WHERE expires_at < ?", t.now().Unix()); err != nil {
		return fmt.Errorf("failed to purge revoked tokens: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID is on the list.
func (t *revocationTable) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var one int
	err := t.db.QueryRowContext(ctx, "SELECT 1 FROM revoked_token WHERE token_id = ?", tokenID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return true, nil
}
