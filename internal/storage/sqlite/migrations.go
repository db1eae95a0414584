package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// schema sets up the database on startup. Table names match the files
// written by the first version of the app; upgradeLegacyUsers converts the
// one column that differs. Foreign keys are declared but not enforced:
// deleting a player keeps its sessions and payments.
const schema = `
CREATE TABLE IF NOT EXISTS player (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    level TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL,
    price REAL NOT NULL,
    players TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS payment (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    player_id INTEGER NOT NULL,
    amount REAL NOT NULL,
    date TEXT NOT NULL,
    FOREIGN KEY (player_id) REFERENCES player(id)
);

CREATE TABLE IF NOT EXISTS user (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_token (
    token_id TEXT PRIMARY KEY,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_date ON session(date);
CREATE INDEX IF NOT EXISTS idx_payment_player_id ON payment(player_id);
CREATE INDEX IF NOT EXISTS idx_revoked_token_expires_at ON revoked_token(expires_at);
`

// runMigrations executes the schema setup.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return upgradeLegacyUsers(ctx, db, bcrypt.DefaultCost)
}

// tableColumns returns the column names of table.
func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// upgradeLegacyUsers replaces the plaintext password column of old
// databases with bcrypt hashes of the same passwords. It runs in one
// transaction and is a no-op once the column is gone.
func upgradeLegacyUsers(ctx context.Context, db *sql.DB, cost int) error {
	cols, err := tableColumns(ctx, db, "user")
	if err != nil {
		return fmt.Errorf("failed to inspect user table: %w", err)
	}
	if !cols["password"] {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !cols["password_hash"] {
		if _, err := tx.ExecContext(ctx, "ALTER TABLE user ADD COLUMN password_hash TEXT NOT NULL DEFAULT ''"); err != nil {
			return fmt.Errorf("failed to add password_hash: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx, "SELECT id, password FROM user")
	if err != nil {
		return fmt.Errorf("failed to read legacy passwords: %w", err)
	}
	plain := make(map[int64]string)
	for rows.Next() {
		var id int64
		var password string
		if err := rows.Scan(&id, &password); err != nil {
			rows.Close()
			return err
		}
		plain[id] = password
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for id, password := range plain {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return fmt.Errorf("failed to hash password of user %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE user SET password_hash = ? WHERE id = ?", string(hash), id); err != nil {
			return fmt.Errorf("failed to store hash of user %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "ALTER TABLE user DROP COLUMN password"); err != nil {
		return fmt.Errorf("failed to drop plaintext passwords: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("Hashed legacy plaintext passwords", "users", len(plain))
	return nil
}
