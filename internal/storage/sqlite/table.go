package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mmynk/futsalon/internal/storage"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// mapper describes how one model maps onto one table.
type mapper[T storage.Entity] struct {
	table   string
	columns []string // every column except id, in insert order
	orderBy string

	id     func(*T) int64
	setID  func(*T, int64)
	values func(*T) []any                // column values, same order as columns
	scan   func(rowScanner) (*T, error) // reads id followed by columns
}

// table implements storage.Repository for any mapped model.
type table[T storage.Entity] struct {
	db *sql.DB
	m  mapper[T]
}

func (t *table[T]) selectSQL() string {
	return fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(t.m.columns, ", "), t.m.table)
}

// Create inserts rec and sets its ID from the generated rowid.
func (t *table[T]) Create(ctx context.Context, rec *T) error {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)",
		t.m.table, strings.Join(t.m.columns, ", "), repeatPlaceholder(len(t.m.columns)-1))

	res, err := t.db.ExecContext(ctx, query, t.m.values(rec)...)
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", t.m.table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read %s id: %w", t.m.table, err)
	}
	t.m.setID(rec, id)
	return nil
}

// Get retrieves a record by id.
func (t *table[T]) Get(ctx context.Context, id int64) (*T, error) {
	rec, err := t.m.scan(t.db.QueryRowContext(ctx, t.selectSQL()+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %d: %w", t.m.table, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", t.m.table, err)
	}
	return rec, nil
}

// List retrieves every record.
func (t *table[T]) List(ctx context.Context) ([]T, error) {
	return t.query(ctx, t.selectSQL()+" ORDER BY "+t.m.orderBy)
}

func (t *table[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.m.table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		rec, err := t.m.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", t.m.table, err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", t.m.table, err)
	}
	return out, nil
}

// Update overwrites every column of the record with rec's id.
func (t *table[T]) Update(ctx context.Context, rec *T) error {
	assignments := make([]string, len(t.m.columns))
	for i, col := range t.m.columns {
		assignments[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.m.table, strings.Join(assignments, ", "))

	id := t.m.id(rec)
	args := append(t.m.values(rec), id)
	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.m.table, err)
	}
	return t.expectRow(res, id)
}

// Delete removes the record permanently.
func (t *table[T]) Delete(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.m.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", t.m.table, err)
	}
	return t.expectRow(res, id)
}

func (t *table[T]) expectRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", t.m.table, id, storage.ErrNotFound)
	}
	return nil
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building column lists with multiple placeholders.
func repeatPlaceholder(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(", ?", n)
}
