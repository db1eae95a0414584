package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/futsalon/internal/models"
	"github.com/mmynk/futsalon/internal/roster"
	"github.com/mmynk/futsalon/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { store.Close() })
	return store
}

func date(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPlayers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	players := store.Players()

	t.Run("Create assigns increasing ids", func(t *testing.T) {
		a := &models.Player{Name: "Ali", Level: models.LevelPermanent}
		b := &models.Player{Name: "Reza", Level: models.LevelGuest}
		require.NoError(t, players.Create(ctx, a))
		require.NoError(t, players.Create(ctx, b))

		assert.NotZero(t, a.ID)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("Get returns stored fields", func(t *testing.T) {
		p := &models.Player{Name: "Sara", Level: models.LevelNormal}
		require.NoError(t, players.Create(ctx, p))

		got, err := players.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	})

	t.Run("Update overwrites", func(t *testing.T) {
		p := &models.Player{Name: "Old", Level: models.LevelGuest}
		require.NoError(t, players.Create(ctx, p))

		p.Name = "New"
		p.Level = models.LevelPermanent
		require.NoError(t, players.Update(ctx, p))

		got, err := players.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Name)
		assert.Equal(t, models.LevelPermanent, got.Level)
	})

	t.Run("Delete is permanent and ids are not reused", func(t *testing.T) {
		p := &models.Player{Name: "Gone", Level: models.LevelGuest}
		require.NoError(t, players.Create(ctx, p))
		require.NoError(t, players.Delete(ctx, p.ID))

		_, err := players.Get(ctx, p.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		next := &models.Player{Name: "Next", Level: models.LevelGuest}
		require.NoError(t, players.Create(ctx, next))
		assert.Greater(t, next.ID, p.ID)
	})

	t.Run("missing ids report ErrNotFound", func(t *testing.T) {
		_, err := players.Get(ctx, 9999)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = players.Update(ctx, &models.Player{ID: 9999, Name: "x", Level: models.LevelGuest})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, players.Delete(ctx, 9999), storage.ErrNotFound)
	})

	t.Run("List is ordered by id", func(t *testing.T) {
		list, err := players.List(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, list)
		for i := 1; i < len(list); i++ {
			assert.Less(t, list[i-1].ID, list[i].ID)
		}
	})
}

func TestSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sessions := store.Sessions()

	older := &models.PlaySession{Date: date("2025-01-10"), Price: 120.5, Players: roster.MustNew(3, 1, 2)}
	newer := &models.PlaySession{Date: date("2025-02-01"), Price: 90, Players: roster.MustNew()}
	require.NoError(t, sessions.Create(ctx, older))
	require.NoError(t, sessions.Create(ctx, newer))

	t.Run("roster order survives storage", func(t *testing.T) {
		got, err := sessions.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 1, 2}, got.Players.IDs())
		assert.Equal(t, 120.5, got.Price)
		assert.True(t, got.Date.Equal(older.Date))
	})

	t.Run("empty roster is stored as an empty array", func(t *testing.T) {
		var raw string
		require.NoError(t, store.db.QueryRow("SELECT players FROM session WHERE id = ?", newer.ID).Scan(&raw))
		assert.Equal(t, "[]", raw)
	})

	t.Run("List is newest first", func(t *testing.T) {
		list, err := sessions.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, newer.ID, list[0].ID)
		assert.Equal(t, older.ID, list[1].ID)
	})

	t.Run("corrupt roster reads as empty", func(t *testing.T) {
		res, err := store.db.Exec("INSERT INTO session (date, price, players) VALUES ('2024-12-01', 50, '{not json')")
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)

		got, err := sessions.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Players.Len())

		_, err = sessions.List(ctx)
		assert.NoError(t, err)
	})

	t.Run("datetime strings from older rows are accepted", func(t *testing.T) {
		res, err := store.db.Exec("INSERT INTO session (date, price, players) VALUES ('2024-11-05 00:00:00', 10, '[1]')")
		require.NoError(t, err)
		id, _ := res.LastInsertId()

		got, err := sessions.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "2024-11-05", got.Date.Format(models.DateLayout))
	})

	t.Run("Update replaces roster", func(t *testing.T) {
		older.Players = roster.MustNew(5)
		require.NoError(t, sessions.Update(ctx, older))

		got, err := sessions.Get(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{5}, got.Players.IDs())
	})
}

func TestPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	payments := store.Payments()

	require.NoError(t, payments.Create(ctx, &models.Payment{PlayerID: 1, Amount: 40, Date: date("2025-01-01")}))
	require.NoError(t, payments.Create(ctx, &models.Payment{PlayerID: 2, Amount: 15, Date: date("2025-01-02")}))
	require.NoError(t, payments.Create(ctx, &models.Payment{PlayerID: 1, Amount: -5, Date: date("2025-01-03")}))

	t.Run("payments for unknown players are accepted", func(t *testing.T) {
		p := &models.Payment{PlayerID: 777, Amount: 1, Date: date("2025-01-04")}
		assert.NoError(t, payments.Create(ctx, p))
	})

	t.Run("ListByPlayer is newest first", func(t *testing.T) {
		list, err := payments.ListByPlayer(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, -5.0, list[0].Amount)
		assert.Equal(t, 40.0, list[1].Amount)
	})

	t.Run("ListByPlayer of nobody is empty, not nil", func(t *testing.T) {
		list, err := payments.ListByPlayer(ctx, 12345)
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("deleting a player keeps payments", func(t *testing.T) {
		p := &models.Player{Name: "Temp", Level: models.LevelGuest}
		require.NoError(t, store.Players().Create(ctx, p))
		require.NoError(t, payments.Create(ctx, &models.Payment{PlayerID: p.ID, Amount: 9, Date: date("2025-01-05")}))
		require.NoError(t, store.Players().Delete(ctx, p.ID))

		list, err := payments.ListByPlayer(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	u := &models.User{Username: "admin", PasswordHash: "$2a$10$hash"}
	require.NoError(t, store.Users().Create(ctx, u))

	got, err := store.Users().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = store.Users().GetByUsername(ctx, "ADMIN")
	assert.ErrorIs(t, err, storage.ErrNotFound, "usernames are case-sensitive")

	assert.Error(t, store.Users().Create(ctx, &models.User{Username: "admin", PasswordHash: "x"}), "usernames are unique")
}

func TestSnapshotIsAReadableDatabase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Players().Create(ctx, &models.Player{Name: "A", Level: models.LevelNormal}))
	require.NoError(t, store.Sessions().Create(ctx, &models.PlaySession{
		Date: date("2025-02-01"), Price: 30, Players: roster.MustNew(1),
	}))

	var buf bytes.Buffer
	require.NoError(t, store.Snapshot(ctx, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("SQLite format 3")))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(store.path), ".snapshot-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temporary snapshot files are removed")

	copyPath := filepath.Join(t.TempDir(), "copy.db")
	require.NoError(t, os.WriteFile(copyPath, buf.Bytes(), 0o600))
	restored, err := New(copyPath)
	require.NoError(t, err)
	defer restored.Close()

	players, err := restored.Players().List(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "A", players[0].Name)

	sessions, err := restored.Sessions().List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, []int64{1}, sessions[0].Players.IDs())
}

func TestSnapshotDuringWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			p := &models.Player{Name: "W", Level: models.LevelGuest}
			if err := store.Players().Create(ctx, p); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 5; i++ {
		var buf bytes.Buffer
		require.NoError(t, store.Snapshot(ctx, &buf))

		copyPath := filepath.Join(t.TempDir(), "copy.db")
		require.NoError(t, os.WriteFile(copyPath, buf.Bytes(), 0o600))
		restored, err := New(copyPath)
		require.NoError(t, err)
		_, err = restored.Players().List(ctx)
		assert.NoError(t, err)
		require.NoError(t, restored.Close())
	}
	<-done
}

func TestRevocations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	revoked := store.Revocations()

	ok, err := revoked.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, revoked.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
	ok, err = revoked.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("revoking twice is fine", func(t *testing.T) {
		assert.NoError(t, revoked.Revoke(ctx, "abc", time.Now().Add(time.Hour)))
	})

	t.Run("expired entries are purged", func(t *testing.T) {
		require.NoError(t, revoked.Revoke(ctx, "old", time.Now().Add(-time.Hour)))
		ok, err := revoked.IsRevoked(ctx, "old")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = revoked.IsRevoked(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

// legacySchema is the layout written by the first version of the app,
// with plaintext passwords and DATE typed columns.
const legacySchema = `
CREATE TABLE player (id INTEGER NOT NULL, name VARCHAR NOT NULL, level VARCHAR NOT NULL, PRIMARY KEY (id));
CREATE TABLE session (id INTEGER NOT NULL, date DATE NOT NULL, price FLOAT NOT NULL, players VARCHAR NOT NULL, PRIMARY KEY (id));
CREATE TABLE payment (id INTEGER NOT NULL, player_id INTEGER NOT NULL, amount FLOAT NOT NULL, date DATE NOT NULL, PRIMARY KEY (id), FOREIGN KEY(player_id) REFERENCES player (id));
CREATE TABLE user (id INTEGER NOT NULL, username VARCHAR NOT NULL, password VARCHAR NOT NULL, PRIMARY KEY (id));
INSERT INTO player (id, name, level) VALUES (1, 'Ali', 'permanent');
INSERT INTO session (id, date, price, players) VALUES (1, '2024-05-01', 100.0, '[1]');
INSERT INTO payment (id, player_id, amount, date) VALUES (1, 1, 40.0, '2024-05-02');
INSERT INTO user (id, username, password) VALUES (1, 'admin', 'admin');
`

func TestLegacyDatabaseOpens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "database.db")
	ctx := context.Background()

	legacy, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(legacySchema)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	store, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	t.Run("plaintext passwords become hashes", func(t *testing.T) {
		u, err := store.Users().GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.NotEqual(t, "admin", u.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("admin")))

		cols, err := tableColumns(ctx, store.db, "user")
		require.NoError(t, err)
		assert.False(t, cols["password"], "plaintext column is dropped")
	})

	t.Run("old rows read back", func(t *testing.T) {
		sessions, err := store.Sessions().List(ctx)
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, "2024-05-01", sessions[0].Date.Format(models.DateLayout))
		assert.Equal(t, []int64{1}, sessions[0].Players.IDs())

		payments, err := store.Payments().ListByPlayer(ctx, 1)
		require.NoError(t, err)
		require.Len(t, payments, 1)
		assert.Equal(t, "2024-05-02", payments[0].Date.Format(models.DateLayout))
	})

	t.Run("new rows can be added", func(t *testing.T) {
		require.NoError(t, store.Users().Create(ctx, &models.User{Username: "staff", PasswordHash: "$2a$10$x"}))
		p := &models.Player{Name: "Reza", Level: models.LevelGuest}
		require.NoError(t, store.Players().Create(ctx, p))
		assert.Greater(t, p.ID, int64(1))
	})

	t.Run("reopening is a no-op", func(t *testing.T) {
		before, err := store.Users().GetByUsername(ctx, "admin")
		require.NoError(t, err)
		require.NoError(t, store.Close())

		reopened, err := New(dbPath)
		require.NoError(t, err)
		store = reopened

		after, err := store.Users().GetByUsername(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
	})
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	store, err := New(dbPath)
	require.NoError(t, err)
	p := &models.Player{Name: "Kept", Level: models.LevelNormal}
	require.NoError(t, store.Players().Create(ctx, p))
	require.NoError(t, store.Close())

	store, err = New(dbPath)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Players().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Name)
}
