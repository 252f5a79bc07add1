package sqlite_test

import (
	"context"
	"testing"

	"github.com/fwojciec/b2bsync/sqlite"
	"github.com/stretchr/testify/require"
)

func TestDB_Open(t *testing.T) {
	t.Parallel()

	t.Run("creates schema on first open", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB(":memory:")
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		// Verify tables exist by querying them
		ctx := context.Background()

		var count int
		err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
		require.NoError(t, err)
		require.Zero(t, count)

		version, err := db.SchemaVersion(ctx)
		require.NoError(t, err)
		require.Equal(t, 3, version)
	})

	t.Run("returns error for invalid path", func(t *testing.T) {
		t.Parallel()

		db := sqlite.NewDB("/nonexistent/path/db.sqlite")
		err := db.Open()
		require.Error(t, err)
	})

	t.Run("enables WAL mode for file-based databases", func(t *testing.T) {
		t.Parallel()

		dbPath := t.TempDir() + "/test.db"
		db := sqlite.NewDB(dbPath)
		err := db.Open()
		require.NoError(t, err)
		defer db.Close()

		ctx := context.Background()
		var journalMode string
		err = db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
		require.NoError(t, err)
		require.Equal(t, "wal", journalMode)
	})
}

func TestDB_Reopen(t *testing.T) {
	t.Parallel()

	dbPath := t.TempDir() + "/catalog.db"

	db := sqlite.NewDB(dbPath)
	require.NoError(t, db.Open())
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO products (id, code, name, scraped_at, updated_at)
		VALUES ('1', 'A', 'Valve', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db = sqlite.NewDB(dbPath)
	require.NoError(t, db.Open())
	defer db.Close()

	var count int
	err = db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM products").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestDB_RefusesNewerSchema(t *testing.T) {
	t.Parallel()

	dbPath := t.TempDir() + "/catalog.db"

	db := sqlite.NewDB(dbPath)
	require.NoError(t, db.Open())
	_, err := db.ExecContext(context.Background(), "PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db = sqlite.NewDB(dbPath)
	err = db.Open()
	require.Error(t, err)
	require.Contains(t, err.Error(), "newer than this program")
}
