package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to DATABASE_URL and skips when it is unset.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := New(context.Background(), Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestChecksum(t *testing.T) {
	a := Checksum("INSERT INTO t\nVALUES\n(1);\n\n")
	b := Checksum("INSERT INTO t\nVALUES\n(1);")
	c := Checksum("INSERT INTO t\nVALUES\n(2);")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestApplyBatch_Empty(t *testing.T) {
	var db DB
	_, err := db.ApplyBatch(context.Background(), "x.txt", " \n")
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestApplyBatch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	require.NoError(t, db.EnsureLedger(ctx))

	table := "batch_test_" + uuid.NewString()[:8]
	_, err := db.pool.Exec(ctx, "CREATE TABLE "+table+" (id INT, name TEXT, created_at TIMESTAMPTZ)")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.pool.Exec(ctx, "DROP TABLE "+table)
	})

	content := "INSERT INTO " + table + "\n(id, name, created_at)\nVALUES\n(1, 'a', NOW()),\n(2, 'O''Neil', NOW());\n\n"

	t.Run("applies once", func(t *testing.T) {
		app, err := db.ApplyBatch(ctx, "options.txt", content)
		require.NoError(t, err)
		assert.Equal(t, int64(2), app.Rows)
	})

	t.Run("rejects identical content", func(t *testing.T) {
		_, err := db.ApplyBatch(ctx, "options.txt", content)
		assert.ErrorIs(t, err, ErrAlreadyApplied)

		var count int
		require.NoError(t, db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 2, count)
	})

	t.Run("rolls back malformed batch", func(t *testing.T) {
		_, err := db.ApplyBatch(ctx, "broken.txt", "INSERT INTO "+table+" VALUES (3, 'c', NOW())\n(4, 'd', NOW());")
		assert.Error(t, err)

		var count int
		require.NoError(t, db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 2, count)
	})
}

func TestBrandID(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	var exists bool
	require.NoError(t, db.pool.QueryRow(ctx, "SELECT to_regclass('brands') IS NOT NULL").Scan(&exists))
	if !exists {
		t.Skip("brands table not present")
	}

	_, ok, err := db.BrandID(ctx, "no such brand "+uuid.NewString())
	require.NoError(t, err)
	assert.False(t, ok)
}
