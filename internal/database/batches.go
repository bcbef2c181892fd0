package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrAlreadyApplied = errors.New("batch already applied")
	ErrEmptyBatch     = errors.New("batch is empty")
)

const ledgerSchema = `
	CREATE TABLE IF NOT EXISTS batch_application (
		id          UUID PRIMARY KEY,
		file_name   TEXT NOT NULL,
		checksum    TEXT NOT NULL UNIQUE,
		row_count   BIGINT NOT NULL,
		applied_at  TIMESTAMPTZ NOT NULL
	)`

// Application is one batch file executed against the database.
type Application struct {
	ID        uuid.UUID `db:"id"`
	FileName  string    `db:"file_name"`
	Checksum  string    `db:"checksum"`
	Rows      int64     `db:"row_count"`
	AppliedAt time.Time `db:"applied_at"`
}

func (db *DB) EnsureLedger(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("failed to create batch ledger: %w", err)
	}
	return nil
}

// ApplyBatch executes a batch file and records its checksum in the same
// transaction, so a file with identical content is only ever applied once.
func (db *DB) ApplyBatch(ctx context.Context, fileName, content string) (*Application, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyBatch
	}

	app := &Application{
		ID:       uuid.New(),
		FileName: fileName,
		Checksum: Checksum(content),
	}

	err := db.Transaction(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM batch_application WHERE checksum = $1)`,
			app.Checksum,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check batch ledger: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyApplied, fileName)
		}

		tag, err := tx.Exec(ctx, content)
		if err != nil {
			return fmt.Errorf("failed to execute batch: %w", err)
		}
		app.Rows = tag.RowsAffected()
		app.AppliedAt = time.Now()

		_, err = tx.Exec(ctx, `
			INSERT INTO batch_application (id, file_name, checksum, row_count, applied_at)
			VALUES ($1, $2, $3, $4, $5)`,
			app.ID, app.FileName, app.Checksum, app.Rows, app.AppliedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to record batch: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return app, nil
}

func (db *DB) Applications(ctx context.Context) ([]Application, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, file_name, checksum, row_count, applied_at
		FROM batch_application
		ORDER BY applied_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	apps, err := pgx.CollectRows(rows, pgx.RowToStructByName[Application])
	if err != nil {
		return nil, fmt.Errorf("failed to scan batches: %w", err)
	}
	return apps, nil
}

// Checksum identifies a batch by content, ignoring trailing whitespace.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimRight(content, " \t\r\n")))
	return hex.EncodeToString(sum[:])
}
