// Package verify replays batch files into an in-memory SQLite database to
// prove they execute.
package verify

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
	sqlite "modernc.org/sqlite"
)

var ErrMalformed = errors.New("batch file does not execute")

var registerFuncs = sync.OnceValue(func() error {
	return sqlite.RegisterScalarFunction("now", 0, now)
})

type Report struct {
	Table   string           `json:"table"`
	Rows    int              `json:"rows"`
	Summary sqlbatch.Summary `json:"summary"`
}

// Verify executes content against a scratch database that has table's
// columns and a NOW() function, then counts the inserted rows.
func Verify(ctx context.Context, content string, table sqlbatch.Table) (*Report, error) {
	report := &Report{
		Table:   table.Name,
		Summary: sqlbatch.Inspect(content, table),
	}
	if strings.TrimSpace(content) == "" {
		return report, nil
	}

	if err := registerFuncs(); err != nil {
		return nil, fmt.Errorf("failed to register sqlite functions: %w", err)
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, Schema(table)); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.ExecContext(ctx, content); err != nil {
		return report, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table.Name).Scan(&report.Rows); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	return report, nil
}

// Schema renders an untyped CREATE TABLE for table.
func Schema(table sqlbatch.Table) string {
	return fmt.Sprintf("CREATE TABLE %s (%s)", table.Name, strings.Join(table.Columns(), ", "))
}

func now(_ *sqlite.FunctionContext, _ []driver.Value) (driver.Value, error) {
	return time.Now().UTC().Format("2006-01-02 15:04:05"), nil
}
