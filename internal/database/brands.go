package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// BrandID resolves a brand name against the brands table, ignoring case and
// surrounding whitespace.
func (db *DB) BrandID(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`SELECT brand_id FROM brands WHERE lower(trim(brand_name)) = $1 LIMIT 1`,
		strings.ToLower(strings.TrimSpace(name)),
	).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up brand: %w", err)
	}
	return id, true, nil
}
