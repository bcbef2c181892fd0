// Package brands maps scraped brand names to brand ids.
package brands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
	"github.com/spf13/afero"
)

var ErrNoBrands = errors.New("no brands to write")

// Lookup resolves a brand name. ok is false when the brand is unknown.
type Lookup interface {
	BrandID(ctx context.Context, name string) (id int64, ok bool, err error)
}

type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

var Table = sqlbatch.Table{
	Name: "brands",
	ColumnLines: [][]string{
		{"brand_id", "brand_name"},
		{"created_at", "updated_at"},
	},
}

// FileLookup serves lookups from brand_data.json.
type FileLookup struct {
	brands []Brand
	byName map[string]int64
}

func LoadFile(fs afero.Fs, path string) (*FileLookup, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read brand data: %w", err)
	}

	var list []Brand
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse brand data: %w", err)
	}

	return NewFileLookup(list), nil
}

func NewFileLookup(list []Brand) *FileLookup {
	l := &FileLookup{
		brands: list,
		byName: make(map[string]int64, len(list)),
	}
	for _, b := range list {
		l.byName[normalize(b.Name)] = b.ID
	}
	return l
}

func (l *FileLookup) BrandID(_ context.Context, name string) (int64, bool, error) {
	id, ok := l.byName[normalize(name)]
	return id, ok, nil
}

func (l *FileLookup) Brands() []Brand {
	out := append([]Brand(nil), l.brands...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GenerateSQL renders the brands as one INSERT batch.
func GenerateSQL(list []Brand) (string, error) {
	if len(list) == 0 {
		return "", ErrNoBrands
	}

	tuples := make([]sqlbatch.Tuple, len(list))
	for i, b := range list {
		tuples[i] = sqlbatch.Tuple{
			sqlbatch.Int(b.ID),
			sqlbatch.Quote(b.Name),
			sqlbatch.Now,
			sqlbatch.Now,
		}
	}
	return sqlbatch.Merge("", Table, tuples)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
