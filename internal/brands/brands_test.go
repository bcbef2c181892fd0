package brands

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLookup(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "brand_data.json", []byte(`[{"id":3,"name":"헤라"},{"id":1,"name":"AHC"}]`), 0644))

	l, err := LoadFile(fs, "brand_data.json")
	require.NoError(t, err)

	tests := []struct {
		name string
		id   int64
		ok   bool
	}{
		{"AHC", 1, true},
		{" ahc ", 1, true},
		{"헤라", 3, true},
		{"Unknown", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := l.BrandID(context.Background(), tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}

	assert.Equal(t, []Brand{{ID: 1, Name: "AHC"}, {ID: 3, Name: "헤라"}}, l.Brands())
}

func TestLoadFile_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadFile(fs, "missing.json")
	assert.ErrorContains(t, err, "failed to read brand data")

	require.NoError(t, afero.WriteFile(fs, "bad.json", []byte(`{`), 0644))
	_, err = LoadFile(fs, "bad.json")
	assert.ErrorContains(t, err, "failed to parse brand data")
}

func TestGenerateSQL(t *testing.T) {
	sql, err := GenerateSQL([]Brand{{ID: 1, Name: "AHC"}, {ID: 2, Name: "L'Oreal"}})
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO brands\n(brand_id, brand_name,\n created_at, updated_at)\nVALUES\n"+
		"(1, 'AHC', NOW(), NOW()),\n(2, 'L''Oreal', NOW(), NOW());\n\n", sql)

	_, err = GenerateSQL(nil)
	assert.ErrorIs(t, err, ErrNoBrands)
}
