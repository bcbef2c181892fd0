// Package sqlbatch renders rows as SQL value tuples and folds them into the
// single multi-row INSERT statement a batch file holds.
package sqlbatch

import (
	"strconv"
	"strings"
)

// Table describes the INSERT statement a batch file accumulates.
// ColumnLines only controls how the column list is wrapped in the header.
type Table struct {
	Name        string
	ColumnLines [][]string
}

var ProductOptions = Table{
	Name: "product_options",
	ColumnLines: [][]string{
		{"product_id", "option_name", "purchase_price", "selling_price"},
		{"current_stock", "initial_stock", "safety_stock"},
		{"image_url", "display_order"},
		{"is_deleted", "created_at", "updated_at"},
	},
}

var Products = Table{
	Name: "products",
	ColumnLines: [][]string{
		{"product_id", "brand_id"},
		{"category_name", "product_name"},
		{"created_at", "updated_at"},
	},
}

// Sentinel is the substring that marks an existing statement for this table.
func (t Table) Sentinel() string {
	return "INSERT INTO " + t.Name
}

func (t Table) Columns() []string {
	var cols []string
	for _, line := range t.ColumnLines {
		cols = append(cols, line...)
	}
	return cols
}

// Header renders everything up to and including the VALUES keyword line.
func (t Table) Header() string {
	lines := make([]string, len(t.ColumnLines))
	for i, line := range t.ColumnLines {
		lines[i] = strings.Join(line, ", ")
	}

	var b strings.Builder
	b.WriteString(t.Sentinel())
	b.WriteString("\n(")
	b.WriteString(strings.Join(lines, ",\n "))
	b.WriteString(")\nVALUES\n")
	return b.String()
}

// Tuple is one parenthesized VALUES entry, already rendered as SQL literals.
type Tuple []string

func (t Tuple) String() string {
	return "(" + strings.Join(t, ", ") + ")"
}

// Quote doubles embedded single quotes and wraps s in a SQL string literal.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}

// Escape doubles embedded single quotes without adding the surrounding quotes.
func Escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func Int(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Bool renders a bare SQL boolean literal.
func Bool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

const (
	Null = "NULL"
	Now  = "NOW()"
)
