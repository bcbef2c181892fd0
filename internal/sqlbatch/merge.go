package sqlbatch

import (
	"errors"
	"strings"

	"github.com/maltedev/product-options-crawler/internal/models"
)

// ErrNoData is returned when there is nothing to write.
var ErrNoData = errors.New("nothing to write")

// Merge returns the full new content of a batch file after adding tuples.
// When existing holds the table's statement it is reopened and extended;
// otherwise the result is a fresh statement that replaces existing entirely.
func Merge(existing string, table Table, tuples []Tuple) (string, error) {
	if len(tuples) == 0 {
		return "", ErrNoData
	}

	rendered := make([]string, len(tuples))
	for i, t := range tuples {
		rendered[i] = t.String()
	}

	if stmt, ok := Parse(existing, table); ok {
		return stmt.Extend(rendered), nil
	}

	var b strings.Builder
	b.WriteString(table.Header())
	b.WriteString(strings.Join(rendered, ",\n"))
	b.WriteString(";\n\n")
	return b.String(), nil
}

// MergeOptions folds option rows into a product_options batch.
func MergeOptions(existing string, rows []models.OptionRow) (string, error) {
	tuples := make([]Tuple, len(rows))
	for i, row := range rows {
		tuples[i] = OptionTuple(row)
	}
	return Merge(existing, ProductOptions, tuples)
}

// MergeProducts folds product rows into a products batch.
func MergeProducts(existing string, rows []models.ProductRow) (string, error) {
	tuples := make([]Tuple, len(rows))
	for i, row := range rows {
		tuples[i] = ProductTuple(row)
	}
	return Merge(existing, Products, tuples)
}

// OptionTuple renders a row whose string fields are already escaped.
func OptionTuple(row models.OptionRow) Tuple {
	return Tuple{
		Int(row.ProductID),
		"'" + row.OptionName + "'",
		Int(int64(row.PurchasePrice)),
		Int(int64(row.SellingPrice)),
		Int(int64(row.CurrentStock)),
		Int(int64(row.InitialStock)),
		Int(int64(row.SafetyStock)),
		"'" + row.ImageURL + "'",
		Int(int64(row.DisplayOrder)),
		Bool(row.IsDeleted),
		Now,
		Now,
	}
}

func ProductTuple(row models.ProductRow) Tuple {
	brand := Null
	if row.BrandID != nil {
		brand = Int(*row.BrandID)
	}
	return Tuple{
		Int(row.ProductID),
		brand,
		Quote(row.CategoryName),
		Quote(row.ProductName),
		Now,
		Now,
	}
}
