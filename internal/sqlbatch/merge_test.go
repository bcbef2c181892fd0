package sqlbatch

import (
	"strings"
	"testing"

	"github.com/maltedev/product-options-crawler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optionRow(productID int64, name string, price int, order int) models.OptionRow {
	return models.OptionRow{
		ProductID:     productID,
		OptionName:    Escape(name),
		PurchasePrice: price / 2,
		SellingPrice:  price,
		CurrentStock:  120,
		InitialStock:  130,
		SafetyStock:   models.SafetyStock,
		ImageURL:      "",
		DisplayOrder:  order,
	}
}

func TestMergeOptions_FreshFile(t *testing.T) {
	content, err := MergeOptions("", []models.OptionRow{optionRow(42, "Red", 1000, 0)})
	require.NoError(t, err)

	expected := "INSERT INTO product_options\n" +
		"(product_id, option_name, purchase_price, selling_price,\n" +
		" current_stock, initial_stock, safety_stock,\n" +
		" image_url, display_order,\n" +
		" is_deleted, created_at, updated_at)\n" +
		"VALUES\n" +
		"(42, 'Red', 500, 1000, 120, 130, 10, '', 0, false, NOW(), NOW());\n\n"
	assert.Equal(t, expected, content)

	sum := Inspect(content, ProductOptions)
	assert.True(t, sum.WellFormed())
	assert.Equal(t, 1, sum.Tuples)
}

func TestMergeOptions_ExtendsCommittedStatement(t *testing.T) {
	first, err := MergeOptions("", []models.OptionRow{optionRow(1, "Red", 1000, 0)})
	require.NoError(t, err)

	second, err := MergeOptions(first, []models.OptionRow{optionRow(2, "Blue", 2000, 0)})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(second, strings.TrimSuffix(strings.TrimSpace(first), ";")+",\n"))
	assert.True(t, strings.HasSuffix(second, "(2, 'Blue', 1000, 2000, 120, 130, 10, '', 0, false, NOW(), NOW());\n\n"))

	sum := Inspect(second, ProductOptions)
	assert.Equal(t, 2, sum.Tuples)
	assert.Equal(t, 1, sum.Terminators)
	assert.Equal(t, 1, strings.Count(second, ProductOptions.Sentinel()))
}

func TestMerge_TupleCountAccumulates(t *testing.T) {
	content := ""
	total := 0
	for batch := 1; batch <= 5; batch++ {
		rows := make([]models.OptionRow, batch)
		for i := range rows {
			rows[i] = optionRow(int64(batch), "opt", 100*i, i)
		}

		var err error
		content, err = MergeOptions(content, rows)
		require.NoError(t, err)
		total += batch

		sum := Inspect(content, ProductOptions)
		assert.Equal(t, total, sum.Tuples)
		assert.Equal(t, 1, sum.Terminators)
		assert.True(t, strings.HasSuffix(content, ";\n\n"))
	}
}

func TestMerge_SameRowsTwiceDoublesTuples(t *testing.T) {
	rows := []models.OptionRow{optionRow(7, "A", 10, 0), optionRow(7, "B", 20, 1)}

	once, err := MergeOptions("", rows)
	require.NoError(t, err)
	twice, err := MergeOptions(once, rows)
	require.NoError(t, err)

	assert.Equal(t, 4, Inspect(twice, ProductOptions).Tuples)
}

func TestMerge_EmptyRows(t *testing.T) {
	_, err := MergeOptions("existing", nil)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = Merge("", Products, []Tuple{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMerge_ContentWithoutHeaderIsReplaced(t *testing.T) {
	content, err := MergeOptions("-- notes\n", []models.OptionRow{optionRow(3, "Only", 10, 0)})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(content, "INSERT INTO product_options\n"))
	assert.NotContains(t, content, "-- notes")
}

func TestMerge_UnterminatedTailIsKept(t *testing.T) {
	broken := ProductOptions.Header() + "(1, 'x', 0, 0, 1, 1, 10, '', 0, false, NOW(), NOW())"

	content, err := MergeOptions(broken, []models.OptionRow{optionRow(2, "y", 10, 0)})
	require.NoError(t, err)

	// No comma is inserted between the old tail and the new tuple.
	assert.Equal(t, broken+"\n(2, 'y', 5, 10, 120, 130, 10, '', 0, false, NOW(), NOW());\n\n", content)
	assert.False(t, strings.Contains(content, "NOW()),\n(2"))
}

func TestMerge_TrailingWhitespaceAfterTerminator(t *testing.T) {
	existing := ProductOptions.Header() + "(1, 'x', 0, 0, 1, 1, 10, '', 0, false, NOW(), NOW());\n\n\n  \t\n"

	content, err := MergeOptions(existing, []models.OptionRow{optionRow(2, "y", 10, 0)})
	require.NoError(t, err)

	assert.Contains(t, content, "NOW()),\n(2, 'y'")
	assert.Equal(t, 1, Inspect(content, ProductOptions).Terminators)
}

func TestOptionTuple_QuotesEscaped(t *testing.T) {
	row := optionRow(5, "O'Brien's", 300, 2)
	row.ImageURL = Escape("https://img/it's.png")
	row.IsDeleted = true

	assert.Equal(t,
		"(5, 'O''Brien''s', 150, 300, 120, 130, 10, 'https://img/it''s.png', 2, true, NOW(), NOW())",
		OptionTuple(row).String())
}

func TestMergeProducts(t *testing.T) {
	brand := int64(17)
	content, err := MergeProducts("", []models.ProductRow{
		{ProductID: 1, BrandID: &brand, CategoryName: "스킨케어", ProductName: "Tom's Toner"},
		{ProductID: 2, CategoryName: "", ProductName: "No Brand"},
	})
	require.NoError(t, err)

	assert.Contains(t, content, "INSERT INTO products\n(product_id, brand_id,\n category_name, product_name,\n created_at, updated_at)\nVALUES\n")
	assert.Contains(t, content, "(1, 17, '스킨케어', 'Tom''s Toner', NOW(), NOW())")
	assert.Contains(t, content, "(2, NULL, '', 'No Brand', NOW(), NOW())")
}
