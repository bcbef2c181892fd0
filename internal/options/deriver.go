// Package options turns scraped option records into product_options rows.
package options

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/maltedev/product-options-crawler/internal/models"
	"github.com/maltedev/product-options-crawler/internal/sqlbatch"
)

var (
	ErrNoData         = sqlbatch.ErrNoData
	ErrRejected       = errors.New("option rejected")
	ErrNoValidOptions = errors.New("no valid options")
)

// Policy selects how records are validated and how stock is derived.
type Policy string

const (
	// Strict drops records with failed name/price extraction and zeroes
	// the current stock of sold-out options.
	Strict Policy = "strict"
	// Permissive accepts every record, coercing bad prices to 0. Sold-out
	// options still receive a random current stock.
	Permissive Policy = "permissive"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Strict, Permissive:
		return p, nil
	default:
		return "", fmt.Errorf("unknown option policy: %q", s)
	}
}

type Deriver struct {
	policy Policy
	rng    *rand.Rand
	logger *slog.Logger
}

// NewDeriver creates a deriver. A nil rng uses a randomly seeded source.
func NewDeriver(policy Policy, rng *rand.Rand, logger *slog.Logger) *Deriver {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{
		policy: policy,
		rng:    rng,
		logger: logger.With("component", "options", "policy", string(policy)),
	}
}

func (d *Deriver) Policy() Policy {
	return d.policy
}

// Derive converts one record. Only the strict policy can return ErrRejected.
func (d *Deriver) Derive(productID int64, rec models.RawOption, displayOrder int) (models.OptionRow, error) {
	if d.policy == Strict {
		if reason := Validate(rec); reason != "" {
			return models.OptionRow{}, fmt.Errorf("%w: %s", ErrRejected, reason)
		}
	}

	name := rec.Name
	if name == "" && d.policy == Permissive {
		name = models.MissingOptionName
	}

	selling, ok := parsePrice(rec.Price)
	if !ok {
		if d.policy == Strict {
			return models.OptionRow{}, fmt.Errorf("%w: unparsable price %q", ErrRejected, rec.Price)
		}
		selling = 0
	}

	row := models.OptionRow{
		ProductID:     productID,
		OptionName:    sqlbatch.Escape(name),
		PurchasePrice: selling / 2,
		SellingPrice:  selling,
		SafetyStock:   models.SafetyStock,
		ImageURL:      sqlbatch.Escape(rec.ImageURL),
		DisplayOrder:  displayOrder,
		IsDeleted:     rec.IsSoldOut,
	}
	row.CurrentStock, row.InitialStock = d.stock(rec.IsSoldOut)

	return row, nil
}

// DeriveAll converts every record of one product. display_order counts
// accepted records only, starting at 0 for each call.
func (d *Deriver) DeriveAll(productID int64, records []models.RawOption) ([]models.OptionRow, []models.Rejection, error) {
	if len(records) == 0 {
		return nil, nil, ErrNoData
	}

	rows := make([]models.OptionRow, 0, len(records))
	var rejections []models.Rejection

	for i, rec := range records {
		row, err := d.Derive(productID, rec, len(rows))
		if err != nil {
			rej := models.Rejection{Index: i, Name: displayName(rec.Name), Reason: err.Error()}
			rejections = append(rejections, rej)
			d.logger.Warn("skipping invalid option", "product_id", productID, "index", i, "name", rej.Name, "reason", rej.Reason)
			continue
		}

		d.logger.Debug("option derived",
			"product_id", productID,
			"display_order", row.DisplayOrder,
			"name", rec.Name,
			"selling_price", row.SellingPrice,
			"current_stock", row.CurrentStock,
			"sold_out", row.IsDeleted,
		)
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, rejections, fmt.Errorf("%w: %d of %d options rejected", ErrNoValidOptions, len(rejections), len(records))
	}

	return rows, rejections, nil
}

// Validate returns the reason a record fails the strict filter, or "".
func Validate(rec models.RawOption) string {
	switch {
	case rec.Name == "":
		return "missing name"
	case rec.Name == models.NameExtractionFailed:
		return "name extraction failed"
	case rec.Price == "":
		return "missing price"
	case rec.Price == models.PriceExtractionFailed:
		return "price extraction failed"
	}
	return ""
}

func (d *Deriver) stock(soldOut bool) (current, initial int) {
	if soldOut && d.policy == Strict {
		return 0, d.randomInt(50, 100)
	}
	current = d.randomInt(50, 150)
	return current, current + d.randomInt(0, 50)
}

// randomInt returns an int in [lo, hi].
func (d *Deriver) randomInt(lo, hi int) int {
	return lo + d.rng.IntN(hi-lo+1)
}

func parsePrice(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func displayName(name string) string {
	if name == "" {
		return "N/A"
	}
	return name
}
