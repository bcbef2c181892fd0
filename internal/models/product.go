package models

import (
	"time"
)

const (
	// NameExtractionFailed is what the parser emits when an option name cannot be read
	NameExtractionFailed = "옵션명 추출 실패"
	// PriceExtractionFailed is what the parser emits when an option price cannot be read
	PriceExtractionFailed = "가격 추출 실패"
	// MissingOptionName replaces an absent name on the permissive path
	MissingOptionName = "옵션명 없음"

	// SafetyStock is written for every option row
	SafetyStock = 10
)

// RawOption is one product option as scraped. Empty strings mean the field was absent.
type RawOption struct {
	Name      string `json:"name"`
	Price     string `json:"price"`
	ImageURL  string `json:"image_url"`
	IsSoldOut bool   `json:"is_soldout"`
}

// OptionRow is a validated product_options row. String fields are already SQL-escaped.
type OptionRow struct {
	ProductID     int64  `json:"product_id"`
	OptionName    string `json:"option_name"`
	PurchasePrice int    `json:"purchase_price"`
	SellingPrice  int    `json:"selling_price"`
	CurrentStock  int    `json:"current_stock"`
	InitialStock  int    `json:"initial_stock"`
	SafetyStock   int    `json:"safety_stock"`
	ImageURL      string `json:"image_url"`
	DisplayOrder  int    `json:"display_order"`
	IsDeleted     bool   `json:"is_deleted"`
}

// ProductRow is a products row staged alongside the options of the same product.
type ProductRow struct {
	ProductID    int64  `json:"product_id"`
	BrandID      *int64 `json:"brand_id,omitempty"`
	CategoryName string `json:"category_name"`
	ProductName  string `json:"product_name"`
}

type ProductInfo struct {
	Category string `json:"category"`
	Brand    string `json:"brand"`
	Name     string `json:"name"`
}

// ProductPage is everything the scraper extracted from one detail page.
type ProductPage struct {
	URL       string      `json:"url"`
	GoodsNo   string      `json:"goods_no"`
	Info      ProductInfo `json:"info"`
	Options   []RawOption `json:"options"`
	ScrapedAt time.Time   `json:"scraped_at"`
}

// Rejection records why a raw option was dropped from a batch.
type Rejection struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Key identifies the page for duplicate detection.
func (p *ProductPage) Key() string {
	if p.GoodsNo != "" {
		return p.GoodsNo
	}
	return p.URL
}

func (i ProductInfo) Validate() []string {
	var errors []string

	if i.Name == "" {
		errors = append(errors, "product name is required")
	}

	if i.Brand == "" {
		errors = append(errors, "brand is required")
	}

	return errors
}
