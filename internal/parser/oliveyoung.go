package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/product-options-crawler/internal/models"
)

var nonDigits = regexp.MustCompile(`\D+`)

// Selectors locate the fields of a product detail page.
type Selectors struct {
	Category string
	Brand    string
	Name     string

	OptionItem  string
	OptionName  string
	OptionPrice string
	OptionImage string
	SoldOut     string

	MainPrice   string
	MainImage   string
	MainSoldOut string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Category: "#main > div:nth-of-type(1) > div > a:nth-of-type(3)",
		Brand:    "#main > div:nth-of-type(2) > div > div:nth-of-type(2) > div > div:nth-of-type(1) > div:nth-of-type(1) > a",
		Name:     "#main > div:nth-of-type(2) > div > div:nth-of-type(2) > div > div:nth-of-type(1) > div:nth-of-type(2) > h3",

		OptionItem:  ".option-list > li",
		OptionName:  ".option-name",
		OptionPrice: ".option-price",
		OptionImage: "img",
		SoldOut:     ".soldout, [aria-disabled='true']",

		MainPrice:   ".price-info .final-price",
		MainImage:   ".prd-img img",
		MainSoldOut: ".btn-soldout",
	}
}

type OliveYoungParser struct {
	sel Selectors
}

func NewOliveYoungParser() *OliveYoungParser {
	return &OliveYoungParser{sel: DefaultSelectors()}
}

func NewOliveYoungParserWithSelectors(sel Selectors) *OliveYoungParser {
	return &OliveYoungParser{sel: sel}
}

func (p *OliveYoungParser) ParseProductPage(html string, pageURL string) (*models.ProductPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &models.ProductPage{
		URL:       pageURL,
		GoodsNo:   GoodsNo(pageURL),
		Info:      p.basicInfo(doc),
		ScrapedAt: time.Now(),
	}
	page.Options = p.options(doc, page.Info)

	return page, nil
}

func (p *OliveYoungParser) basicInfo(doc *goquery.Document) models.ProductInfo {
	return models.ProductInfo{
		Category: text(doc.Find(p.sel.Category).First()),
		Brand:    text(doc.Find(p.sel.Brand).First()),
		Name:     text(doc.Find(p.sel.Name).First()),
	}
}

// options reads the option list. A product without an option list becomes
// a single option named after the product.
func (p *OliveYoungParser) options(doc *goquery.Document, info models.ProductInfo) []models.RawOption {
	var opts []models.RawOption

	doc.Find(p.sel.OptionItem).Each(func(_ int, s *goquery.Selection) {
		opt := models.RawOption{
			Name:      text(s.Find(p.sel.OptionName).First()),
			Price:     price(s.Find(p.sel.OptionPrice).First()),
			ImageURL:  image(s.Find(p.sel.OptionImage).First()),
			IsSoldOut: s.Is(p.sel.SoldOut) || s.Find(p.sel.SoldOut).Length() > 0,
		}
		if opt.Name == "" {
			opt.Name = models.NameExtractionFailed
		}
		if strings.Contains(opt.Name, "품절") {
			opt.IsSoldOut = true
		}
		opts = append(opts, opt)
	})

	if len(opts) > 0 {
		return opts
	}

	name := info.Name
	if name == "" {
		name = models.NameExtractionFailed
	}
	return []models.RawOption{{
		Name:      name,
		Price:     price(doc.Find(p.sel.MainPrice).First()),
		ImageURL:  image(doc.Find(p.sel.MainImage).First()),
		IsSoldOut: doc.Find(p.sel.MainSoldOut).Length() > 0,
	}}
}

// GoodsNo returns the goodsNo query parameter of a product URL, or "".
func GoodsNo(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("goodsNo")
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// price keeps the digits of the last number in the element, so a sale
// price printed after the list price wins.
func price(s *goquery.Selection) string {
	if s.Length() == 0 {
		return models.PriceExtractionFailed
	}

	fields := strings.Fields(s.Text())
	for i := len(fields) - 1; i >= 0; i-- {
		if digits := nonDigits.ReplaceAllString(fields[i], ""); digits != "" {
			return digits
		}
	}
	return models.PriceExtractionFailed
}

func image(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
