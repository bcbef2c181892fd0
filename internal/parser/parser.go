package parser

import (
	"github.com/maltedev/product-options-crawler/internal/models"
)

type Parser interface {
	ParseProductPage(html string, url string) (*models.ProductPage, error)
}
