package parser

import (
	"testing"

	"github.com/maltedev/product-options-crawler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productURL = "https://www.oliveyoung.co.kr/store/goods/getGoodsDetail.do?goodsNo=A000000233879"

func detailPage(options string) string {
	return `<html><body><div id="main">
	<div><div><a href="/">홈</a><a href="/c1">스킨케어</a><a href="/c2">토너/로션</a></div></div>
	<div><div>
		<div class="prd-img"><img src="https://img/main.jpg"></div>
		<div><div>
			<div>
				<div><a href="/brand">AHC</a></div>
				<div><h3>  AHC 프리미엄   토너 </h3></div>
			</div>
			<div class="price-info"><span class="final-price">25,000원</span></div>
			` + options + `
		</div></div>
	</div></div>
</div></body></html>`
}

func TestParseProductPage_BasicInfo(t *testing.T) {
	page, err := NewOliveYoungParser().ParseProductPage(detailPage(""), productURL)
	require.NoError(t, err)

	assert.Equal(t, "A000000233879", page.GoodsNo)
	assert.Equal(t, "토너/로션", page.Info.Category)
	assert.Equal(t, "AHC", page.Info.Brand)
	assert.Equal(t, "AHC 프리미엄 토너", page.Info.Name)
}

func TestParseProductPage_Options(t *testing.T) {
	html := detailPage(`<ul class="option-list">
		<li><span class="option-name">01 로즈</span><span class="option-price">정가 20,000원 15,000원</span><img data-src="https://img/rose.jpg"></li>
		<li class="soldout"><span class="option-name">02 라벤더</span><span class="option-price">15,000원</span></li>
		<li><span class="option-name">03 민트 (품절)</span><span class="option-price">15,000</span></li>
		<li><span class="option-price">가격 없음</span></li>
	</ul>`)

	page, err := NewOliveYoungParser().ParseProductPage(html, productURL)
	require.NoError(t, err)

	require.Len(t, page.Options, 4)
	assert.Equal(t, models.RawOption{Name: "01 로즈", Price: "15000", ImageURL: "https://img/rose.jpg"}, page.Options[0])
	assert.Equal(t, models.RawOption{Name: "02 라벤더", Price: "15000", IsSoldOut: true}, page.Options[1])
	assert.True(t, page.Options[2].IsSoldOut)
	assert.Equal(t, models.NameExtractionFailed, page.Options[3].Name)
	assert.Equal(t, models.PriceExtractionFailed, page.Options[3].Price)
}

func TestParseProductPage_SingleOptionFallback(t *testing.T) {
	page, err := NewOliveYoungParser().ParseProductPage(detailPage(""), productURL)
	require.NoError(t, err)

	require.Len(t, page.Options, 1)
	assert.Equal(t, models.RawOption{
		Name:     "AHC 프리미엄 토너",
		Price:    "25000",
		ImageURL: "https://img/main.jpg",
	}, page.Options[0])
}

func TestParseProductPage_EmptyDocument(t *testing.T) {
	page, err := NewOliveYoungParser().ParseProductPage("<html></html>", "not a url")
	require.NoError(t, err)

	assert.Empty(t, page.GoodsNo)
	assert.Empty(t, page.Info.Name)
	require.Len(t, page.Options, 1)
	assert.Equal(t, models.NameExtractionFailed, page.Options[0].Name)
	assert.Equal(t, models.PriceExtractionFailed, page.Options[0].Price)
}

func TestGoodsNo(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{productURL, "A000000233879"},
		{"https://www.oliveyoung.co.kr/store/goods/getGoodsDetail.do?dispCatNo=1&goodsNo=B1", "B1"},
		{"https://www.oliveyoung.co.kr/", ""},
		{"%zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, GoodsNo(tt.url))
		})
	}
}
