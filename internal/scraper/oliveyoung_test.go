package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/maltedev/product-options-crawler/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const productURL = "https://www.oliveyoung.co.kr/store/goods/getGoodsDetail.do?goodsNo=A000000233879"

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context, url string) (string, error) {
	args := m.Called(ctx, url)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const detailHTML = `<html><body><div id="main">
	<div><div><a>홈</a><a>스킨케어</a><a>토너</a></div></div>
	<div><div><div></div><div><div>
		<div><div><a>AHC</a></div><div><h3>AHC 토너</h3></div></div>
		<ul class="option-list">
			<li><span class="option-name">01 기본</span><span class="option-price">12,000원</span></li>
		</ul>
	</div></div></div></div>
</div></body></html>`

func TestFetchProduct(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, productURL).Return(detailHTML, nil)

	s := NewOliveYoung(loader, nil, testLogger())
	page, err := s.FetchProduct(context.Background(), productURL)
	require.NoError(t, err)

	assert.Equal(t, "A000000233879", page.GoodsNo)
	assert.Equal(t, "AHC", page.Info.Brand)
	assert.Equal(t, "AHC 토너", page.Info.Name)
	require.Len(t, page.Options, 1)
	assert.Equal(t, "12000", page.Options[0].Price)
	loader.AssertExpectations(t)
}

func TestFetchProduct_InvalidURL(t *testing.T) {
	loader := new(MockLoader)
	s := NewOliveYoung(loader, nil, testLogger())

	_, err := s.FetchProduct(context.Background(), "https://www.amazon.de/dp/B000")
	assert.ErrorIs(t, err, ErrInvalidURL)
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestFetchProduct_LoaderError(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, productURL).Return("", ErrBlocked)

	limiter := ratelimit.NewAdaptiveRateLimiter(0, 0)
	s := NewOliveYoung(loader, limiter, testLogger())

	_, err := s.FetchProduct(context.Background(), productURL)
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestFetchProduct_EmptyPage(t *testing.T) {
	loader := new(MockLoader)
	loader.On("Load", mock.Anything, productURL).Return("<html><body>점검 중</body></html>", nil)

	s := NewOliveYoung(loader, nil, testLogger())
	_, err := s.FetchProduct(context.Background(), productURL)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFetchProduct_RateLimiterCancelled(t *testing.T) {
	loader := new(MockLoader)
	limiter := ratelimit.NewSimpleRateLimiter(time.Hour, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewOliveYoung(loader, limiter, testLogger())
	_, err := s.FetchProduct(ctx, productURL)
	assert.True(t, errors.Is(err, context.Canceled))
	loader.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"detail page", productURL, false},
		{"mobile host", "https://m.oliveyoung.co.kr/m/store/goods/getGoodsDetail.do?goodsNo=A1", false},
		{"missing goodsNo", "https://www.oliveyoung.co.kr/store/goods/getGoodsDetail.do", true},
		{"other host", "https://evil-oliveyoung.co.kr/store/goods/getGoodsDetail.do?goodsNo=A1", true},
		{"ftp scheme", "ftp://www.oliveyoung.co.kr/store/goods/getGoodsDetail.do?goodsNo=A1", true},
		{"listing page", "https://www.oliveyoung.co.kr/store/display/getMCategoryList.do?goodsNo=A1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
