package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hoangnph/vnquant/internal/domain"
)

// dailyBarDTO is the wire shape one upstream JSON endpoint row takes,
// grounded on the original ssi_fetcher_with_tracking.py response schema:
// a daily OHLCV row plus the foreign buy/sell volume for the same session.
type dailyBarDTO struct {
	Time       string  `json:"tradingDate"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     int64   `json:"volume"`
	ForeignBuy int64   `json:"foreignBuyVolume"`
	ForeignSell int64  `json:"foreignSellVolume"`
	ForeignBuyVal  float64 `json:"foreignBuyValue"`
	ForeignSellVal float64 `json:"foreignSellValue"`
}

// HTTPConfig configures one upstream JSON endpoint.
type HTTPConfig struct {
	BaseURL    string
	DateLayout string // defaults to "2006-01-02"
	Source     domain.Source
}

// HTTPMarketDataProvider implements domain.MarketDataProvider against one
// upstream JSON endpoint. It is the single primary-fetch strategy; the
// original's headless-browser fallback on primary-endpoint failure is an
// adapter-internal concern the narrow MDP interface deliberately hides
// from the ingestion engine (spec §6), and is not reproduced here.
type HTTPMarketDataProvider struct {
	client *http.Client
	cfg    HTTPConfig
}

// NewHTTPMarketDataProvider builds a provider sharing one *http.Client
// across all calls (spec §5 "one HTTP client per process, host-level
// keep-alive").
func NewHTTPMarketDataProvider(client *http.Client, cfg HTTPConfig) *HTTPMarketDataProvider {
	if cfg.DateLayout == "" {
		cfg.DateLayout = "2006-01-02"
	}
	return &HTTPMarketDataProvider{client: client, cfg: cfg}
}

// FetchDaily retrieves bars and foreign-flow rows for [from, to].
func (p *HTTPMarketDataProvider) FetchDaily(ctx context.Context, symbol string, from, to time.Time) (domain.FetchResult, error) {
	u := fmt.Sprintf("%s/daily?%s", p.cfg.BaseURL, url.Values{
		"symbol": {symbol},
		"from":   {from.Format(p.cfg.DateLayout)},
		"to":     {to.Format(p.cfg.DateLayout)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("provider: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("provider: fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.FetchResult{}, fmt.Errorf("provider: %s returned HTTP %d", symbol, resp.StatusCode)
	}

	var rows []dailyBarDTO
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return domain.FetchResult{}, fmt.Errorf("provider: decode %s response: %w", symbol, err)
	}

	result := domain.FetchResult{
		Bars:    make([]domain.Bar, 0, len(rows)),
		Foreign: make([]domain.ForeignFlow, 0, len(rows)),
	}
	for _, row := range rows {
		t, err := time.Parse(p.cfg.DateLayout, row.Time)
		if err != nil {
			continue // dropped by the ingestion engine's sanitizer anyway
		}
		result.Bars = append(result.Bars, domain.Bar{
			Symbol: symbol, Time: t, Open: row.Open, High: row.High, Low: row.Low, Close: row.Close,
			Volume: row.Volume, Source: p.cfg.Source,
		})
		if row.ForeignBuy != 0 || row.ForeignSell != 0 {
			result.Foreign = append(result.Foreign, domain.ForeignFlow{
				Symbol: symbol, Time: t,
				BuyVolume: row.ForeignBuy, SellVolume: row.ForeignSell,
				BuyValue: row.ForeignBuyVal, SellValue: row.ForeignSellVal,
				Source: p.cfg.Source,
			})
		}
	}
	return result, nil
}
