package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const yahooDefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooSpotSource reads the NIFTY spot and India VIX from Yahoo Finance
// chart metadata. It backs the synthetic provider when NSE is unreachable.
type YahooSpotSource struct {
	client  *http.Client
	baseURL string
}

// NewYahooSpotSource creates a source. baseURL may be empty for production.
func NewYahooSpotSource(baseURL string, timeout time.Duration) *YahooSpotSource {
	if baseURL == "" {
		baseURL = yahooDefaultBaseURL
	}
	return &YahooSpotSource{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// GetSpot returns the NIFTY 50 index level.
func (y *YahooSpotSource) GetSpot(ctx context.Context) (float64, error) {
	return y.chartPrice(ctx, "^NSEI")
}

// GetVIX returns the India VIX level.
func (y *YahooSpotSource) GetVIX(ctx context.Context) (float64, error) {
	return y.chartPrice(ctx, "^INDIAVIX")
}

func (y *YahooSpotSource) chartPrice(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", y.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching %s chart: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("GET %s chart: status %d: %s", symbol, resp.StatusCode, string(body))
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return 0, fmt.Errorf("decoding %s chart: %w", symbol, err)
	}
	if len(chart.Chart.Result) == 0 {
		return 0, fmt.Errorf("%s chart response has no result", symbol)
	}
	price := chart.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("%s chart returned non-positive price %.2f", symbol, price)
	}
	return price, nil
}

var _ SpotSource = (*YahooSpotSource)(nil)
