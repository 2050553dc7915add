package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sort"
	"strings"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

const (
	nseDefaultBaseURL = "https://www.nseindia.com"
	nseOptionChain    = "/api/option-chain-indices?symbol=NIFTY"
	nseAllIndices     = "/api/allIndices"
	nseWarmupPage     = "/option-chain"
)

// browser-like headers; the NSE API rejects bare clients
var nseHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.nseindia.com/option-chain",
	"Connection":      "keep-alive",
}

// NSEClient fetches the NIFTY option chain and India VIX from NSE's public
// endpoints. The API requires browser-style headers plus session cookies
// obtained by warming up against the homepage first.
type NSEClient struct {
	client   *http.Client
	baseURL  string
	warmedUp bool
}

// NewNSEClient creates a client. baseURL may be empty to use the production
// endpoint; tests point it at an httptest server.
func NewNSEClient(baseURL string, timeout time.Duration) *NSEClient {
	if baseURL == "" {
		baseURL = nseDefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		baseURL: baseURL,
	}
}

// optionChainResponse mirrors the subset of NSE's option-chain payload the
// bot consumes.
type optionChainResponse struct {
	Records struct {
		UnderlyingValue float64  `json:"underlyingValue"`
		ExpiryDates     []string `json:"expiryDates"`
		Data            []struct {
			StrikePrice float64        `json:"strikePrice"`
			ExpiryDate  string         `json:"expiryDate"`
			CE          *optionSideRow `json:"CE"`
			PE          *optionSideRow `json:"PE"`
		} `json:"data"`
	} `json:"records"`
}

type optionSideRow struct {
	LastPrice    float64 `json:"lastPrice"`
	OpenInterest int64   `json:"openInterest"`
}

type allIndicesResponse struct {
	Data []struct {
		Index string  `json:"index"`
		Last  float64 `json:"last"`
	} `json:"data"`
}

// GetSnapshot fetches and parses the option chain, keeping only rows for
// the nearest expiry, sorted ascending by strike.
func (n *NSEClient) GetSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	if err := n.warmup(ctx); err != nil {
		return nil, fmt.Errorf("nse session warmup: %w", err)
	}

	var resp optionChainResponse
	if err := n.getJSON(ctx, nseOptionChain, &resp); err != nil {
		return nil, fmt.Errorf("fetching option chain: %w", err)
	}

	if len(resp.Records.ExpiryDates) == 0 {
		return nil, fmt.Errorf("option chain response has no expiry dates")
	}
	expiry := resp.Records.ExpiryDates[0] // nearest weekly expiry

	strikes := make([]models.StrikeQuote, 0, len(resp.Records.Data))
	seen := make(map[float64]bool)
	for _, row := range resp.Records.Data {
		if row.ExpiryDate != expiry || seen[row.StrikePrice] {
			continue
		}
		seen[row.StrikePrice] = true
		q := models.StrikeQuote{Strike: row.StrikePrice}
		if row.CE != nil {
			q.CallLastPrice = row.CE.LastPrice
			q.CallOI = row.CE.OpenInterest
		}
		if row.PE != nil {
			q.PutLastPrice = row.PE.LastPrice
			q.PutOI = row.PE.OpenInterest
		}
		strikes = append(strikes, q)
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	snapshot := &models.MarketSnapshot{
		Spot:       resp.Records.UnderlyingValue,
		Expiry:     expiry,
		Strikes:    strikes,
		Provenance: models.ProvenanceLive,
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("parsed option chain invalid: %w", err)
	}
	return snapshot, nil
}

// GetVolatility looks up the India VIX row in the indices feed.
func (n *NSEClient) GetVolatility(ctx context.Context) (float64, error) {
	if err := n.warmup(ctx); err != nil {
		return 0, fmt.Errorf("nse session warmup: %w", err)
	}

	var resp allIndicesResponse
	if err := n.getJSON(ctx, nseAllIndices, &resp); err != nil {
		return 0, fmt.Errorf("fetching indices: %w", err)
	}

	for _, idx := range resp.Data {
		if strings.Contains(strings.ToUpper(idx.Index), "VIX") {
			return idx.Last, nil
		}
	}
	return 0, fmt.Errorf("VIX index not present in indices response")
}

// warmup hits the homepage and option-chain page once so the cookie jar
// holds the session cookies the API endpoints require.
func (n *NSEClient) warmup(ctx context.Context) error {
	if n.warmedUp {
		return nil
	}
	for _, path := range []string{"/", nseWarmupPage} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path, nil)
		if err != nil {
			return err
		}
		applyHeaders(req)
		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
	n.warmedUp = true
	return nil
}

func (n *NSEClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path, nil)
	if err != nil {
		return err
	}
	applyHeaders(req)

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func applyHeaders(req *http.Request) {
	for k, v := range nseHeaders {
		req.Header.Set(k, v)
	}
}
