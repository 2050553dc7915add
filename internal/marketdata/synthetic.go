package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/pricing"
	"github.com/earnmater-design/nifty-signal-bot/internal/util"
)

// SpotSource supplies the index level and volatility the synthetic chain is
// built around. Production wires a Yahoo-chart fetcher; tests use fixed
// values.
type SpotSource interface {
	GetSpot(ctx context.Context) (float64, error)
	GetVIX(ctx context.Context) (float64, error)
}

// SyntheticProvider builds an estimated option chain around the live spot
// using Black-Scholes pricing. It exists for days when the NSE chain API is
// blocked but the index level is still obtainable; snapshots are tagged
// estimated so downstream messages can caveat them.
type SyntheticProvider struct {
	source     SpotSource
	strikeStep float64
	wingspan   int     // strikes generated each side of ATM
	riskFree   float64 // annualized risk-free rate
	now        func() time.Time
}

// NewSyntheticProvider creates a provider over the given spot source.
func NewSyntheticProvider(source SpotSource, strikeStep float64) *SyntheticProvider {
	return &SyntheticProvider{
		source:     source,
		strikeStep: strikeStep,
		wingspan:   10,
		riskFree:   0.07,
		now:        time.Now,
	}
}

// GetSnapshot synthesizes a ladder around the current spot. Premiums come
// from Black-Scholes at the current VIX; open interest is shaped by
// moneyness so the OI-wall and max-pain derivations stay meaningful.
func (p *SyntheticProvider) GetSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	spot, err := p.source.GetSpot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching spot for synthetic chain: %w", err)
	}
	vix, err := p.source.GetVIX(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching vix for synthetic chain: %w", err)
	}
	if spot <= 0 {
		return nil, fmt.Errorf("spot source returned non-positive spot %.2f", spot)
	}

	expiry := nextWeeklyExpiry(p.now())
	tYears := time.Until(expiry).Hours() / 24 / 365
	if tYears < 1.0/365 {
		tYears = 1.0 / 365 // never price at zero time value intraday
	}
	sigma := vix / 100

	atm := util.RoundToStep(spot, p.strikeStep)
	strikes := make([]models.StrikeQuote, 0, 2*p.wingspan+1)
	for i := -p.wingspan; i <= p.wingspan; i++ {
		k := atm + float64(i)*p.strikeStep

		call := util.Round2(pricing.CallPrice(spot, k, tYears, p.riskFree, sigma))
		put := util.Round2(pricing.PutPrice(spot, k, tYears, p.riskFree, sigma))

		// OI concentrates near ATM and at round levels
		distance := math.Abs(k-spot) / spot
		baseOI := 80000 * math.Exp(-distance*40)
		callOI := int64(baseOI)
		putOI := int64(baseOI)
		if k > spot {
			callOI = int64(baseOI * 1.4)
		} else if k < spot {
			putOI = int64(baseOI * 1.4)
		}

		strikes = append(strikes, models.StrikeQuote{
			Strike:        k,
			CallLastPrice: call,
			PutLastPrice:  put,
			CallOI:        callOI,
			PutOI:         putOI,
		})
	}

	snapshot := &models.MarketSnapshot{
		Spot:       spot,
		Volatility: vix,
		Expiry:     expiry.Format("02-Jan-2006"),
		Strikes:    strikes,
		Provenance: models.ProvenanceEstimated,
	}
	if err := snapshot.Validate(); err != nil {
		return nil, fmt.Errorf("synthetic chain invalid: %w", err)
	}
	return snapshot, nil
}

// GetVolatility returns the source VIX directly.
func (p *SyntheticProvider) GetVolatility(ctx context.Context) (float64, error) {
	return p.source.GetVIX(ctx)
}

// nextWeeklyExpiry returns the upcoming Thursday (NIFTY weekly expiry) at
// market close, or today if invoked on a Thursday before close.
func nextWeeklyExpiry(now time.Time) time.Time {
	d := now
	for d.Weekday() != time.Thursday {
		d = d.AddDate(0, 0, 1)
	}
	expiry := time.Date(d.Year(), d.Month(), d.Day(), 15, 30, 0, 0, d.Location())
	if expiry.Before(now) {
		return nextWeeklyExpiry(now.AddDate(0, 0, 1))
	}
	return expiry
}
