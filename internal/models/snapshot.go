// Package models defines the market data and signal types shared across the bot.
package models

import (
	"fmt"
)

// Provenance describes where a snapshot's prices came from.
type Provenance string

const (
	// ProvenanceLive marks observed exchange prices.
	ProvenanceLive Provenance = "live"
	// ProvenanceEstimated marks model-derived prices (synthetic chain).
	ProvenanceEstimated Provenance = "estimated"
)

// StrikeQuote holds per-strike price and open interest data for both sides.
type StrikeQuote struct {
	Strike        float64 `json:"strike"`
	CallLastPrice float64 `json:"call_last_price"`
	PutLastPrice  float64 `json:"put_last_price"`
	CallOI        int64   `json:"call_open_interest"`
	PutOI         int64   `json:"put_open_interest"`
}

// MarketSnapshot is a point-in-time view of the index and its option chain.
// Strikes must be sorted ascending with no duplicates. Volatility is the
// India VIX value supplied alongside the chain, in annualized percentage
// points.
type MarketSnapshot struct {
	Spot       float64       `json:"spot"`
	Volatility float64       `json:"volatility"`
	Expiry     string        `json:"expiry"`
	Strikes    []StrikeQuote `json:"strikes"`
	Provenance Provenance    `json:"provenance"`
}

// Validate checks the snapshot invariants: positive spot, non-empty ladder,
// strictly ascending unique strikes.
func (s *MarketSnapshot) Validate() error {
	if s.Spot <= 0 {
		return fmt.Errorf("snapshot spot must be positive (got %.2f)", s.Spot)
	}
	if len(s.Strikes) == 0 {
		return fmt.Errorf("snapshot has empty strike ladder")
	}
	for i := 1; i < len(s.Strikes); i++ {
		if s.Strikes[i].Strike <= s.Strikes[i-1].Strike {
			return fmt.Errorf("strike ladder not strictly ascending at index %d (%.2f after %.2f)",
				i, s.Strikes[i].Strike, s.Strikes[i-1].Strike)
		}
	}
	return nil
}

// PutCallRatio returns aggregate put OI over aggregate call OI.
// Defaults to 1.0 when total call OI is zero.
func (s *MarketSnapshot) PutCallRatio() float64 {
	var callOI, putOI int64
	for _, q := range s.Strikes {
		callOI += q.CallOI
		putOI += q.PutOI
	}
	if callOI == 0 {
		return 1.0
	}
	return float64(putOI) / float64(callOI)
}

// CallLast returns the call last price at the given strike, 0 if absent.
func (s *MarketSnapshot) CallLast(strike float64) float64 {
	if q := s.quoteAt(strike); q != nil {
		return q.CallLastPrice
	}
	return 0
}

// PutLast returns the put last price at the given strike, 0 if absent.
func (s *MarketSnapshot) PutLast(strike float64) float64 {
	if q := s.quoteAt(strike); q != nil {
		return q.PutLastPrice
	}
	return 0
}

const strikeMatchEpsilon = 1e-4

func (s *MarketSnapshot) quoteAt(strike float64) *StrikeQuote {
	for i := range s.Strikes {
		d := s.Strikes[i].Strike - strike
		if d > -strikeMatchEpsilon && d < strikeMatchEpsilon {
			return &s.Strikes[i]
		}
	}
	return nil
}
