// Package strategy implements the iron condor signal engine: entry
// evaluation against an option-chain snapshot and exit monitoring of the
// open position.
package strategy

import (
	"fmt"
	"math"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/util"
	"github.com/google/uuid"
)

// SkipCode identifies which entry gate rejected the snapshot.
type SkipCode string

const (
	// SkipVolTooHigh means volatility is above the selling band.
	SkipVolTooHigh SkipCode = "vol_too_high"
	// SkipVolTooLow means volatility is below the selling band.
	SkipVolTooLow SkipCode = "vol_too_low"
	// SkipNotEnoughStrikes means the ladder is too thin around ATM.
	SkipNotEnoughStrikes SkipCode = "not_enough_strikes"
	// SkipWingPremiumLow means a sold leg's premium is below the floor.
	SkipWingPremiumLow SkipCode = "wing_premium_low"
	// SkipNetPremiumLow means the combined credit is below the floor.
	SkipNetPremiumLow SkipCode = "net_premium_low"
)

// Skip is a rejected evaluation. It is a normal outcome, not an error.
type Skip struct {
	Code   SkipCode
	Reason string
}

func (s *Skip) String() string { return s.Reason }

// Config holds the evaluator thresholds. Zero values are invalid; construct
// via DefaultConfig or from the application config.
type Config struct {
	MinVolatility   float64
	MaxVolatility   float64
	MinWingPremium  float64
	MinNetPremium   float64
	SpreadWidth     float64
	StrikeStep      float64
	LotSize         int
	TargetExitRatio float64
	StopLossRatio   float64
}

// DefaultConfig returns the production thresholds for weekly NIFTY condors.
func DefaultConfig() Config {
	return Config{
		MinVolatility:   10.0,
		MaxVolatility:   18.0,
		MinWingPremium:  15.0,
		MinNetPremium:   40.0,
		SpreadWidth:     100.0,
		StrikeStep:      50.0,
		LotSize:         50,
		TargetExitRatio: 0.40,
		StopLossRatio:   2.0,
	}
}

// Evaluator builds iron condor signals from market snapshots. It holds no
// mutable state; Evaluate is a pure function of its inputs.
type Evaluator struct {
	cfg Config
}

// NewEvaluator creates an evaluator with the given thresholds.
func NewEvaluator(cfg Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate runs the entry gates against the snapshot and either returns a
// fully populated signal or the skip describing the first failed gate.
func (e *Evaluator) Evaluate(snapshot *models.MarketSnapshot, pcr float64) (*models.Signal, *Skip) {
	cfg := e.cfg

	// Volatility gate
	if snapshot.Volatility > cfg.MaxVolatility {
		return nil, &Skip{
			Code: SkipVolTooHigh,
			Reason: fmt.Sprintf("VIX %.1f is too HIGH (max %.1f) — market too volatile to sell options today",
				snapshot.Volatility, cfg.MaxVolatility),
		}
	}
	if snapshot.Volatility < cfg.MinVolatility {
		return nil, &Skip{
			Code: SkipVolTooLow,
			Reason: fmt.Sprintf("VIX %.1f is too LOW (min %.1f) — premiums not worth selling today",
				snapshot.Volatility, cfg.MinVolatility),
		}
	}

	// Strike selection: one step beyond ATM for the sold legs, then the
	// spread width out (rounded to the strike step) for the protection.
	atmIdx := findATMIndex(snapshot.Spot, snapshot.Strikes)
	if atmIdx < 2 || atmIdx > len(snapshot.Strikes)-3 {
		return nil, &Skip{
			Code:   SkipNotEnoughStrikes,
			Reason: "Not enough strikes around ATM in option chain",
		}
	}

	sellCall := snapshot.Strikes[atmIdx+1].Strike
	sellPut := snapshot.Strikes[atmIdx-1].Strike
	buyCall := util.RoundToStep(sellCall+cfg.SpreadWidth, cfg.StrikeStep)
	buyPut := util.RoundToStep(sellPut-cfg.SpreadWidth, cfg.StrikeStep)

	sellCallPrem := snapshot.CallLast(sellCall)
	buyCallPrem := snapshot.CallLast(buyCall)
	sellPutPrem := snapshot.PutLast(sellPut)
	buyPutPrem := snapshot.PutLast(buyPut)

	netPremium := util.Round2((sellCallPrem - buyCallPrem) + (sellPutPrem - buyPutPrem))

	// Wing-quality gate
	if sellCallPrem < cfg.MinWingPremium {
		return nil, &Skip{
			Code: SkipWingPremiumLow,
			Reason: fmt.Sprintf("CE leg premium ₹%.2f too low (min ₹%.2f) — not worth trading",
				sellCallPrem, cfg.MinWingPremium),
		}
	}
	if sellPutPrem < cfg.MinWingPremium {
		return nil, &Skip{
			Code: SkipWingPremiumLow,
			Reason: fmt.Sprintf("PE leg premium ₹%.2f too low (min ₹%.2f) — not worth trading",
				sellPutPrem, cfg.MinWingPremium),
		}
	}

	// Net-premium gate
	if netPremium < cfg.MinNetPremium {
		return nil, &Skip{
			Code: SkipNetPremiumLow,
			Reason: fmt.Sprintf("Net premium ₹%.2f too low (min ₹%.2f) — skip today",
				netPremium, cfg.MinNetPremium),
		}
	}

	lot := float64(cfg.LotSize)
	maxPain := findMaxPain(snapshot.Strikes)
	callWall, putWall := findOIWalls(snapshot.Strikes)
	score := scoreSignal(snapshot.Volatility, pcr, netPremium, callWall, putWall, sellCall, sellPut)

	return &models.Signal{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),

		Spot:         snapshot.Spot,
		Volatility:   snapshot.Volatility,
		PutCallRatio: pcr,
		Expiry:       snapshot.Expiry,
		Provenance:   snapshot.Provenance,

		SellCallStrike: sellCall,
		BuyCallStrike:  buyCall,
		SellPutStrike:  sellPut,
		BuyPutStrike:   buyPut,

		SellCallPremium: sellCallPrem,
		BuyCallPremium:  buyCallPrem,
		SellPutPremium:  sellPutPrem,
		BuyPutPremium:   buyPutPrem,

		NetPremium:  netPremium,
		SpreadWidth: cfg.SpreadWidth,
		MaxProfit:   util.Round2(netPremium * lot),
		MaxLoss:     util.Round2((cfg.SpreadWidth - netPremium) * lot),
		TargetExit:  util.Round2(netPremium * cfg.TargetExitRatio),
		StopLoss:    util.Round2(netPremium * cfg.StopLossRatio),

		MaxPain:  maxPain,
		CallWall: callWall,
		PutWall:  putWall,

		Score: score,
		Grade: gradeFor(score),
	}, nil
}

// findATMIndex returns the index of the strike closest to spot.
func findATMIndex(spot float64, strikes []models.StrikeQuote) int {
	best := 0
	bestDiff := math.MaxFloat64
	for i, q := range strikes {
		diff := math.Abs(q.Strike - spot)
		if diff < bestDiff {
			bestDiff = diff
			best = i
		}
	}
	return best
}

// findMaxPain returns the strike where aggregate option-writer loss is
// minimal. Ties go to the lowest strike; the tie rule is historical, not a
// business requirement.
func findMaxPain(strikes []models.StrikeQuote) float64 {
	bestStrike := 0.0
	bestLoss := math.MaxFloat64
	for _, target := range strikes {
		var loss float64
		for _, q := range strikes {
			if d := target.Strike - q.Strike; d > 0 {
				loss += d * float64(q.CallOI)
			}
			if d := q.Strike - target.Strike; d > 0 {
				loss += d * float64(q.PutOI)
			}
		}
		if loss < bestLoss {
			bestLoss = loss
			bestStrike = target.Strike
		}
	}
	return bestStrike
}

// findOIWalls returns the strikes carrying the heaviest call OI (resistance)
// and put OI (support). Ties go to the lowest strike.
func findOIWalls(strikes []models.StrikeQuote) (callWall, putWall float64) {
	var maxCallOI, maxPutOI int64 = -1, -1
	for _, q := range strikes {
		if q.CallOI > maxCallOI {
			maxCallOI = q.CallOI
			callWall = q.Strike
		}
		if q.PutOI > maxPutOI {
			maxPutOI = q.PutOI
			putWall = q.Strike
		}
	}
	return callWall, putWall
}

// scoreSignal grades signal quality 0-100.
func scoreSignal(vol, pcr, netPremium, callWall, putWall, sellCall, sellPut float64) int {
	score := 0

	// Volatility sweet spot
	switch {
	case vol >= 12 && vol <= 16:
		score += 30
	case (vol >= 10 && vol < 12) || (vol > 16 && vol <= 18):
		score += 15
	}

	// PCR in healthy range
	switch {
	case pcr >= 0.9 && pcr <= 1.3:
		score += 20
	case (pcr >= 0.7 && pcr < 0.9) || (pcr > 1.3 && pcr <= 1.5):
		score += 10
	}

	// Premium richness
	switch {
	case netPremium >= 80:
		score += 25
	case netPremium >= 55:
		score += 20
	case netPremium >= 40:
		score += 10
	}

	// Sold legs inside the OI walls (safer range)
	if sellCall <= callWall {
		score += 15
	}
	if sellPut >= putWall {
		score += 10
	}

	return score
}

func gradeFor(score int) models.SignalGrade {
	switch {
	case score >= 70:
		return models.GradeA
	case score >= 50:
		return models.GradeB
	default:
		return models.GradeC
	}
}
