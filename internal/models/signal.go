package models

import "time"

// SignalGrade buckets a signal score into a letter grade.
type SignalGrade string

const (
	// GradeA marks scores >= 70.
	GradeA SignalGrade = "A"
	// GradeB marks scores >= 50.
	GradeB SignalGrade = "B"
	// GradeC marks everything below.
	GradeC SignalGrade = "C"
)

// Signal is a fully evaluated iron condor entry recommendation.
// It is immutable once built by the evaluator.
type Signal struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Snapshot echo
	Spot         float64    `json:"spot"`
	Volatility   float64    `json:"volatility"`
	PutCallRatio float64    `json:"put_call_ratio"`
	Expiry       string     `json:"expiry"`
	Provenance   Provenance `json:"provenance"`

	// Legs
	SellCallStrike float64 `json:"sell_call_strike"`
	BuyCallStrike  float64 `json:"buy_call_strike"`
	SellPutStrike  float64 `json:"sell_put_strike"`
	BuyPutStrike   float64 `json:"buy_put_strike"`

	SellCallPremium float64 `json:"sell_call_premium"`
	BuyCallPremium  float64 `json:"buy_call_premium"`
	SellPutPremium  float64 `json:"sell_put_premium"`
	BuyPutPremium   float64 `json:"buy_put_premium"`

	// Risk/reward
	NetPremium  float64 `json:"net_premium"`
	SpreadWidth float64 `json:"spread_width"`
	MaxProfit   float64 `json:"max_profit"`
	MaxLoss     float64 `json:"max_loss"`
	TargetExit  float64 `json:"target_exit"`
	StopLoss    float64 `json:"stop_loss"`

	// OI analysis
	MaxPain  float64 `json:"max_pain"`
	CallWall float64 `json:"call_wall"`
	PutWall  float64 `json:"put_wall"`

	Score int         `json:"score"`
	Grade SignalGrade `json:"grade"`
}

// OpenPosition is the durable projection of an accepted Signal: the four leg
// strikes plus the thresholds the monitor needs. At most one exists at a time.
type OpenPosition struct {
	SellCallStrike float64   `json:"sell_call_strike"`
	BuyCallStrike  float64   `json:"buy_call_strike"`
	SellPutStrike  float64   `json:"sell_put_strike"`
	BuyPutStrike   float64   `json:"buy_put_strike"`
	NetPremium     float64   `json:"net_premium"`
	TargetExit     float64   `json:"target_exit"`
	StopLoss       float64   `json:"stop_loss"`
	Expiry         string    `json:"expiry"`
	OpenedAt       time.Time `json:"opened_at,omitempty"`
}

// OpenPosition projects the signal into its persisted form.
func (s *Signal) OpenPosition() *OpenPosition {
	return &OpenPosition{
		SellCallStrike: s.SellCallStrike,
		BuyCallStrike:  s.BuyCallStrike,
		SellPutStrike:  s.SellPutStrike,
		BuyPutStrike:   s.BuyPutStrike,
		NetPremium:     s.NetPremium,
		TargetExit:     s.TargetExit,
		StopLoss:       s.StopLoss,
		Expiry:         s.Expiry,
		OpenedAt:       s.CreatedAt,
	}
}

// CurrentPremium recomputes the condor's net premium against a fresh
// snapshot using the same side-matching rule as entry: a strike missing from
// the ladder contributes 0.
func (p *OpenPosition) CurrentPremium(s *MarketSnapshot) float64 {
	return (s.CallLast(p.SellCallStrike) - s.CallLast(p.BuyCallStrike)) +
		(s.PutLast(p.SellPutStrike) - s.PutLast(p.BuyPutStrike))
}
