package strategy

import (
	"fmt"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/util"
)

// ExitReason identifies why the monitor decided to close the position.
type ExitReason string

const (
	// ExitReasonTime is the hard time-of-day cutoff.
	ExitReasonTime ExitReason = "time-based exit"
	// ExitReasonTarget means the premium decayed to the target level.
	ExitReasonTarget ExitReason = "target hit"
	// ExitReasonStopLoss means the premium rose through the stop level.
	ExitReasonStopLoss ExitReason = "stop loss hit"
)

// Decision is the monitor's verdict for one check of the open position.
// CurrentPremium and PnLPerLot are populated on both hold and exit so the
// caller can log them.
type Decision struct {
	ShouldExit     bool
	Reason         ExitReason
	Detail         string
	CurrentPremium float64
	PnLPerLot      float64
}

// Monitor re-prices an open position against fresh snapshots and decides
// hold or exit. It never touches storage; the caller clears the slot after
// consuming an exit decision.
type Monitor struct {
	cfg    Config
	cutoff func(day time.Time) time.Time
}

// NewMonitor creates a monitor. cutoff maps a day to the forced-exit moment
// on that day in market-local time.
func NewMonitor(cfg Config, cutoff func(day time.Time) time.Time) *Monitor {
	return &Monitor{cfg: cfg, cutoff: cutoff}
}

// Check evaluates the exit rules in priority order: time cutoff, then decay
// target, then stop loss. The first match wins.
func (m *Monitor) Check(pos *models.OpenPosition, snapshot *models.MarketSnapshot, now time.Time) Decision {
	current := util.Round2(pos.CurrentPremium(snapshot))
	pnl := util.Round2((pos.NetPremium - current) * float64(m.cfg.LotSize))

	d := Decision{CurrentPremium: current, PnLPerLot: pnl}

	if !now.Before(m.cutoff(now)) {
		d.ShouldExit = true
		d.Reason = ExitReasonTime
		d.Detail = fmt.Sprintf("Time-based exit — closing at ₹%.2f before expiry crush", current)
		return d
	}
	if current <= pos.TargetExit {
		d.ShouldExit = true
		d.Reason = ExitReasonTarget
		d.Detail = fmt.Sprintf("Target hit — premium decayed to ₹%.2f (target ₹%.2f)", current, pos.TargetExit)
		return d
	}
	if current >= pos.StopLoss {
		d.ShouldExit = true
		d.Reason = ExitReasonStopLoss
		d.Detail = fmt.Sprintf("Stop loss hit — premium rose to ₹%.2f (stop ₹%.2f)", current, pos.StopLoss)
		return d
	}

	return d
}
