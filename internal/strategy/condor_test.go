package strategy

import (
	"math"
	"strings"
	"testing"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

// testChain builds a ladder from 24300 to 24750 in 50-point steps around a
// spot of 24512 (ATM 24500). Premiums were picked so the standard condor
// legs (sell 24550 CE / 24450 PE, buy 24650 CE / 24350 PE) net exactly 71.
func testChain() *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Spot:       24512,
		Volatility: 13.5,
		Expiry:     "05-Sep-2026",
		Provenance: models.ProvenanceLive,
		Strikes: []models.StrikeQuote{
			{Strike: 24300, CallLastPrice: 230, PutLastPrice: 2, CallOI: 5000, PutOI: 95000},
			{Strike: 24350, CallLastPrice: 190, PutLastPrice: 4, CallOI: 8000, PutOI: 70000},
			{Strike: 24400, CallLastPrice: 150, PutLastPrice: 12, CallOI: 12000, PutOI: 60000},
			{Strike: 24450, CallLastPrice: 110, PutLastPrice: 38, CallOI: 20000, PutOI: 52000},
			{Strike: 24500, CallLastPrice: 75, PutLastPrice: 60, CallOI: 40000, PutOI: 45000},
			{Strike: 24550, CallLastPrice: 42, PutLastPrice: 95, CallOI: 55000, PutOI: 30000},
			{Strike: 24600, CallLastPrice: 22, PutLastPrice: 140, CallOI: 72000, PutOI: 18000},
			{Strike: 24650, CallLastPrice: 5, PutLastPrice: 185, CallOI: 98000, PutOI: 9000},
			{Strike: 24700, CallLastPrice: 2, PutLastPrice: 230, CallOI: 60000, PutOI: 4000},
			{Strike: 24750, CallLastPrice: 1, PutLastPrice: 280, CallOI: 30000, PutOI: 2000},
		},
	}
}

func TestEvaluateProducesSignal(t *testing.T) {
	snap := testChain()
	ev := NewEvaluator(DefaultConfig())

	sig, skip := ev.Evaluate(snap, snap.PutCallRatio())
	if skip != nil {
		t.Fatalf("Evaluate() skipped: %s", skip.Reason)
	}
	if sig.ID == "" {
		t.Error("signal has empty ID")
	}

	if sig.SellCallStrike != 24550 || sig.SellPutStrike != 24450 {
		t.Errorf("sold legs = %v CE / %v PE, want 24550/24450", sig.SellCallStrike, sig.SellPutStrike)
	}
	if sig.BuyCallStrike != 24650 || sig.BuyPutStrike != 24350 {
		t.Errorf("wings = %v CE / %v PE, want 24650/24350", sig.BuyCallStrike, sig.BuyPutStrike)
	}

	// (42-5)+(38-4) = 71
	if sig.NetPremium != 71 {
		t.Errorf("net premium = %v, want 71", sig.NetPremium)
	}
	if sig.TargetExit != 28.4 {
		t.Errorf("target exit = %v, want 28.4", sig.TargetExit)
	}
	if sig.StopLoss != 142 {
		t.Errorf("stop loss = %v, want 142", sig.StopLoss)
	}
	if sig.MaxProfit != 3550 {
		t.Errorf("max profit = %v, want 3550", sig.MaxProfit)
	}
	if sig.MaxLoss != 1450 {
		t.Errorf("max loss = %v, want 1450", sig.MaxLoss)
	}

	if sig.CallWall != 24650 {
		t.Errorf("call wall = %v, want 24650", sig.CallWall)
	}
	if sig.PutWall != 24300 {
		t.Errorf("put wall = %v, want 24300", sig.PutWall)
	}
}

func TestEvaluateVolatilityGates(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	snap := testChain()
	snap.Volatility = 18.1
	_, skip := ev.Evaluate(snap, 1.0)
	if skip == nil || skip.Code != SkipVolTooHigh {
		t.Errorf("vol 18.1: skip = %+v, want %s", skip, SkipVolTooHigh)
	}
	if skip != nil && !strings.Contains(skip.Reason, "too HIGH") {
		t.Errorf("skip reason = %q", skip.Reason)
	}

	snap = testChain()
	snap.Volatility = 9.9
	_, skip = ev.Evaluate(snap, 1.0)
	if skip == nil || skip.Code != SkipVolTooLow {
		t.Errorf("vol 9.9: skip = %+v, want %s", skip, SkipVolTooLow)
	}

	// Band is inclusive on both ends.
	for _, vol := range []float64{10, 18} {
		snap = testChain()
		snap.Volatility = vol
		if _, skip := ev.Evaluate(snap, 1.0); skip != nil && (skip.Code == SkipVolTooHigh || skip.Code == SkipVolTooLow) {
			t.Errorf("vol %v rejected by volatility gate: %s", vol, skip.Reason)
		}
	}
}

func TestEvaluateThinChain(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	snap := testChain()
	snap.Strikes = snap.Strikes[3:7] // ATM lands at the edge
	snap.Spot = 24460

	_, skip := ev.Evaluate(snap, 1.0)
	if skip == nil || skip.Code != SkipNotEnoughStrikes {
		t.Errorf("thin chain: skip = %+v, want %s", skip, SkipNotEnoughStrikes)
	}
}

func TestEvaluateWingPremiumGate(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	snap := testChain()
	snap.Strikes[5].CallLastPrice = 14.5 // sell CE leg below the floor
	_, skip := ev.Evaluate(snap, 1.0)
	if skip == nil || skip.Code != SkipWingPremiumLow {
		t.Errorf("cheap CE leg: skip = %+v, want %s", skip, SkipWingPremiumLow)
	}
	if skip != nil && !strings.Contains(skip.Reason, "CE leg") {
		t.Errorf("skip reason = %q, want CE leg mention", skip.Reason)
	}

	snap = testChain()
	snap.Strikes[3].PutLastPrice = 10 // sell PE leg below the floor
	_, skip = ev.Evaluate(snap, 1.0)
	if skip == nil || skip.Code != SkipWingPremiumLow {
		t.Errorf("cheap PE leg: skip = %+v, want %s", skip, SkipWingPremiumLow)
	}
	if skip != nil && !strings.Contains(skip.Reason, "PE leg") {
		t.Errorf("skip reason = %q, want PE leg mention", skip.Reason)
	}
}

func TestEvaluateNetPremiumGate(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	// Wings pass individually but the combined credit is 31: (20-2)+(16-3).
	snap := testChain()
	snap.Strikes[5].CallLastPrice = 20
	snap.Strikes[7].CallLastPrice = 2
	snap.Strikes[3].PutLastPrice = 16
	snap.Strikes[1].PutLastPrice = 3

	_, skip := ev.Evaluate(snap, 1.0)
	if skip == nil || skip.Code != SkipNetPremiumLow {
		t.Errorf("net 31: skip = %+v, want %s", skip, SkipNetPremiumLow)
	}
	if skip != nil && !strings.Contains(skip.Reason, "31.00") {
		t.Errorf("skip reason = %q, want the computed net premium", skip.Reason)
	}
}

func TestEvaluateMissingWingQuote(t *testing.T) {
	ev := NewEvaluator(DefaultConfig())

	// Drop the 24650 row entirely: the buy CE leg reads as zero premium and
	// the trade is still evaluated.
	snap := testChain()
	snap.Strikes = append(snap.Strikes[:7], snap.Strikes[8:]...)

	sig, skip := ev.Evaluate(snap, 1.0)
	if skip != nil {
		t.Fatalf("Evaluate() skipped: %s", skip.Reason)
	}
	if sig.BuyCallPremium != 0 {
		t.Errorf("buy CE premium = %v, want 0 for missing strike", sig.BuyCallPremium)
	}
	// (42-0)+(38-4) = 76
	if sig.NetPremium != 76 {
		t.Errorf("net premium = %v, want 76", sig.NetPremium)
	}
}

func TestFindATMIndex(t *testing.T) {
	strikes := testChain().Strikes

	tests := []struct {
		spot float64
		want int
	}{
		{24512, 4},
		{24524, 4},
		{24526, 5},
		{24000, 0},
		{30000, len(strikes) - 1},
	}
	for _, tt := range tests {
		if got := findATMIndex(tt.spot, strikes); got != tt.want {
			t.Errorf("findATMIndex(%v) = %d, want %d", tt.spot, got, tt.want)
		}
	}
}

func TestFindMaxPainAgainstBruteForce(t *testing.T) {
	strikes := testChain().Strikes

	bruteLoss := func(target float64) float64 {
		var loss float64
		for _, q := range strikes {
			if target > q.Strike {
				loss += (target - q.Strike) * float64(q.CallOI)
			}
			if q.Strike > target {
				loss += (q.Strike - target) * float64(q.PutOI)
			}
		}
		return loss
	}

	got := findMaxPain(strikes)
	for _, q := range strikes {
		if bruteLoss(q.Strike) < bruteLoss(got) {
			t.Errorf("findMaxPain() = %v but %v has lower writer loss", got, q.Strike)
		}
	}
}

func TestFindMaxPainTieTakesLowestStrike(t *testing.T) {
	// Symmetric OI, two strikes: both targets yield identical loss.
	strikes := []models.StrikeQuote{
		{Strike: 24400, CallOI: 1000, PutOI: 1000},
		{Strike: 24500, CallOI: 1000, PutOI: 1000},
	}
	if got := findMaxPain(strikes); got != 24400 {
		t.Errorf("findMaxPain() tie = %v, want 24400", got)
	}
}

func TestFindOIWallsTieTakesLowestStrike(t *testing.T) {
	strikes := []models.StrikeQuote{
		{Strike: 24400, CallOI: 5000, PutOI: 9000},
		{Strike: 24500, CallOI: 5000, PutOI: 9000},
	}
	callWall, putWall := findOIWalls(strikes)
	if callWall != 24400 || putWall != 24400 {
		t.Errorf("findOIWalls() tie = %v/%v, want 24400/24400", callWall, putWall)
	}
}

func TestScoreSignal(t *testing.T) {
	tests := []struct {
		name                         string
		vol, pcr, net                float64
		callWall, putWall            float64
		sellCall, sellPut            float64
		want                         int
	}{
		{
			name: "everything aligned",
			vol:  13.5, pcr: 1.1, net: 85,
			callWall: 24650, putWall: 24300, sellCall: 24550, sellPut: 24450,
			want: 100, // 30+20+25+15+10
		},
		{
			name: "edges of every band",
			vol:  10.5, pcr: 0.8, net: 45,
			callWall: 24500, putWall: 24500, sellCall: 24550, sellPut: 24450,
			want: 35, // 15+10+10, both walls breached
		},
		{
			name: "nothing scores",
			vol:  18, pcr: 2.0, net: 39,
			callWall: 24500, putWall: 24500, sellCall: 24550, sellPut: 24450,
			want: 15, // only the outer volatility band
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreSignal(tt.vol, tt.pcr, tt.net, tt.callWall, tt.putWall, tt.sellCall, tt.sellPut)
			if got != tt.want {
				t.Errorf("scoreSignal() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score int
		want  models.SignalGrade
	}{
		{100, models.GradeA},
		{70, models.GradeA},
		{69, models.GradeB},
		{50, models.GradeB},
		{49, models.GradeC},
		{0, models.GradeC},
	}
	for _, tt := range tests {
		if got := gradeFor(tt.score); got != tt.want {
			t.Errorf("gradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestEvaluateRiskNumbersConsistent(t *testing.T) {
	snap := testChain()
	ev := NewEvaluator(DefaultConfig())

	sig, skip := ev.Evaluate(snap, 1.0)
	if skip != nil {
		t.Fatalf("Evaluate() skipped: %s", skip.Reason)
	}

	lot := 50.0
	if math.Abs(sig.MaxProfit-sig.NetPremium*lot) > 1e-9 {
		t.Errorf("max profit %v != net*lot %v", sig.MaxProfit, sig.NetPremium*lot)
	}
	if math.Abs(sig.MaxLoss-(sig.SpreadWidth-sig.NetPremium)*lot) > 1e-9 {
		t.Errorf("max loss %v != (width-net)*lot", sig.MaxLoss)
	}
	if sig.TargetExit >= sig.NetPremium {
		t.Errorf("target exit %v not below entry premium %v", sig.TargetExit, sig.NetPremium)
	}
	if sig.StopLoss <= sig.NetPremium {
		t.Errorf("stop loss %v not above entry premium %v", sig.StopLoss, sig.NetPremium)
	}
	if sig.BuyCallStrike-sig.SellCallStrike != sig.SpreadWidth {
		t.Errorf("call side width = %v, want %v", sig.BuyCallStrike-sig.SellCallStrike, sig.SpreadWidth)
	}
	if sig.SellPutStrike-sig.BuyPutStrike != sig.SpreadWidth {
		t.Errorf("put side width = %v, want %v", sig.SellPutStrike-sig.BuyPutStrike, sig.SpreadWidth)
	}
}

func TestEntryPremiumRoundTripsThroughMonitor(t *testing.T) {
	snap := testChain()
	ev := NewEvaluator(DefaultConfig())

	sig, skip := ev.Evaluate(snap, 1.0)
	if skip != nil {
		t.Fatalf("Evaluate() skipped: %s", skip.Reason)
	}

	// Repricing the projected position against the entry snapshot must
	// reproduce the signal's own net premium.
	pos := sig.OpenPosition()
	if got := pos.CurrentPremium(snap); math.Abs(got-sig.NetPremium) > 1e-9 {
		t.Errorf("repriced premium = %v, want entry net %v", got, sig.NetPremium)
	}
}
