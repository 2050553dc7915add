package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

type stubSpotSource struct {
	spot    float64
	vix     float64
	spotErr error
	vixErr  error
}

func (s *stubSpotSource) GetSpot(context.Context) (float64, error) { return s.spot, s.spotErr }
func (s *stubSpotSource) GetVIX(context.Context) (float64, error)  { return s.vix, s.vixErr }

var _ SpotSource = (*stubSpotSource)(nil)

func TestSyntheticGetSnapshot(t *testing.T) {
	p := NewSyntheticProvider(&stubSpotSource{spot: 24512, vix: 13.5}, 50)
	p.now = func() time.Time {
		return time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC) // Wednesday
	}

	snap, err := p.GetSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}
	if err := snap.Validate(); err != nil {
		t.Fatalf("synthetic snapshot invalid: %v", err)
	}

	if snap.Provenance != models.ProvenanceEstimated {
		t.Errorf("provenance = %q, want estimated", snap.Provenance)
	}
	if snap.Spot != 24512 || snap.Volatility != 13.5 {
		t.Errorf("spot/vix = %v/%v", snap.Spot, snap.Volatility)
	}
	if snap.Expiry != "03-Sep-2026" {
		t.Errorf("expiry = %q, want next Thursday 03-Sep-2026", snap.Expiry)
	}

	// 10 strikes each side of the rounded ATM.
	if len(snap.Strikes) != 21 {
		t.Fatalf("ladder has %d strikes, want 21", len(snap.Strikes))
	}
	if snap.Strikes[10].Strike != 24500 {
		t.Errorf("center strike = %v, want 24500", snap.Strikes[10].Strike)
	}
	if snap.Strikes[0].Strike != 24000 || snap.Strikes[20].Strike != 25000 {
		t.Errorf("ladder span = %v..%v, want 24000..25000", snap.Strikes[0].Strike, snap.Strikes[20].Strike)
	}
}

func TestSyntheticPremiumsShapedLikeAChain(t *testing.T) {
	p := NewSyntheticProvider(&stubSpotSource{spot: 24512, vix: 13.5}, 50)

	snap, err := p.GetSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}

	// Calls cheapen and puts richen going up the ladder.
	for i := 1; i < len(snap.Strikes); i++ {
		if snap.Strikes[i].CallLastPrice > snap.Strikes[i-1].CallLastPrice {
			t.Errorf("call premium rose with strike at %v", snap.Strikes[i].Strike)
		}
		if snap.Strikes[i].PutLastPrice < snap.Strikes[i-1].PutLastPrice {
			t.Errorf("put premium fell with strike at %v", snap.Strikes[i].Strike)
		}
	}

	// OI is heaviest near the money.
	center := snap.Strikes[10]
	edge := snap.Strikes[0]
	if edge.CallOI >= center.CallOI || edge.PutOI >= center.PutOI {
		t.Errorf("edge OI (%d/%d) not below ATM OI (%d/%d)",
			edge.CallOI, edge.PutOI, center.CallOI, center.PutOI)
	}
}

func TestSyntheticSourceErrors(t *testing.T) {
	boom := errors.New("feed down")

	p := NewSyntheticProvider(&stubSpotSource{spotErr: boom}, 50)
	if _, err := p.GetSnapshot(context.Background()); !errors.Is(err, boom) {
		t.Errorf("spot error not propagated: %v", err)
	}

	p = NewSyntheticProvider(&stubSpotSource{spot: 24512, vixErr: boom}, 50)
	if _, err := p.GetSnapshot(context.Background()); !errors.Is(err, boom) {
		t.Errorf("vix error not propagated: %v", err)
	}

	p = NewSyntheticProvider(&stubSpotSource{spot: -1, vix: 13}, 50)
	if _, err := p.GetSnapshot(context.Background()); err == nil {
		t.Error("non-positive spot accepted")
	}
}

func TestNextWeeklyExpiry(t *testing.T) {
	loc := time.UTC

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midweek rolls to thursday",
			now:  time.Date(2026, 9, 1, 10, 0, 0, 0, loc), // Tuesday
			want: time.Date(2026, 9, 3, 15, 30, 0, 0, loc),
		},
		{
			name: "thursday before close stays today",
			now:  time.Date(2026, 9, 3, 10, 0, 0, 0, loc),
			want: time.Date(2026, 9, 3, 15, 30, 0, 0, loc),
		},
		{
			name: "thursday after close rolls a week",
			now:  time.Date(2026, 9, 3, 16, 0, 0, 0, loc),
			want: time.Date(2026, 9, 10, 15, 30, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextWeeklyExpiry(tt.now); !got.Equal(tt.want) {
				t.Errorf("nextWeeklyExpiry(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
