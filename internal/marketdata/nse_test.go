package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

const optionChainFixture = `{
  "records": {
    "underlyingValue": 24512.35,
    "expiryDates": ["05-Sep-2026", "12-Sep-2026"],
    "data": [
      {"strikePrice": 24550, "expiryDate": "05-Sep-2026",
       "CE": {"lastPrice": 42.0, "openInterest": 55000},
       "PE": {"lastPrice": 95.0, "openInterest": 30000}},
      {"strikePrice": 24450, "expiryDate": "05-Sep-2026",
       "CE": {"lastPrice": 110.0, "openInterest": 20000},
       "PE": {"lastPrice": 38.0, "openInterest": 52000}},
      {"strikePrice": 24500, "expiryDate": "05-Sep-2026",
       "CE": {"lastPrice": 75.0, "openInterest": 40000}},
      {"strikePrice": 24500, "expiryDate": "05-Sep-2026",
       "PE": {"lastPrice": 60.0, "openInterest": 45000}},
      {"strikePrice": 24500, "expiryDate": "12-Sep-2026",
       "CE": {"lastPrice": 140.0, "openInterest": 9000},
       "PE": {"lastPrice": 120.0, "openInterest": 7000}}
    ]
  }
}`

const allIndicesFixture = `{
  "data": [
    {"index": "NIFTY 50", "last": 24512.35},
    {"index": "INDIA VIX", "last": 13.42}
  ]
}`

func newNSETestServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	warmupHits := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		warmupHits++
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "session"})
	})
	mux.HandleFunc("/option-chain", func(w http.ResponseWriter, r *http.Request) {
		warmupHits++
	})
	mux.HandleFunc("/api/option-chain-indices", func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("nsit"); err != nil {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(optionChainFixture))
	})
	mux.HandleFunc("/api/allIndices", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(allIndicesFixture))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &warmupHits
}

func TestNSEGetSnapshot(t *testing.T) {
	srv, _ := newNSETestServer(t)
	client := NewNSEClient(srv.URL, 5*time.Second)

	snap, err := client.GetSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}

	if snap.Spot != 24512.35 {
		t.Errorf("spot = %v, want 24512.35", snap.Spot)
	}
	if snap.Expiry != "05-Sep-2026" {
		t.Errorf("expiry = %q, want nearest (05-Sep-2026)", snap.Expiry)
	}
	if snap.Provenance != models.ProvenanceLive {
		t.Errorf("provenance = %q, want live", snap.Provenance)
	}

	// Far expiry rows dropped, duplicates collapsed, sorted ascending.
	if len(snap.Strikes) != 3 {
		t.Fatalf("strikes = %d rows, want 3: %+v", len(snap.Strikes), snap.Strikes)
	}
	wantStrikes := []float64{24450, 24500, 24550}
	for i, want := range wantStrikes {
		if snap.Strikes[i].Strike != want {
			t.Errorf("strike[%d] = %v, want %v", i, snap.Strikes[i].Strike, want)
		}
	}

	if snap.Strikes[2].CallLastPrice != 42 || snap.Strikes[2].CallOI != 55000 {
		t.Errorf("24550 CE = %+v", snap.Strikes[2])
	}
	if snap.Strikes[0].PutLastPrice != 38 || snap.Strikes[0].PutOI != 52000 {
		t.Errorf("24450 PE = %+v", snap.Strikes[0])
	}
}

func TestNSEWarmupRunsOnce(t *testing.T) {
	srv, warmupHits := newNSETestServer(t)
	client := NewNSEClient(srv.URL, 5*time.Second)

	ctx := context.Background()
	if _, err := client.GetSnapshot(ctx); err != nil {
		t.Fatalf("first GetSnapshot() error: %v", err)
	}
	if _, err := client.GetSnapshot(ctx); err != nil {
		t.Fatalf("second GetSnapshot() error: %v", err)
	}

	if *warmupHits != 2 {
		t.Errorf("warmup pages hit %d times, want 2 (once each)", *warmupHits)
	}
}

func TestNSEGetVolatility(t *testing.T) {
	srv, _ := newNSETestServer(t)
	client := NewNSEClient(srv.URL, 5*time.Second)

	vix, err := client.GetVolatility(context.Background())
	if err != nil {
		t.Fatalf("GetVolatility() error: %v", err)
	}
	if vix != 13.42 {
		t.Errorf("vix = %v, want 13.42", vix)
	}
}

func TestNSEGetSnapshotServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "/option-chain" {
			return
		}
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := NewNSEClient(srv.URL, 5*time.Second)
	if _, err := client.GetSnapshot(context.Background()); err == nil {
		t.Error("GetSnapshot() succeeded against a failing server")
	}
}

func TestNSEGetSnapshotNoExpiries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || r.URL.Path == "/option-chain" {
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"records": {"underlyingValue": 24500, "expiryDates": [], "data": []}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewNSEClient(srv.URL, 5*time.Second)
	if _, err := client.GetSnapshot(context.Background()); err == nil {
		t.Error("GetSnapshot() succeeded on a chain with no expiries")
	}
}
