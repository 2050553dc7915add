package retry

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

type flakyProvider struct {
	failures int
	err      error
	calls    int
	snapshot *models.MarketSnapshot
}

func (f *flakyProvider) GetSnapshot(context.Context) (*models.MarketSnapshot, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.snapshot, nil
}

func (f *flakyProvider) GetVolatility(context.Context) (float64, error) {
	return 13.5, nil
}

func fastConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Timeout:        time.Second,
	}
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestGetSnapshotRetriesTransientErrors(t *testing.T) {
	want := &models.MarketSnapshot{Spot: 24512}
	provider := &flakyProvider{
		failures: 2,
		err:      errors.New("connection reset by peer"),
		snapshot: want,
	}
	client := NewClient(provider, testLogger(), fastConfig())

	snap, err := client.GetSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetSnapshot() error: %v", err)
	}
	if snap != want {
		t.Error("GetSnapshot() did not return the provider's snapshot")
	}
	if provider.calls != 3 {
		t.Errorf("provider called %d times, want 3", provider.calls)
	}
}

func TestGetSnapshotDoesNotRetryPermanentErrors(t *testing.T) {
	provider := &flakyProvider{
		failures: 10,
		err:      errors.New("option chain response has no expiry dates"),
	}
	client := NewClient(provider, testLogger(), fastConfig())

	if _, err := client.GetSnapshot(context.Background()); err == nil {
		t.Fatal("GetSnapshot() succeeded against a permanently failing provider")
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1 (no retry)", provider.calls)
	}
}

func TestGetSnapshotExhaustsRetries(t *testing.T) {
	base := errors.New("gateway timeout")
	provider := &flakyProvider{failures: 10, err: base}
	client := NewClient(provider, testLogger(), fastConfig())

	_, err := client.GetSnapshot(context.Background())
	if !errors.Is(err, base) {
		t.Errorf("error = %v, want wrapped %v", err, base)
	}
	if provider.calls != 4 {
		t.Errorf("provider called %d times, want 4 (1 + 3 retries)", provider.calls)
	}
}

func TestGetSnapshotHonorsCancellation(t *testing.T) {
	provider := &flakyProvider{failures: 10, err: errors.New("timeout fetching chain")}
	client := NewClient(provider, testLogger(), Config{
		MaxRetries:     5,
		InitialBackoff: time.Hour, // cancellation must interrupt the backoff
		MaxBackoff:     time.Hour,
		Timeout:        time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() {
		_, err := client.GetSnapshot(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Error("GetSnapshot() succeeded despite cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("GetSnapshot() did not return after cancellation")
	}
}

func TestIsTransientError(t *testing.T) {
	client := NewClient(&flakyProvider{}, testLogger())

	transient := []string{
		"dial tcp: connection refused",
		"request rate limit exceeded",
		"HTTP 503 service unavailable",
		"dns lookup failed",
	}
	for _, msg := range transient {
		if !client.isTransientError(errors.New(msg)) {
			t.Errorf("isTransientError(%q) = false, want true", msg)
		}
	}

	permanent := []string{
		"parsed option chain invalid",
		"VIX index not present in indices response",
	}
	for _, msg := range permanent {
		if client.isTransientError(errors.New(msg)) {
			t.Errorf("isTransientError(%q) = true, want false", msg)
		}
	}
	if client.isTransientError(nil) {
		t.Error("isTransientError(nil) = true")
	}
}
