// Package marketdata supplies option-chain snapshots and volatility
// readings from NSE or a synthetic Black-Scholes model.
package marketdata

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/sony/gobreaker"
)

// Provider defines the contract for fetching market snapshots.
type Provider interface {
	// GetSnapshot returns the current spot, expiry and strike ladder.
	// The ladder is sorted ascending with unique strikes.
	GetSnapshot(ctx context.Context) (*models.MarketSnapshot, error)
	// GetVolatility returns the current India VIX value.
	GetVolatility(ctx context.Context) (float64, error)
}

// CircuitBreakerProvider wraps a Provider with circuit breaker
// functionality so repeated upstream failures stop hammering the API.
type CircuitBreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

// CircuitBreakerSettings configures circuit breaker behavior.
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerProvider creates a wrapper with sensible defaults.
func NewCircuitBreakerProvider(provider Provider) *CircuitBreakerProvider {
	return NewCircuitBreakerProviderWithSettings(provider, CircuitBreakerSettings{
		MaxRequests:  2,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	})
}

// NewCircuitBreakerProviderWithSettings creates a wrapper with custom settings.
func NewCircuitBreakerProviderWithSettings(provider Provider, settings CircuitBreakerSettings) *CircuitBreakerProvider {
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// GetSnapshot wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.GetSnapshot(ctx)
	})
	if err != nil {
		return nil, err
	}
	snap, ok := res.(*models.MarketSnapshot)
	if !ok {
		return nil, errors.New("circuit breaker: type assertion failed")
	}
	return snap, nil
}

// GetVolatility wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetVolatility(ctx context.Context) (float64, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.GetVolatility(ctx)
	})
	if err != nil {
		return 0, err
	}
	v, ok := res.(float64)
	if !ok {
		return 0, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// Ensure wrappers implement Provider at compile time.
var (
	_ Provider = (*CircuitBreakerProvider)(nil)
	_ Provider = (*NSEClient)(nil)
	_ Provider = (*SyntheticProvider)(nil)
)
