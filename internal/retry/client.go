package retry

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/marketdata"
	"github.com/earnmater-design/nifty-signal-bot/internal/models"
)

type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Timeout        time.Duration
}

var DefaultConfig = Config{
	MaxRetries:     3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	Timeout:        2 * time.Minute,
}

// Client wraps a market data provider with retry on transient failures.
type Client struct {
	provider marketdata.Provider
	logger   *log.Logger
	config   Config
}

func NewClient(provider marketdata.Provider, logger *log.Logger, config ...Config) *Client {
	cfg := DefaultConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	return &Client{
		provider: provider,
		logger:   logger,
		config:   cfg,
	}
}

// GetSnapshot fetches the option chain, retrying transient errors with
// exponential backoff plus jitter.
func (c *Client) GetSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	backoff := c.config.InitialBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		select {
		case <-fetchCtx.Done():
			return nil, fmt.Errorf("snapshot fetch timed out after %v: %w", c.config.Timeout, fetchCtx.Err())
		default:
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("operation canceled: %w", ctx.Err())
		}

		snapshot, err := c.provider.GetSnapshot(fetchCtx)
		if err == nil {
			if attempt > 0 {
				c.logger.Printf("Snapshot fetch succeeded on attempt %d", attempt+1)
			}
			return snapshot, nil
		}

		lastErr = err
		c.logger.Printf("Snapshot fetch attempt %d/%d failed: %v", attempt+1, c.config.MaxRetries+1, err)

		if c.isTransientError(err) && attempt < c.config.MaxRetries {
			c.logger.Printf("Transient error detected, retrying in %v", backoff)
			select {
			case <-time.After(backoff):
				backoff = c.calculateNextBackoff(backoff)
			case <-fetchCtx.Done():
				return nil, fmt.Errorf("snapshot fetch timed out during backoff: %w", fetchCtx.Err())
			case <-ctx.Done():
				return nil, fmt.Errorf("operation canceled during backoff: %w", ctx.Err())
			}
		} else {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch snapshot after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

// GetVolatility delegates to the wrapped provider without retry; volatility
// is always fetched right after a successful snapshot.
func (c *Client) GetVolatility(ctx context.Context) (float64, error) {
	return c.provider.GetVolatility(ctx)
}

func (c *Client) calculateNextBackoff(currentBackoff time.Duration) time.Duration {
	backoff := time.Duration(float64(currentBackoff) * 1.5)
	if backoff > c.config.MaxBackoff {
		backoff = c.config.MaxBackoff
	}

	maxJitter := int64(backoff / 4)
	if maxJitter > 0 {
		jitterVal, err := rand.Int(rand.Reader, big.NewInt(maxJitter))
		if err != nil {
			log.Printf("Failed to generate jitter: %v", err)
		} else {
			jitter := time.Duration(jitterVal.Int64())
			backoff += jitter
		}
	}

	return backoff
}

func (c *Client) isTransientError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"server error",
		"rate limit",
		"429", // HTTP 429 Too Many Requests
		"502", // HTTP 502 Bad Gateway
		"503", // HTTP 503 Service Unavailable
		"504", // HTTP 504 Gateway Timeout
		"network",
		"dns",
		"tcp",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

var _ marketdata.Provider = (*Client)(nil)
