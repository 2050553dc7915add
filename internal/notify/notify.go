// Package notify delivers entry, skip, and exit signals to the trader.
package notify

import (
	"context"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/strategy"
)

// Notifier delivers trading signals to a human. Implementations must be safe
// for use from a single goroutine; the bot never sends concurrently.
type Notifier interface {
	SendEntry(ctx context.Context, sig *models.Signal) error
	SendSkip(ctx context.Context, skip *strategy.Skip, spot, vix float64) error
	SendExit(ctx context.Context, pos *models.OpenPosition, decision *strategy.Decision) error
	SendError(ctx context.Context, msg string) error
	SendStartup(ctx context.Context) error
}
