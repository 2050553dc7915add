package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/config"
	"github.com/earnmater-design/nifty-signal-bot/internal/dashboard"
	"github.com/earnmater-design/nifty-signal-bot/internal/marketdata"
	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/notify"
	"github.com/earnmater-design/nifty-signal-bot/internal/storage"
	"github.com/earnmater-design/nifty-signal-bot/internal/strategy"
	"golang.org/x/sync/errgroup"
)

// fallbackVIX is used when the volatility feed fails but the chain itself
// came back fine.
const fallbackVIX = 13.0

// Bot wires the provider, evaluator, monitor, storage, and notifier into the
// entry and exit workflows.
type Bot struct {
	config    *config.Config
	provider  marketdata.Provider
	storage   storage.Interface
	notifier  notify.Notifier
	evaluator *strategy.Evaluator
	monitor   *strategy.Monitor
	state     *dashboard.State
	logger    *log.Logger
	now       func() time.Time
}

// fetchSnapshot pulls the option chain and attaches a volatility reading.
// A failed volatility fetch degrades to a fallback estimate rather than
// aborting the cycle.
func (b *Bot) fetchSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	snapshot, err := b.provider.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if snapshot.Volatility == 0 {
		vix, err := b.provider.GetVolatility(ctx)
		if err != nil {
			b.logger.Printf("VIX fetch failed, using fallback %.1f: %v", fallbackVIX, err)
			vix = fallbackVIX
		}
		snapshot.Volatility = vix
	}

	if b.state != nil {
		b.state.RecordSnapshot(snapshot)
	}
	return snapshot, nil
}

// RunEntry performs one entry evaluation: fetch, evaluate, notify, and
// persist the position when a signal fires.
func (b *Bot) RunEntry(ctx context.Context) error {
	b.logger.Println("=== ENTRY MODE ===")

	if !b.config.IsWithinTradingHours(b.now()) {
		b.logger.Println("Market is closed. Skipping.")
		return nil
	}

	if _, open := b.storage.Load(); open {
		b.logger.Println("Position already open. Skipping entry.")
		return nil
	}

	snapshot, err := b.fetchSnapshot(ctx)
	if err != nil {
		b.logger.Printf("Snapshot fetch failed: %v", err)
		if nerr := b.notifier.SendError(ctx, "Could not fetch NSE option chain. NSE may be down."); nerr != nil {
			b.logger.Printf("Error notification failed: %v", nerr)
		}
		return err
	}

	pcr := snapshot.PutCallRatio()
	b.logger.Printf("Spot=%.0f  VIX=%.2f  PCR=%.2f  Expiry=%s  Strikes=%d",
		snapshot.Spot, snapshot.Volatility, pcr, snapshot.Expiry, len(snapshot.Strikes))

	signal, skip := b.evaluator.Evaluate(snapshot, pcr)
	if b.state != nil {
		b.state.RecordSignal(signal, skip)
	}

	if signal != nil {
		b.logger.Printf("Signal Grade=%s Score=%d Premium=%.2f", signal.Grade, signal.Score, signal.NetPremium)
		if err := b.notifier.SendEntry(ctx, signal); err != nil {
			return fmt.Errorf("sending entry signal: %w", err)
		}
		if err := b.storage.Save(signal.OpenPosition()); err != nil {
			return fmt.Errorf("persisting position: %w", err)
		}
		return nil
	}

	b.logger.Printf("No signal: %s", skip.Reason)
	if err := b.notifier.SendSkip(ctx, skip, snapshot.Spot, snapshot.Volatility); err != nil {
		return fmt.Errorf("sending skip notice: %w", err)
	}
	return nil
}

// RunExit performs one exit check of the persisted position. The slot is
// cleared only after the exit notification succeeds.
func (b *Bot) RunExit(ctx context.Context) error {
	b.logger.Println("=== EXIT CHECK ===")

	pos, open := b.storage.Load()
	if !open {
		b.logger.Println("No open position to monitor.")
		return nil
	}

	if !b.config.IsWithinTradingHours(b.now()) {
		b.logger.Println("Market closed.")
		return nil
	}

	snapshot, err := b.fetchSnapshot(ctx)
	if err != nil {
		b.logger.Printf("Snapshot fetch failed for exit check: %v", err)
		return err
	}

	decision := b.monitor.Check(pos, snapshot, b.now())
	if b.state != nil {
		b.state.RecordDecision(&decision)
	}
	b.logger.Printf("Current premium: %.2f  Target: %.2f  SL: %.2f",
		decision.CurrentPremium, pos.TargetExit, pos.StopLoss)

	if !decision.ShouldExit {
		b.logger.Println("Holding position, no exit condition met.")
		return nil
	}

	if err := b.notifier.SendExit(ctx, pos, &decision); err != nil {
		return fmt.Errorf("sending exit signal: %w", err)
	}
	if err := b.storage.Clear(); err != nil {
		return fmt.Errorf("clearing position slot: %w", err)
	}
	b.logger.Printf("Exit signal sent: %s", decision.Reason)
	return nil
}

// RunDryRun evaluates an entry against the current market and prints the
// outcome. Nothing is persisted and nothing reaches Telegram; the trading
// hours gate is bypassed.
func (b *Bot) RunDryRun(ctx context.Context) error {
	b.logger.Println("=== DRY RUN ===")

	snapshot, err := b.fetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot fetch failed: %w", err)
	}

	pcr := snapshot.PutCallRatio()
	b.logger.Printf("Spot=%.0f  VIX=%.2f  PCR=%.2f  Expiry=%s  Strikes=%d",
		snapshot.Spot, snapshot.Volatility, pcr, snapshot.Expiry, len(snapshot.Strikes))

	signal, skip := b.evaluator.Evaluate(snapshot, pcr)
	if signal != nil {
		return b.notifier.SendEntry(ctx, signal)
	}
	return b.notifier.SendSkip(ctx, skip, snapshot.Spot, snapshot.Volatility)
}

// RunServe runs the long-lived daemon: an entry attempt when no position is
// open, exit checks while one is, on every poll tick, plus the optional
// dashboard server. Returns when ctx is canceled.
func (b *Bot) RunServe(ctx context.Context, srv *dashboard.Server) error {
	if err := b.notifier.SendStartup(ctx); err != nil {
		b.logger.Printf("Startup notification failed: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if srv != nil {
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("dashboard server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(b.config.PollInterval())
		defer ticker.Stop()

		b.runCycle(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				b.runCycle(ctx)
			}
		}
	})

	return g.Wait()
}

// runCycle runs one poll tick. Errors are logged, not fatal; the next tick
// retries from scratch.
func (b *Bot) runCycle(ctx context.Context) {
	if !b.config.IsWithinTradingHours(b.now()) {
		return
	}

	var err error
	if _, open := b.storage.Load(); open {
		err = b.RunExit(ctx)
	} else {
		err = b.RunEntry(ctx)
	}
	if err != nil {
		b.logger.Printf("Cycle failed: %v", err)
	}
}
