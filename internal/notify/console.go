package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/strategy"
)

// ConsoleNotifier writes plain-text signals to a writer. Used by dry runs
// and whenever Telegram credentials are absent.
type ConsoleNotifier struct {
	w io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (c *ConsoleNotifier) SendEntry(_ context.Context, sig *models.Signal) error {
	fmt.Fprintf(c.w, "ENTRY SIGNAL [grade %s, score %d/100]\n", sig.Grade, sig.Score)
	fmt.Fprintf(c.w, "  spot %.2f  vix %.2f  pcr %.2f  expiry %s (%s)\n",
		sig.Spot, sig.Volatility, sig.PutCallRatio, sig.Expiry, sig.Provenance)
	fmt.Fprintf(c.w, "  SELL %.0f CE @ %.2f / BUY %.0f CE @ %.2f\n",
		sig.SellCallStrike, sig.SellCallPremium, sig.BuyCallStrike, sig.BuyCallPremium)
	fmt.Fprintf(c.w, "  SELL %.0f PE @ %.2f / BUY %.0f PE @ %.2f\n",
		sig.SellPutStrike, sig.SellPutPremium, sig.BuyPutStrike, sig.BuyPutPremium)
	fmt.Fprintf(c.w, "  net %.2f  target %.2f  stop %.2f  max profit %.0f  max loss %.0f\n",
		sig.NetPremium, sig.TargetExit, sig.StopLoss, sig.MaxProfit, sig.MaxLoss)
	fmt.Fprintf(c.w, "  max pain %.0f  ce wall %.0f  pe wall %.0f\n",
		sig.MaxPain, sig.CallWall, sig.PutWall)
	return nil
}

func (c *ConsoleNotifier) SendSkip(_ context.Context, skip *strategy.Skip, spot, vix float64) error {
	fmt.Fprintf(c.w, "NO SIGNAL: %s (spot %.2f, vix %.2f)\n", skip.Reason, spot, vix)
	return nil
}

func (c *ConsoleNotifier) SendExit(_ context.Context, pos *models.OpenPosition, decision *strategy.Decision) error {
	fmt.Fprintf(c.w, "EXIT SIGNAL: %s\n", decision.Detail)
	fmt.Fprintf(c.w, "  entry premium %.2f  current %.2f  pnl/lot %+.0f\n",
		pos.NetPremium, decision.CurrentPremium, decision.PnLPerLot)
	return nil
}

func (c *ConsoleNotifier) SendError(_ context.Context, msg string) error {
	fmt.Fprintf(c.w, "BOT ERROR: %s\n", msg)
	return nil
}

func (c *ConsoleNotifier) SendStartup(_ context.Context) error {
	fmt.Fprintln(c.w, "bot starting up")
	return nil
}

var _ Notifier = (*ConsoleNotifier)(nil)
