package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/models"
	"github.com/earnmater-design/nifty-signal-bot/internal/strategy"
)

const (
	telegramDefaultBaseURL = "https://api.telegram.org"

	divider = "<code>━━━━━━━━━━━━━━━━━━━━━━━━</code>\n"
)

// TelegramNotifier sends HTML-formatted signals via the Telegram Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	client  *http.Client
	baseURL string
	logger  *log.Logger
}

// NewTelegramNotifier creates a notifier. baseURL may be empty for the real
// Telegram API; tests point it at a local server.
func NewTelegramNotifier(token, chatID, baseURL string, logger *log.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == "" {
		return nil, fmt.Errorf("telegram token and chat ID are required")
	}
	if baseURL == "" {
		baseURL = telegramDefaultBaseURL
	}
	return &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *TelegramNotifier) send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram send failed: status %d: %s", resp.StatusCode, string(body))
	}

	t.logger.Printf("Telegram message sent")
	return nil
}

var gradeEmoji = map[models.SignalGrade]string{
	models.GradeA: "🟢",
	models.GradeB: "🟡",
	models.GradeC: "🟠",
}

// SendEntry renders the full entry signal: legs, risk numbers, OI analysis,
// and the grade.
func (t *TelegramNotifier) SendEntry(ctx context.Context, sig *models.Signal) error {
	emoji, ok := gradeEmoji[sig.Grade]
	if !ok {
		emoji = "⚪"
	}

	var b strings.Builder
	b.WriteString("<b>📊 NIFTY IRON CONDOR — ENTRY SIGNAL</b>\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "📈 <b>Spot</b>   : ₹%.0f\n", sig.Spot)
	fmt.Fprintf(&b, "🌡 <b>VIX</b>    : %.2f\n", sig.Volatility)
	fmt.Fprintf(&b, "📉 <b>PCR</b>    : %.2f\n", sig.PutCallRatio)
	fmt.Fprintf(&b, "📅 <b>Expiry</b> : %s\n", sig.Expiry)
	if sig.Provenance == models.ProvenanceEstimated {
		b.WriteString("⚠️ <i>Premiums are model estimates, not live quotes.</i>\n")
	}
	b.WriteString(divider)
	b.WriteString("<b>LEGS TO PLACE:</b>\n")
	fmt.Fprintf(&b, "🔴 SELL <b>%.0f CE</b>  @ ₹%.2f\n", sig.SellCallStrike, sig.SellCallPremium)
	fmt.Fprintf(&b, "🟢 BUY  <b>%.0f CE</b>  @ ₹%.2f\n", sig.BuyCallStrike, sig.BuyCallPremium)
	fmt.Fprintf(&b, "🔴 SELL <b>%.0f PE</b>  @ ₹%.2f\n", sig.SellPutStrike, sig.SellPutPremium)
	fmt.Fprintf(&b, "🟢 BUY  <b>%.0f PE</b>  @ ₹%.2f\n", sig.BuyPutStrike, sig.BuyPutPremium)
	b.WriteString(divider)
	fmt.Fprintf(&b, "💰 <b>Net Premium</b>  : ₹%.2f per unit\n", sig.NetPremium)
	fmt.Fprintf(&b, "🎯 <b>Target Exit</b>  : ₹%.2f (60%% capture)\n", sig.TargetExit)
	fmt.Fprintf(&b, "🛑 <b>Stop Loss</b>    : ₹%.2f (2× premium)\n", sig.StopLoss)
	fmt.Fprintf(&b, "📈 <b>Max Profit</b>   : ₹%.0f / lot\n", sig.MaxProfit)
	fmt.Fprintf(&b, "📉 <b>Max Loss</b>     : ₹%.0f / lot\n", sig.MaxLoss)
	b.WriteString(divider)
	b.WriteString("<b>OI ANALYSIS:</b>\n")
	fmt.Fprintf(&b, "🧱 CE Wall (Resistance): <b>%.0f</b>\n", sig.CallWall)
	fmt.Fprintf(&b, "🧱 PE Wall (Support)   : <b>%.0f</b>\n", sig.PutWall)
	fmt.Fprintf(&b, "⚖️ Max Pain            : <b>%.0f</b>\n", sig.MaxPain)
	b.WriteString(divider)
	fmt.Fprintf(&b, "%s <b>Signal Grade : %s (%d/100)</b>\n", emoji, sig.Grade, sig.Score)
	b.WriteString("⏰ <b>Force exit by 3:15 PM IST</b>\n")
	b.WriteString(divider)
	b.WriteString("<i>⚠️ Signal only. Place trades manually on Zerodha.</i>")

	return t.send(ctx, b.String())
}

// SendSkip reports why no signal fired today.
func (t *TelegramNotifier) SendSkip(ctx context.Context, skip *strategy.Skip, spot, vix float64) error {
	var b strings.Builder
	b.WriteString("<b>🚫 NO SIGNAL TODAY</b>\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "📌 <b>Reason</b>  : %s\n", skip.Reason)
	fmt.Fprintf(&b, "📈 <b>Nifty</b>   : ₹%.0f\n", spot)
	fmt.Fprintf(&b, "🌡 <b>VIX</b>     : %.2f\n", vix)
	b.WriteString(divider)
	b.WriteString("✅ <i>Skipping is also a valid decision. Protect your capital.</i>")

	return t.send(ctx, b.String())
}

// SendExit renders the close-now alert with the legs to unwind and the
// approximate profit and loss.
func (t *TelegramNotifier) SendExit(ctx context.Context, pos *models.OpenPosition, decision *strategy.Decision) error {
	pnlEmoji := "🟢"
	if decision.PnLPerLot < 0 {
		pnlEmoji = "🔴"
	}

	var b strings.Builder
	b.WriteString("<b>🚨 EXIT SIGNAL — CLOSE NOW</b>\n")
	b.WriteString(divider)
	fmt.Fprintf(&b, "📌 <b>Reason</b>          : %s\n", decision.Detail)
	b.WriteString(divider)
	b.WriteString("<b>LEGS TO CLOSE:</b>\n")
	fmt.Fprintf(&b, "🟢 BUY BACK  <b>%.0f CE</b>\n", pos.SellCallStrike)
	fmt.Fprintf(&b, "🔴 SELL      <b>%.0f CE</b>\n", pos.BuyCallStrike)
	fmt.Fprintf(&b, "🟢 BUY BACK  <b>%.0f PE</b>\n", pos.SellPutStrike)
	fmt.Fprintf(&b, "🔴 SELL      <b>%.0f PE</b>\n", pos.BuyPutStrike)
	b.WriteString(divider)
	fmt.Fprintf(&b, "💵 Entry Premium   : ₹%.2f\n", pos.NetPremium)
	fmt.Fprintf(&b, "💵 Current Premium : ₹%.2f\n", decision.CurrentPremium)
	fmt.Fprintf(&b, "%s <b>Approx P&amp;L : ₹%+.0f / lot</b>\n", pnlEmoji, decision.PnLPerLot)
	b.WriteString(divider)
	b.WriteString("<i>⚠️ Close ALL 4 legs simultaneously.</i>")

	return t.send(ctx, b.String())
}

// SendError surfaces an operational failure to the chat.
func (t *TelegramNotifier) SendError(ctx context.Context, msg string) error {
	return t.send(ctx, fmt.Sprintf("🤖 <b>Bot Error</b>\n<code>%s</code>", msg))
}

// SendStartup announces that the bot came up.
func (t *TelegramNotifier) SendStartup(ctx context.Context) error {
	return t.send(ctx,
		"🤖 <b>Nifty Iron Condor Bot is LIVE</b>\n"+
			"Fetching option chain from NSE...\n"+
			"Entry signal will arrive shortly ✅")
}

var _ Notifier = (*TelegramNotifier)(nil)
