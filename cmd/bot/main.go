package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/earnmater-design/nifty-signal-bot/internal/config"
	"github.com/earnmater-design/nifty-signal-bot/internal/dashboard"
	"github.com/earnmater-design/nifty-signal-bot/internal/marketdata"
	"github.com/earnmater-design/nifty-signal-bot/internal/notify"
	"github.com/earnmater-design/nifty-signal-bot/internal/retry"
	"github.com/earnmater-design/nifty-signal-bot/internal/storage"
	"github.com/earnmater-design/nifty-signal-bot/internal/strategy"
	"github.com/sirupsen/logrus"
)

func main() {
	var configPath, mode string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&mode, "mode", "entry", "Run mode: entry | exit | dryrun | serve")
	flag.Parse()

	logger := log.New(os.Stdout, "[BOT] ", log.LstdFlags)

	cfg, err := loadConfig(configPath, mode)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	bot, srv, err := buildBot(cfg, mode, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Println("Shutdown signal received, stopping bot...")
		cancel()
	}()

	switch mode {
	case "entry":
		err = bot.RunEntry(ctx)
	case "exit":
		err = bot.RunExit(ctx)
	case "dryrun":
		err = bot.RunDryRun(ctx)
	case "serve":
		err = bot.RunServe(ctx, srv)
	default:
		logger.Fatalf("Unknown mode: %s. Use: entry | exit | dryrun | serve", mode)
	}
	if err != nil {
		logger.Fatalf("Bot error: %v", err)
	}

	logger.Println("Done.")
}

// loadConfig reads the config file. Dry runs tolerate a missing file and
// fall back to defaults with the synthetic provider.
func loadConfig(path, mode string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if mode == "dryrun" && errors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
			cfg.MarketData.Provider = "synthetic"
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// buildBot assembles the provider chain, storage, notifier, and strategy
// components for the requested mode.
func buildBot(cfg *config.Config, mode string, logger *log.Logger) (*Bot, *dashboard.Server, error) {
	var base marketdata.Provider
	switch cfg.MarketData.Provider {
	case "synthetic":
		source := marketdata.NewYahooSpotSource("", cfg.MarketDataTimeout())
		base = marketdata.NewSyntheticProvider(source, cfg.Strategy.StrikeStep)
	default:
		base = marketdata.NewNSEClient(cfg.MarketData.NSEBaseURL, cfg.MarketDataTimeout())
	}
	provider := retry.NewClient(marketdata.NewCircuitBreakerProvider(base), logger)

	store := storage.NewStore(cfg.Storage.Path)

	var notifier notify.Notifier
	if mode == "dryrun" || cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		if mode != "dryrun" {
			logger.Println("Telegram credentials not set, printing signals to stdout")
		}
		notifier = notify.NewConsoleNotifier(os.Stdout)
	} else {
		tn, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "", logger)
		if err != nil {
			return nil, nil, fmt.Errorf("telegram notifier: %w", err)
		}
		notifier = tn
	}

	stratCfg := strategy.Config{
		MinVolatility:   cfg.Strategy.MinVolatility,
		MaxVolatility:   cfg.Strategy.MaxVolatility,
		MinWingPremium:  cfg.Strategy.MinWingPremium,
		MinNetPremium:   cfg.Strategy.MinNetPremium,
		SpreadWidth:     cfg.Strategy.SpreadWidth,
		StrikeStep:      cfg.Strategy.StrikeStep,
		LotSize:         cfg.Strategy.LotSize,
		TargetExitRatio: cfg.Strategy.TargetExitRatio,
		StopLossRatio:   cfg.Strategy.StopLossRatio,
	}

	state := &dashboard.State{}
	bot := &Bot{
		config:    cfg,
		provider:  provider,
		storage:   store,
		notifier:  notifier,
		evaluator: strategy.NewEvaluator(stratCfg),
		monitor:   strategy.NewMonitor(stratCfg, cfg.ExitCutoff),
		state:     state,
		logger:    logger,
		now:       func() time.Time { return time.Now().In(cfg.Location()) },
	}

	var srv *dashboard.Server
	if mode == "serve" && cfg.Dashboard.Enabled {
		dashLogger := logrus.New()
		if lvl, err := logrus.ParseLevel(cfg.Environment.LogLevel); err == nil {
			dashLogger.SetLevel(lvl)
		}
		srv = dashboard.NewServer(dashboard.Config{
			Port:       cfg.Dashboard.Port,
			AuthToken:  os.Getenv("DASHBOARD_AUTH_TOKEN"),
			MarketOpen: cfg.IsWithinTradingHours,
		}, store, state, dashLogger)
	}

	return bot, srv, nil
}
