// Package config provides configuration management for the signal bot.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Strategy defaults, used when the corresponding YAML keys are unset.
const (
	defaultMinVolatility   = 10.0
	defaultMaxVolatility   = 18.0
	defaultMinWingPremium  = 15.0
	defaultMinNetPremium   = 40.0
	defaultSpreadWidth     = 100.0
	defaultStrikeStep      = 50.0
	defaultLotSize         = 50
	defaultTargetExitRatio = 0.40
	defaultStopLossRatio   = 2.0
	defaultExitCutoff      = "15:15"
	defaultTimezone        = "Asia/Kolkata"
	defaultTradingStart    = "09:15"
	defaultTradingEnd      = "15:30"
	defaultPollInterval    = "5m"
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	MarketData  MarketDataConfig  `yaml:"market_data"`
	Strategy    StrategyConfig    `yaml:"strategy"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Storage     StorageConfig     `yaml:"storage"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// MarketDataConfig defines where snapshots come from.
type MarketDataConfig struct {
	Provider   string `yaml:"provider"` // nse | synthetic
	NSEBaseURL string `yaml:"nse_base_url"`
	Timeout    string `yaml:"timeout"`
}

// StrategyConfig defines evaluator and monitor thresholds.
type StrategyConfig struct {
	MinVolatility   float64 `yaml:"min_volatility"`
	MaxVolatility   float64 `yaml:"max_volatility"`
	MinWingPremium  float64 `yaml:"min_wing_premium"`
	MinNetPremium   float64 `yaml:"min_net_premium"`
	SpreadWidth     float64 `yaml:"spread_width"`
	StrikeStep      float64 `yaml:"strike_step"`
	LotSize         int     `yaml:"lot_size"`
	TargetExitRatio float64 `yaml:"target_exit_ratio"`
	StopLossRatio   float64 `yaml:"stop_loss_ratio"`
	ExitCutoff      string  `yaml:"exit_cutoff"` // "HH:MM" market-local
}

// TelegramConfig defines Bot API delivery settings. Token and chat ID are
// normally supplied through ${TELEGRAM_BOT_TOKEN} / ${TELEGRAM_CHAT_ID}
// expansion in the YAML.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

// ScheduleConfig defines the trading window and exit polling cadence.
type ScheduleConfig struct {
	Timezone     string `yaml:"timezone"`      // e.g., "Asia/Kolkata"
	TradingStart string `yaml:"trading_start"` // "HH:MM"
	TradingEnd   string `yaml:"trading_end"`   // "HH:MM"
	PollInterval string `yaml:"poll_interval"` // exit checks in serve mode
}

// StorageConfig defines where the open-position slot lives.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// DashboardConfig defines the optional status HTTP server.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Default returns a configuration populated entirely from defaults, useful
// for dry runs without a config file.
func Default() *Config {
	c := &Config{}
	c.normalize()
	return c
}

// normalize fills unset fields with defaults.
func (c *Config) normalize() {
	if c.Environment.LogLevel == "" {
		c.Environment.LogLevel = "info"
	}
	if c.MarketData.Provider == "" {
		c.MarketData.Provider = "nse"
	}
	if c.MarketData.Timeout == "" {
		c.MarketData.Timeout = "15s"
	}
	s := &c.Strategy
	if s.MinVolatility == 0 {
		s.MinVolatility = defaultMinVolatility
	}
	if s.MaxVolatility == 0 {
		s.MaxVolatility = defaultMaxVolatility
	}
	if s.MinWingPremium == 0 {
		s.MinWingPremium = defaultMinWingPremium
	}
	if s.MinNetPremium == 0 {
		s.MinNetPremium = defaultMinNetPremium
	}
	if s.SpreadWidth == 0 {
		s.SpreadWidth = defaultSpreadWidth
	}
	if s.StrikeStep == 0 {
		s.StrikeStep = defaultStrikeStep
	}
	if s.LotSize == 0 {
		s.LotSize = defaultLotSize
	}
	if s.TargetExitRatio == 0 {
		s.TargetExitRatio = defaultTargetExitRatio
	}
	if s.StopLossRatio == 0 {
		s.StopLossRatio = defaultStopLossRatio
	}
	if s.ExitCutoff == "" {
		s.ExitCutoff = defaultExitCutoff
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
	if c.Schedule.TradingStart == "" {
		c.Schedule.TradingStart = defaultTradingStart
	}
	if c.Schedule.TradingEnd == "" {
		c.Schedule.TradingEnd = defaultTradingEnd
	}
	if c.Schedule.PollInterval == "" {
		c.Schedule.PollInterval = defaultPollInterval
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "open_position.json"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case "nse", "synthetic":
	default:
		return fmt.Errorf("market_data.provider must be 'nse' or 'synthetic'")
	}
	if _, err := time.ParseDuration(c.MarketData.Timeout); err != nil {
		return fmt.Errorf("market_data.timeout invalid: %w", err)
	}

	s := c.Strategy
	if s.MinVolatility <= 0 || s.MaxVolatility <= 0 || s.MinVolatility >= s.MaxVolatility {
		return fmt.Errorf("strategy volatility band must satisfy 0 < min_volatility < max_volatility")
	}
	if s.MinWingPremium < 0 {
		return fmt.Errorf("strategy.min_wing_premium must be >= 0")
	}
	if s.MinNetPremium <= 0 {
		return fmt.Errorf("strategy.min_net_premium must be > 0")
	}
	if s.SpreadWidth <= 0 {
		return fmt.Errorf("strategy.spread_width must be > 0")
	}
	if s.StrikeStep <= 0 {
		return fmt.Errorf("strategy.strike_step must be > 0")
	}
	if s.LotSize <= 0 {
		return fmt.Errorf("strategy.lot_size must be > 0")
	}
	if s.TargetExitRatio <= 0 || s.TargetExitRatio >= 1 {
		return fmt.Errorf("strategy.target_exit_ratio must be in (0,1)")
	}
	if s.StopLossRatio <= 1 {
		return fmt.Errorf("strategy.stop_loss_ratio must be > 1")
	}
	if _, err := parseClock(s.ExitCutoff); err != nil {
		return fmt.Errorf("strategy.exit_cutoff invalid: %w", err)
	}

	if _, err := time.ParseDuration(c.Schedule.PollInterval); err != nil {
		return fmt.Errorf("schedule.poll_interval invalid: %w", err)
	}
	start, err1 := parseClock(c.Schedule.TradingStart)
	end, err2 := parseClock(c.Schedule.TradingEnd)
	if err1 != nil || err2 != nil || start >= end {
		return fmt.Errorf("schedule trading window invalid (start/end parse/order)")
	}

	if c.Dashboard.Enabled && (c.Dashboard.Port <= 0 || c.Dashboard.Port > 65535) {
		return fmt.Errorf("dashboard.port must be a valid TCP port")
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}

	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Location returns the configured market timezone, falling back to a fixed
// IST offset for minimal containers without tzdata.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// PollInterval returns the configured exit polling interval.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Schedule.PollInterval)
	if err != nil {
		return 5 * time.Minute // default
	}
	return d
}

// MarketDataTimeout returns the configured HTTP timeout for snapshot fetches.
func (c *Config) MarketDataTimeout() time.Duration {
	d, err := time.ParseDuration(c.MarketData.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// ExitCutoff returns the forced-exit time-of-day in the market timezone
// applied to the given day.
func (c *Config) ExitCutoff(day time.Time) time.Time {
	loc := c.Location()
	day = day.In(loc)
	mins, err := parseClock(c.Strategy.ExitCutoff)
	if err != nil {
		mins = 15*60 + 15
	}
	return time.Date(day.Year(), day.Month(), day.Day(), mins/60, mins%60, 0, 0, loc)
}

// IsWithinTradingHours checks if the given time falls within the configured
// trading window on a weekday.
func (c *Config) IsWithinTradingHours(now time.Time) bool {
	loc := c.Location()
	today := now.In(loc)

	if today.Weekday() == time.Saturday || today.Weekday() == time.Sunday {
		return false
	}

	start, err1 := parseClock(c.Schedule.TradingStart)
	end, err2 := parseClock(c.Schedule.TradingEnd)
	if err1 != nil || err2 != nil {
		// Safe defaults if misconfigured
		start = 9*60 + 15
		end = 15*60 + 30
	}

	mins := today.Hour()*60 + today.Minute()
	return mins >= start && mins <= end
}
