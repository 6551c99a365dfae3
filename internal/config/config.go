package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/risk"
	"github.com/ducminhle1904/equity-signal-bot/internal/strategy"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration
type Config struct {
	SymbolsFile string `json:"symbols_file" yaml:"symbols_file"`
	StateFile   string `json:"state_file" yaml:"state_file"`
	LogDir      string `json:"log_dir" yaml:"log_dir"`
	KeepDays    int    `json:"keep_days" yaml:"keep_days"`
	Strategy    string `json:"strategy" yaml:"strategy"`
	HistoryDays int    `json:"history_days" yaml:"history_days"`

	Risk          risk.Config        `json:"risk" yaml:"risk"`
	Order         OrderConfig        `json:"order" yaml:"order"`
	Schedule      ScheduleConfig     `json:"schedule" yaml:"schedule"`
	Broker        BrokerConfig       `json:"broker" yaml:"broker"`
	Notifications NotificationConfig `json:"notifications" yaml:"notifications"`
	Monitoring    MonitoringConfig   `json:"monitoring" yaml:"monitoring"`
}

// OrderConfig is applied to every market order
type OrderConfig struct {
	Qty         float64 `json:"qty" yaml:"qty"`
	TimeInForce string  `json:"time_in_force" yaml:"time_in_force"`
}

// ScheduleConfig defines the trading session and loop pacing
type ScheduleConfig struct {
	Timezone       string   `json:"timezone" yaml:"timezone"`
	SessionOpen    string   `json:"session_open" yaml:"session_open"`
	SessionClose   string   `json:"session_close" yaml:"session_close"`
	CycleInterval  Duration `json:"cycle_interval" yaml:"cycle_interval"`
	ClosedInterval Duration `json:"closed_interval" yaml:"closed_interval"`
	CallTimeout    Duration `json:"call_timeout" yaml:"call_timeout"`
}

// BrokerConfig selects and configures the gateway
type BrokerConfig struct {
	Name  string      `json:"name" yaml:"name"`
	Paper PaperConfig `json:"paper" yaml:"paper"`
	Bybit BybitConfig `json:"bybit" yaml:"bybit"`
}

// PaperConfig configures the simulated broker
type PaperConfig struct {
	StartingCash float64 `json:"starting_cash" yaml:"starting_cash"`
	// DataDir holds <SYMBOL>.csv daily bars; empty uses Bybit public market data
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// BybitConfig holds Bybit credentials and environment
type BybitConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	APISecret string `json:"api_secret" yaml:"api_secret"`
	Demo      bool   `json:"demo" yaml:"demo"`
	Testnet   bool   `json:"testnet" yaml:"testnet"`
	Category  string `json:"category" yaml:"category"`
}

// NotificationConfig holds notification settings
type NotificationConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

// TelegramConfig holds the bot token and target chat
type TelegramConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token,omitempty" yaml:"token"`
	ChatID  string `json:"chat_id,omitempty" yaml:"chat_id"`
}

// MonitoringConfig holds the metrics/health listener
type MonitoringConfig struct {
	// ListenAddr serves /metrics and /health; empty disables the server
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
}

// Default returns a configuration with every default applied and secrets
// taken from the environment
func Default() *Config {
	c := &Config{}
	c.setDefaults()
	c.resolveSecrets()
	return c
}

// Load reads a YAML or JSON file (by extension), resolves ${VAR}
// placeholders, applies defaults and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, boterrors.NewConfigurationError("config", "Load",
			fmt.Sprintf("failed to read config file %s: %v", path, err))
	}

	var c Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &c)
	default:
		err = yaml.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, boterrors.NewConfigurationError("config", "Load",
			fmt.Sprintf("failed to parse config file %s: %v", path, err))
	}

	c.setDefaults()
	c.resolveSecrets()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// setDefaults fills zero values
func (c *Config) setDefaults() {
	if c.SymbolsFile == "" {
		c.SymbolsFile = "symbols.txt"
	}
	if c.StateFile == "" {
		c.StateFile = filepath.Join("data", "entry_prices.json")
	}
	if c.LogDir == "" {
		c.LogDir = "logs"
	}
	if c.KeepDays == 0 {
		c.KeepDays = 15
	}
	if c.Strategy == "" {
		c.Strategy = "hybrid"
	}
	if c.HistoryDays == 0 {
		c.HistoryDays = strategy.DefaultHistoryDays
	}

	// Risk defaults
	def := risk.DefaultConfig()
	if c.Risk.MaxPositionSize == 0 {
		c.Risk.MaxPositionSize = def.MaxPositionSize
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = def.StopLossPct
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = def.TakeProfitPct
	}
	if c.Risk.IntradayProfitPct == 0 {
		c.Risk.IntradayProfitPct = def.IntradayProfitPct
	}

	if c.Order.Qty == 0 {
		c.Order.Qty = 1
	}
	if c.Order.TimeInForce == "" {
		c.Order.TimeInForce = "day"
	}

	// Schedule defaults: US equities regular session
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Schedule.SessionOpen == "" {
		c.Schedule.SessionOpen = "09:30"
	}
	if c.Schedule.SessionClose == "" {
		c.Schedule.SessionClose = "16:00"
	}
	if c.Schedule.CycleInterval == 0 {
		c.Schedule.CycleInterval = Duration(30 * time.Second)
	}
	if c.Schedule.ClosedInterval == 0 {
		c.Schedule.ClosedInterval = Duration(5 * time.Minute)
	}
	if c.Schedule.CallTimeout == 0 {
		c.Schedule.CallTimeout = Duration(15 * time.Second)
	}

	if c.Broker.Name == "" {
		c.Broker.Name = "paper"
	}
	if c.Broker.Paper.StartingCash == 0 {
		c.Broker.Paper.StartingCash = 100000
	}
	if c.Broker.Bybit.Category == "" {
		c.Broker.Bybit.Category = "linear"
	}
}

// resolveSecrets expands ${VAR} placeholders and falls back to the
// conventional environment variables for empty secrets.
func (c *Config) resolveSecrets() {
	c.Broker.Bybit.APIKey = resolveSecret(c.Broker.Bybit.APIKey, "BYBIT_API_KEY")
	c.Broker.Bybit.APISecret = resolveSecret(c.Broker.Bybit.APISecret, "BYBIT_API_SECRET")
	c.Notifications.Telegram.Token = resolveSecret(c.Notifications.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	c.Notifications.Telegram.ChatID = resolveSecret(c.Notifications.Telegram.ChatID, "TELEGRAM_CHAT_ID")
}

// Validate checks every section; errors are CONFIG or CREDENTIALS gateway errors
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return boterrors.NewConfigurationError("config", "Validate", fmt.Sprintf(format, args...))
	}

	if c.KeepDays < 0 {
		return invalid("keep_days must not be negative, got %d", c.KeepDays)
	}
	if _, ok := strategy.New(c.Strategy); !ok {
		return invalid("unknown strategy %q (want one of %v)", c.Strategy, strategy.Names())
	}
	if c.HistoryDays < strategy.MinBars {
		return invalid("history_days must be at least %d, got %d", strategy.MinBars, c.HistoryDays)
	}
	if err := c.Risk.Validate(); err != nil {
		return invalid("risk: %v", err)
	}
	if c.Order.Qty <= 0 {
		return invalid("order.qty must be positive, got %v", c.Order.Qty)
	}
	if _, ok := exchange.LookupTimeInForce(c.Order.TimeInForce); !ok {
		return invalid("order.time_in_force %q is not one of day, gtc, ioc, fok", c.Order.TimeInForce)
	}

	if _, err := c.Location(); err != nil {
		return invalid("schedule.timezone: %v", err)
	}
	open, err := ParseClock(c.Schedule.SessionOpen)
	if err != nil {
		return invalid("schedule.session_open: %v", err)
	}
	closeAt, err := ParseClock(c.Schedule.SessionClose)
	if err != nil {
		return invalid("schedule.session_close: %v", err)
	}
	if closeAt <= open {
		return invalid("schedule.session_close %s must be after session_open %s", c.Schedule.SessionClose, c.Schedule.SessionOpen)
	}
	if c.Schedule.CycleInterval <= 0 || c.Schedule.ClosedInterval <= 0 || c.Schedule.CallTimeout <= 0 {
		return invalid("schedule intervals and call_timeout must be positive")
	}

	switch strings.ToLower(c.Broker.Name) {
	case "paper":
		if c.Broker.Paper.StartingCash <= 0 {
			return invalid("broker.paper.starting_cash must be positive")
		}
	case "bybit":
		if c.Broker.Bybit.APIKey == "" || c.Broker.Bybit.APISecret == "" {
			return boterrors.NewCredentialsError("config", "Validate",
				"bybit broker needs api_key and api_secret (or BYBIT_API_KEY / BYBIT_API_SECRET)")
		}
		if c.Broker.Bybit.Category != "linear" {
			return invalid("broker.bybit.category must be linear for trading, got %q", c.Broker.Bybit.Category)
		}
	default:
		return invalid("unsupported broker %q (want paper or bybit)", c.Broker.Name)
	}

	if c.Notifications.Telegram.Enabled && (c.Notifications.Telegram.Token == "" || c.Notifications.Telegram.ChatID == "") {
		return boterrors.NewCredentialsError("config", "Validate",
			"telegram notifications need token and chat_id (or TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID)")
	}
	return nil
}

// Location loads the schedule timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// ParseClock parses "HH:MM" into an offset from midnight
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
