package adapters

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/equity-signal-bot/internal/config"
	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/equity-signal-bot/internal/exchange/paper"
	"github.com/ducminhle1904/equity-signal-bot/pkg/data"
)

// Gateways is a guarded broker plus the guarded market data feeding the
// signal providers.
type Gateways struct {
	Broker *exchange.Guarded
	Market *exchange.GuardedMarketData
	// Paper is set when the broker is simulated
	Paper *paper.Broker
}

// Factory creates gateway instances based on configuration
type Factory struct{}

// NewFactory creates a new gateway factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// GetSupportedBrokers returns a list of supported broker names
func (f *Factory) GetSupportedBrokers() []string {
	return []string{"paper", "bybit"}
}

// ValidateConfig validates the broker configuration
func (f *Factory) ValidateConfig(cfg config.BrokerConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "paper":
		if cfg.Paper.StartingCash <= 0 {
			return boterrors.NewConfigurationError("factory", "ValidateConfig", "paper starting cash must be positive")
		}
		return nil
	case "bybit":
		if cfg.Bybit.APIKey == "" || cfg.Bybit.APISecret == "" {
			return boterrors.NewCredentialsError("factory", "ValidateConfig", "Bybit API key and secret are required")
		}
		if cfg.Bybit.Testnet && cfg.Bybit.Demo {
			return boterrors.NewConfigurationError("factory", "ValidateConfig", "Bybit testnet and demo are mutually exclusive")
		}
		return nil
	default:
		return boterrors.NewConfigurationError("factory", "ValidateConfig",
			fmt.Sprintf("broker '%s' is not supported (supported: %v)", cfg.Name, f.GetSupportedBrokers()))
	}
}

// Create builds the configured broker and wraps both it and its market
// data with guard.
func (f *Factory) Create(cfg config.BrokerConfig, guard exchange.GuardConfig) (*Gateways, error) {
	if err := f.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "bybit":
		gw, err := bybit.NewGateway(bybitConfig(cfg.Bybit))
		if err != nil {
			return nil, err
		}
		return &Gateways{
			Broker: exchange.NewGuarded(gw, guard),
			Market: exchange.NewGuardedMarketData("bybit-market", gw, guard),
		}, nil

	default:
		market, name := f.CreateMarketData(cfg)
		broker := paper.NewBroker(market, cfg.Paper.StartingCash)
		return &Gateways{
			Broker: exchange.NewGuarded(broker, guard),
			Market: exchange.NewGuardedMarketData(name, market, guard),
			Paper:  broker,
		}, nil
	}
}

// CreateMarketData picks CSV replay when a data directory is configured and
// Bybit public market data otherwise.
func (f *Factory) CreateMarketData(cfg config.BrokerConfig) (exchange.MarketData, string) {
	if cfg.Paper.DataDir != "" {
		return data.NewCSVMarketData(cfg.Paper.DataDir), "csv"
	}
	public := bybitConfig(cfg.Bybit)
	public.APIKey, public.APISecret = "", ""
	return bybit.NewClient(public), "bybit-market"
}

func bybitConfig(cfg config.BybitConfig) bybit.Config {
	return bybit.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		Testnet:   cfg.Testnet,
		Demo:      cfg.Demo,
		Category:  cfg.Category,
	}
}
