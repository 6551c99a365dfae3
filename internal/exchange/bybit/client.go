package bybit

import (
	"strings"
	"sync"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

const demoBaseURL = "https://api-demo.bybit.com"

// Config holds the configuration for the Bybit client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	Demo      bool // demo trading environment
	// Category is "linear" for USDT perpetuals or "spot". Orders and
	// positions need "linear"; market data works with either.
	Category string
}

// Client wraps the Bybit v5 REST client
type Client struct {
	httpClient *bybit_api.Client
	category   string
	testnet    bool
	demo       bool

	lotMu sync.Mutex
	lots  map[string]lotSize
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	var baseURL string
	if config.Demo {
		baseURL = demoBaseURL
	} else if config.Testnet {
		baseURL = bybit_api.TESTNET
	} else {
		baseURL = bybit_api.MAINNET
	}

	category := strings.ToLower(strings.TrimSpace(config.Category))
	if category == "" {
		category = "linear"
	}

	return &Client{
		httpClient: bybit_api.NewBybitHttpClient(
			config.APIKey,
			config.APISecret,
			bybit_api.WithBaseURL(baseURL),
		),
		category: category,
		testnet:  config.Testnet,
		demo:     config.Demo,
		lots:     make(map[string]lotSize),
	}
}

// GetName identifies the gateway in logs and metrics
func (c *Client) GetName() string {
	return "bybit"
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.demo {
		return "demo"
	} else if c.testnet {
		return "testnet"
	}
	return "mainnet"
}

// Category returns the product category used for requests
func (c *Client) Category() string {
	return c.category
}
