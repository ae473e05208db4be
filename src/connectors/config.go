package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AlpacaBaseURL     string `envconfig:"ALPACA_BASE_URL" default:"https://paper-api.alpaca.markets"`
	AlpacaDataBaseURL string `envconfig:"ALPACA_DATA_BASE_URL" default:"https://data.alpaca.markets"`
	AlpacaKeyID       string `envconfig:"ALPACA_KEY_ID"`
	AlpacaSecretKey   string `envconfig:"ALPACA_SECRET_KEY"`

	TradovateBaseURL  string `envconfig:"TRADOVATE_BASE_URL" default:"https://demo.tradovateapi.com/v1"`
	TradovateWSURL    string `envconfig:"TRADOVATE_WS_URL" default:"wss://demo.tradovateapi.com/v1/websocket"`
	TradovateUser     string `envconfig:"TRADOVATE_USER"`
	TradovatePassword string `envconfig:"TRADOVATE_PASSWORD"`
	TradovateCID      string `envconfig:"TRADOVATE_CID"`
	TradovateSecret   string `envconfig:"TRADOVATE_SECRET"`

	RequestTimeout  time.Duration `envconfig:"CONNECTOR_REQUEST_TIMEOUT" default:"15s"`
	MaxPages        int           `envconfig:"CONNECTOR_MAX_PAGES" default:"50"`
	RateLimitPerMin int           `envconfig:"CONNECTOR_RATE_LIMIT_PER_MIN" default:"180"`
	InstrumentTTL   time.Duration `envconfig:"INSTRUMENT_CACHE_TTL" default:"24h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
