package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PortfolioName        string        `envconfig:"PORTFOLIO_NAME" default:"paper-main"`
	TargetBroker         string        `envconfig:"TARGET_BROKER" default:"alpaca"`
	Providers            []string      `envconfig:"PROVIDERS"`
	LoopPeriod           time.Duration `envconfig:"LOOP_PERIOD" default:"1m"`
	HeldIntentExpiry     time.Duration `envconfig:"HELD_INTENT_EXPIRY" default:"24h"`
	CredentialsEncrypted bool          `envconfig:"CREDENTIALS_ENCRYPTED" default:"false"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
