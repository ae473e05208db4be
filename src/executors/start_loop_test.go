package executors

import (
	"testing"

	"tradeorchestrator/src/connectors"
	"tradeorchestrator/src/instruments"
)

// Verifies the alpaca branch builds trading and data connectors and routes
// crypto bars to Binance.
func TestBuildGatewayAlpaca(t *testing.T) {
	oldTrading := newAlpacaConnector
	oldData := newAlpacaMarketData
	oldBinance := newBinanceMarketData
	t.Cleanup(func() {
		newAlpacaConnector = oldTrading
		newAlpacaMarketData = oldData
		newBinanceMarketData = oldBinance
	})

	tradingBuilt := false
	newAlpacaConnector = func(cfg connectors.Config) *connectors.AlpacaConnector {
		tradingBuilt = true
		return &connectors.AlpacaConnector{}
	}
	dataBuilt := false
	newAlpacaMarketData = func(cfg connectors.Config) *connectors.AlpacaMarketData {
		dataBuilt = true
		return &connectors.AlpacaMarketData{}
	}
	binanceBuilt := false
	newBinanceMarketData = func() *connectors.BinanceMarketData {
		binanceBuilt = true
		return &connectors.BinanceMarketData{}
	}

	gateway, tradovate, err := buildGateway(Config{TargetBroker: "alpaca"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gateway == nil {
		t.Fatal("expected a gateway")
	}
	if tradovate != nil {
		t.Fatal("alpaca gateway must not carry a tradovate connector")
	}

	if !tradingBuilt {
		t.Fatal("expected alpaca trading connector to be built")
	}
	if !dataBuilt {
		t.Fatal("expected alpaca market data connector to be built")
	}
	if !binanceBuilt {
		t.Fatal("expected binance market data connector to be built")
	}
}

// Verifies the tradovate branch builds the futures connector with an
// instrument store while market data still comes from alpaca and binance.
func TestBuildGatewayTradovate(t *testing.T) {
	oldTradovate := newTradovateConnector
	oldData := newAlpacaMarketData
	oldBinance := newBinanceMarketData
	t.Cleanup(func() {
		newTradovateConnector = oldTradovate
		newAlpacaMarketData = oldData
		newBinanceMarketData = oldBinance
	})

	tradovateBuilt := false
	newTradovateConnector = func(cfg connectors.Config, store instruments.Store) *connectors.TradovateConnector {
		tradovateBuilt = true
		if store == nil {
			t.Fatal("expected an instrument store for tradovate")
		}
		return &connectors.TradovateConnector{}
	}
	newAlpacaMarketData = func(cfg connectors.Config) *connectors.AlpacaMarketData {
		return &connectors.AlpacaMarketData{}
	}
	newBinanceMarketData = func() *connectors.BinanceMarketData {
		return &connectors.BinanceMarketData{}
	}

	gateway, tradovate, err := buildGateway(Config{TargetBroker: "tradovate"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gateway == nil {
		t.Fatal("expected a gateway")
	}
	if tradovate == nil {
		t.Fatal("tradovate gateway must expose its connector for the order stream")
	}
	if !tradovateBuilt {
		t.Fatal("expected tradovate connector to be built")
	}
}

func TestBuildGatewayUnsupportedBroker(t *testing.T) {
	if _, _, err := buildGateway(Config{TargetBroker: "robinhood"}); err == nil {
		t.Fatal("expected error for unsupported broker")
	}
}

// Encrypted credentials are decrypted before reaching the connectors; empty
// fields are left alone.
func TestConnectorConfigDecryptsCredentials(t *testing.T) {
	oldDecrypt := decryptString
	t.Cleanup(func() { decryptString = oldDecrypt })

	t.Setenv("ALPACA_KEY_ID", "enc:key")
	t.Setenv("ALPACA_SECRET_KEY", "enc:secret")
	t.Setenv("TRADOVATE_PASSWORD", "")
	t.Setenv("TRADOVATE_SECRET", "")

	decryptString = func(encoded string) (string, error) {
		return "plain-" + encoded, nil
	}

	connCfg, err := connectorConfig(Config{CredentialsEncrypted: true})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if connCfg.AlpacaKeyID != "plain-enc:key" {
		t.Fatalf("key not decrypted: %s", connCfg.AlpacaKeyID)
	}
	if connCfg.AlpacaSecretKey != "plain-enc:secret" {
		t.Fatalf("secret not decrypted: %s", connCfg.AlpacaSecretKey)
	}
	if connCfg.TradovatePassword != "" {
		t.Fatalf("empty credential must stay empty, got %s", connCfg.TradovatePassword)
	}
}

func TestConnectorConfigPlaintextSkipsDecryption(t *testing.T) {
	oldDecrypt := decryptString
	t.Cleanup(func() { decryptString = oldDecrypt })

	t.Setenv("ALPACA_KEY_ID", "raw-key")

	decryptString = func(encoded string) (string, error) {
		t.Fatal("decrypt must not be called for plaintext credentials")
		return "", nil
	}

	connCfg, err := connectorConfig(Config{CredentialsEncrypted: false})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if connCfg.AlpacaKeyID != "raw-key" {
		t.Fatalf("plaintext credential must pass through, got %s", connCfg.AlpacaKeyID)
	}
}
