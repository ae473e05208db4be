package executors

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/connectors"
	"tradeorchestrator/src/controller"
	"tradeorchestrator/src/model"
	"tradeorchestrator/src/providers"
	"tradeorchestrator/src/repository"
	"tradeorchestrator/src/risk"
	"tradeorchestrator/src/security"
	"tradeorchestrator/src/sizing"
	"tradeorchestrator/src/utils"
)

// Swappable in tests.
var (
	newAlpacaConnector    = connectors.NewAlpacaConnector
	newAlpacaMarketData   = connectors.NewAlpacaMarketData
	newTradovateConnector = connectors.NewTradovateConnector
	newBinanceMarketData  = connectors.NewBinanceMarketData
	decryptString         = security.DecryptString
	detectPhase           = utils.DetectPhase

	runCycle = func(ctx context.Context, o *controller.Orchestrator, portfolio model.Portfolio, phase string) error {
		return o.RunCycle(ctx, portfolio, phase)
	}
)

// Runtime is the assembled decision loop for one portfolio. The server
// shares the same instances so an operator breaker reset reaches the ladder
// the loop actually trades against.
type Runtime struct {
	Config       Config
	Orchestrator *controller.Orchestrator
	Breaker      *risk.CircuitBreaker

	portfolios *repository.PortfolioRepository
	held       *repository.HeldIntentRepository
	orders     orderSyncStore

	// Set for brokers with a streaming order channel; nil otherwise, in
	// which case cycle reconciliation alone advances order state.
	stream    *connectors.TradovateStream
	tradovate *connectors.TradovateConnector
}

// NewRuntime loads the portfolio, builds the broker gateway and restores the
// circuit breaker from its persisted state.
func NewRuntime(ctx context.Context) (*Runtime, error) {
	config := GetConfig()

	if config.PortfolioName == "" {
		return nil, errors.New("portfolio_name not set")
	}

	portfolioRep := repository.NewPortfolioRepository()
	breakerRep := repository.NewBreakerRepository()

	portfolio, err := portfolioRep.FindByName(ctx, config.PortfolioName)
	if err != nil {
		logger.WithError(err).WithField("portfolio", config.PortfolioName).Error("Failed to load portfolio")
		return nil, err
	}
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio %q not found", config.PortfolioName)
	}

	gateway, tradovate, err := buildGateway(config)
	if err != nil {
		logger.WithError(err).Error("Failed to build broker gateway")
		return nil, err
	}

	riskCfg := risk.GetConfig()
	orchCfg := controller.GetConfig()

	breaker := risk.NewCircuitBreaker(riskCfg)
	state, err := breakerRep.GetByPortfolio(ctx, portfolio.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to load circuit breaker state")
		return nil, err
	}
	if state != nil {
		breaker.Restore(*state)
		logger.WithFields(map[string]interface{}{
			"level":        state.Level,
			"drawdown_pct": state.DrawdownPct.String(),
		}).Info("circuit breaker state restored")
	}

	var provs []providers.Provider
	for _, name := range config.Providers {
		p, err := providers.New(name, nil)
		if err != nil {
			logger.WithError(err).WithField("provider", name).Warn("provider unavailable, continuing without it")
			continue
		}
		provs = append(provs, p)
	}

	deps := controller.Deps{
		Gateway:   gateway,
		Providers: provs,
		Fallback:  providers.NewRuleFallback(),
		LastGood:  providers.NewLastKnownGood(orchCfg.LastGoodMaxAge),
		Sizer:     sizing.NewEngine(sizing.DefaultConfig()),
		Breaker:   breaker,
		Gate:      risk.NewGate(riskCfg, breaker),
		Unwinder:  risk.NewUnwinder(riskCfg),

		Decisions:  repository.NewDecisionRepository(),
		Orders:     repository.NewOrderRepository(),
		Held:       repository.NewHeldIntentRepository(),
		BreakerDB:  breakerRep,
		Exceptions: repository.NewExceptionRepository(),
	}

	rt := &Runtime{
		Config:       config,
		Orchestrator: controller.NewOrchestrator(orchCfg, deps),
		Breaker:      breaker,
		portfolios:   portfolioRep,
		held:         repository.NewHeldIntentRepository(),
		orders:       repository.NewOrderRepository(),
		tradovate:    tradovate,
	}
	if tradovate != nil {
		rt.stream = connectors.NewTradovateStream(connectors.GetConfig().TradovateWSURL, rt.handleOrderUpdate)
	}
	return rt, nil
}

// StartLoop runs the decision cycle on a ticker until the context is
// cancelled or the orchestrator reports a fatal error.
func StartLoop(ctx context.Context) error {
	rt, err := NewRuntime(ctx)
	if err != nil {
		return err
	}
	return rt.StartLoop(ctx)
}

func (rt *Runtime) StartLoop(ctx context.Context) error {
	if rt.stream != nil {
		go rt.runStream(ctx)
	}

	ticker := time.NewTicker(rt.Config.LoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("loop stopped")
			return nil

		case <-ticker.C:
			now := time.Now()
			phase := detectPhase(now)
			if phase == utils.PhaseClosed {
				logger.Debug("market closed, skipping tick")
				continue
			}

			// Pause state can change between ticks; always re-read.
			portfolio, err := rt.portfolios.FindByName(ctx, rt.Config.PortfolioName)
			if err != nil {
				logger.WithError(err).Error("Failed to reload portfolio, skipping tick")
				continue
			}
			if portfolio == nil {
				return fmt.Errorf("portfolio %q disappeared", rt.Config.PortfolioName)
			}

			if expired, err := rt.held.ExpireOlderThan(ctx, now.Add(-rt.Config.HeldIntentExpiry)); err != nil {
				logger.WithError(err).Error("Failed to expire stale held intents")
			} else if expired > 0 {
				logger.WithField("count", expired).Info("expired stale held intents")
			}

			if err := runCycle(ctx, rt.Orchestrator, *portfolio, string(phase)); err != nil {
				if broker.Fatal(err) {
					logger.WithError(err).Error("fatal cycle error, exiting loop")
					return err
				}
				logger.WithError(err).Error("cycle failed, will retry next tick")
			}
		}
	}
}

// buildGateway assembles the trading backend and per-asset-class market data
// for the configured broker. Crypto bars always come from Binance regardless
// of where execution happens. The tradovate connector is returned alongside
// the gateway so the runtime can attach the order update stream to it.
var buildGateway = func(config Config) (controller.Gateway, *connectors.TradovateConnector, error) {
	connCfg, err := connectorConfig(config)
	if err != nil {
		return nil, nil, err
	}

	switch config.TargetBroker {
	case "alpaca":
		facade := broker.NewFacade(newAlpacaConnector(connCfg), newAlpacaMarketData(connCfg)).
			WithDataBackend(model.AssetClassCrypto, newBinanceMarketData())
		return facade, nil, nil

	case "tradovate":
		trading := newTradovateConnector(connCfg, repository.NewInstrumentRepository())
		facade := broker.NewFacade(trading, newAlpacaMarketData(connCfg)).
			WithDataBackend(model.AssetClassCrypto, newBinanceMarketData())
		return facade, trading, nil

	default:
		return nil, nil, fmt.Errorf("broker %s not supported", config.TargetBroker)
	}
}

// connectorConfig returns the connector config with credentials decrypted
// when they are stored encrypted in the environment.
func connectorConfig(config Config) (connectors.Config, error) {
	connCfg := connectors.GetConfig()
	if !config.CredentialsEncrypted {
		return connCfg, nil
	}

	for _, field := range []*string{
		&connCfg.AlpacaKeyID, &connCfg.AlpacaSecretKey,
		&connCfg.TradovatePassword, &connCfg.TradovateSecret,
	} {
		if *field == "" {
			continue
		}
		plain, err := decryptString(*field)
		if err != nil {
			return connectors.Config{}, fmt.Errorf("decrypt broker credential: %w", err)
		}
		*field = plain
	}
	return connCfg, nil
}
