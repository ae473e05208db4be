package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/model"
)

// Gateway is the slice of the broker facade the orchestrator depends on.
// *broker.Facade satisfies it; tests inject stubs.
type Gateway interface {
	TradingBackend() string
	GetAccount(ctx context.Context) (model.AccountInfo, error)
	GetPositions(ctx context.Context) ([]model.BrokerPosition, error)
	GetClock(ctx context.Context) (model.Clock, error)
	GetBarsMulti(ctx context.Context, assetClass string, symbols []string, start, end time.Time, tf model.Timeframe) (map[string][]model.Bar, error)
	SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error)
	GetOrder(ctx context.Context, brokerOrderID string) (broker.OrderResult, error)
}

// ContextBuilder assembles the per-cycle decision context from live broker
// state plus recent bars. It fails closed: if any of the account, position or
// clock fetches fails, no context is produced and the cycle must not run.
// Stale market data for one symbol only drops that symbol.
type ContextBuilder struct {
	cfg Config
	gw  Gateway
	now func() time.Time
}

func NewContextBuilder(cfg Config, gw Gateway) *ContextBuilder {
	return &ContextBuilder{cfg: cfg, gw: gw, now: time.Now}
}

func (b *ContextBuilder) Build(ctx context.Context, portfolio model.Portfolio) (model.DecisionContext, error) {
	var (
		wg        sync.WaitGroup
		account   model.AccountInfo
		positions []model.BrokerPosition
		clock     model.Clock

		accountErr, positionsErr, clockErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		account, accountErr = b.gw.GetAccount(ctx)
	}()
	go func() {
		defer wg.Done()
		positions, positionsErr = b.gw.GetPositions(ctx)
	}()
	go func() {
		defer wg.Done()
		clock, clockErr = b.gw.GetClock(ctx)
	}()
	wg.Wait()

	if accountErr != nil {
		return model.DecisionContext{}, fmt.Errorf("%w: account: %v", broker.ErrContextUnavailable, accountErr)
	}
	if positionsErr != nil {
		return model.DecisionContext{}, fmt.Errorf("%w: positions: %v", broker.ErrContextUnavailable, positionsErr)
	}
	if clockErr != nil {
		return model.DecisionContext{}, fmt.Errorf("%w: clock: %v", broker.ErrContextUnavailable, clockErr)
	}

	dc := model.DecisionContext{
		PortfolioID:   portfolio.ID,
		PortfolioMode: portfolio.Mode,
		Account:       account,
		Positions:     positions,
		Prices:        map[string]decimal.Decimal{},
		RecentBars:    map[string][]model.Bar{},
		Volatility:    map[string]decimal.Decimal{},
		Clock:         clock,
		BuiltAt:       b.now(),
	}

	if err := b.attachMarketData(ctx, &dc); err != nil {
		return model.DecisionContext{}, err
	}
	dc.Regime = b.classifyRegime(dc)

	return dc, nil
}

// attachMarketData pulls recent bars for the watchlist plus every open
// position, grouped by asset class, and derives prices and ATR volatility.
func (b *ContextBuilder) attachMarketData(ctx context.Context, dc *model.DecisionContext) error {
	tf, err := model.ParseTimeframe(b.cfg.BarTimeframe)
	if err != nil {
		return fmt.Errorf("%w: %v", broker.ErrContextUnavailable, err)
	}

	byClass := map[string][]string{}
	seen := map[string]bool{}
	for _, symbol := range b.cfg.Watchlist {
		byClass[model.AssetClassEquity] = append(byClass[model.AssetClassEquity], symbol)
		seen[symbol] = true
	}
	for _, pos := range dc.Positions {
		if !seen[pos.Symbol] {
			byClass[pos.AssetClass] = append(byClass[pos.AssetClass], pos.Symbol)
			seen[pos.Symbol] = true
		}
	}

	end := b.now()
	start := end.Add(-time.Duration(b.cfg.LookbackBars+1) * tf.Duration())

	for assetClass, symbols := range byClass {
		bars, err := b.gw.GetBarsMulti(ctx, assetClass, symbols, start, end, tf)
		if err != nil {
			return fmt.Errorf("%w: bars for %s: %v", broker.ErrContextUnavailable, assetClass, err)
		}
		for symbol, series := range bars {
			if len(series) == 0 {
				continue
			}
			dc.RecentBars[symbol] = series
			dc.Prices[symbol] = series[len(series)-1].Close
			if atr, ok := atrFraction(series, b.cfg.ATRPeriod); ok {
				dc.Volatility[symbol] = atr
			}
		}
	}

	// A watchlist symbol without bars is dropped; a held position without
	// bars still needs a price for exposure checks, so warn loudly.
	for _, pos := range dc.Positions {
		if _, ok := dc.Prices[pos.Symbol]; !ok {
			logger.WithField("symbol", pos.Symbol).
				Warn("no market data for open position this cycle")
		}
	}
	return nil
}

// atrFraction computes the average true range over the period as a fraction
// of the last close. Needs period+1 bars.
func atrFraction(bars []model.Bar, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(bars) < period+1 {
		return decimal.Zero, false
	}

	sum := decimal.Zero
	for i := len(bars) - period; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High.Sub(bars[i].Low)
		if d := bars[i].High.Sub(prevClose).Abs(); d.GreaterThan(tr) {
			tr = d
		}
		if d := bars[i].Low.Sub(prevClose).Abs(); d.GreaterThan(tr) {
			tr = d
		}
		sum = sum.Add(tr)
	}

	lastClose := bars[len(bars)-1].Close
	if lastClose.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return sum.Div(decimal.NewFromInt(int64(period))).Div(lastClose), true
}

// classifyRegime buckets the cycle into bull, bear, sideways or volatile from
// the watchlist's aggregate ATR and trend versus the lookback average.
func (b *ContextBuilder) classifyRegime(dc model.DecisionContext) string {
	var (
		atrSum, trendSum decimal.Decimal
		n                int64
	)
	for _, symbol := range b.cfg.Watchlist {
		bars, ok := dc.RecentBars[symbol]
		if !ok || len(bars) == 0 {
			continue
		}
		if atr, ok := dc.Volatility[symbol]; ok {
			atrSum = atrSum.Add(atr)
		}

		sma := decimal.Zero
		for _, bar := range bars {
			sma = sma.Add(bar.Close)
		}
		sma = sma.Div(decimal.NewFromInt(int64(len(bars))))
		if sma.GreaterThan(decimal.Zero) {
			last := bars[len(bars)-1].Close
			trendSum = trendSum.Add(last.Sub(sma).Div(sma))
		}
		n++
	}

	if n == 0 {
		// No data to classify on; treat as volatile so sizing stays small.
		return model.RegimeVolatile
	}

	count := decimal.NewFromInt(n)
	if atrSum.Div(count).GreaterThanOrEqual(b.cfg.VolatileATRPct) {
		return model.RegimeVolatile
	}

	trend := trendSum.Div(count)
	switch {
	case trend.GreaterThan(b.cfg.SidewaysBandPct):
		return model.RegimeBull
	case trend.LessThan(b.cfg.SidewaysBandPct.Neg()):
		return model.RegimeBear
	}
	return model.RegimeSideways
}
