package connectors

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

const binanceDataName = "binance"

// BinanceMarketData serves crypto bars and snapshots through the goex
// binance client. It only implements the market-data contract; crypto
// trading routes through whichever trading backend the facade composes.
type BinanceMarketData struct {
	exchange goex.API
}

func NewBinanceMarketData() *BinanceMarketData {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &BinanceMarketData{exchange: binance.NewWithConfig(apiConfig)}
}

func (m *BinanceMarketData) Name() string { return binanceDataName }

func goexPeriod(tf model.Timeframe) (goex.KlinePeriod, error) {
	switch tf {
	case model.TimeframeMinute:
		return goex.KLINE_PERIOD_1MIN, nil
	case model.Timeframe5Minute:
		return goex.KLINE_PERIOD_5MIN, nil
	case model.Timeframe15Minute:
		return goex.KLINE_PERIOD_15MIN, nil
	case model.Timeframe30Minute:
		return goex.KLINE_PERIOD_30MIN, nil
	case model.TimeframeHour:
		return goex.KLINE_PERIOD_60MIN, nil
	case model.TimeframeDay:
		return goex.KLINE_PERIOD_1DAY, nil
	case model.TimeframeWeek:
		return goex.KLINE_PERIOD_1WEEK, nil
	}
	return goex.KLINE_PERIOD_1DAY, fmt.Errorf("unsupported timeframe %q for binance", tf)
}

// splitCryptoSymbol turns BTCUSDT into a goex currency pair. Quote currencies
// are matched longest-first so BTCBUSD does not split as BTCB/USD.
func splitCryptoSymbol(symbol string) (goex.CurrencyPair, error) {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	for _, quote := range []string{"USDT", "BUSD", "USDC", "USD", "BTC", "ETH"} {
		if strings.HasSuffix(upper, quote) && len(upper) > len(quote) {
			base := strings.TrimSuffix(upper, quote)
			return goex.NewCurrencyPair(
				goex.Currency{Symbol: base},
				goex.Currency{Symbol: quote},
			), nil
		}
	}
	return goex.CurrencyPair{}, fmt.Errorf("cannot split crypto symbol %q", symbol)
}

func (m *BinanceMarketData) GetBars(ctx context.Context, symbol string, start, end time.Time, tf model.Timeframe) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	period, err := goexPeriod(tf)
	if err != nil {
		return nil, err
	}
	pair, err := splitCryptoSymbol(symbol)
	if err != nil {
		return nil, err
	}

	size := int(end.Sub(start)/tf.Duration()) + 1
	if size < 1 {
		size = 1
	}
	if size > 1000 {
		size = 1000
	}

	const millis = 1000
	klines, err := m.exchange.GetKlineRecords(
		pair,
		period,
		size,
		goex.OptionalParameter{}.
			Optional("startTime", start.Unix()*millis).
			Optional("endTime", end.Unix()*millis),
	)
	if err != nil {
		return nil, fmt.Errorf("binance kline fetch for %s: %w", symbol, err)
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(k.Timestamp, 0).UTC(),
			Open:      decimal.NewFromFloat(k.Open),
			High:      decimal.NewFromFloat(k.High),
			Low:       decimal.NewFromFloat(k.Low),
			Close:     decimal.NewFromFloat(k.Close),
			Volume:    decimal.NewFromFloat(k.Vol),
		})
	}
	return bars, nil
}

func (m *BinanceMarketData) GetBarsMulti(ctx context.Context, symbols []string, start, end time.Time, tf model.Timeframe) (map[string][]model.Bar, error) {
	out := make(map[string][]model.Bar, len(symbols))
	for _, symbol := range symbols {
		bars, err := m.GetBars(ctx, symbol, start, end, tf)
		if err != nil {
			return nil, err
		}
		out[symbol] = bars
	}
	return out, nil
}

func (m *BinanceMarketData) GetSnapshot(ctx context.Context, symbol string) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}

	pair, err := splitCryptoSymbol(symbol)
	if err != nil {
		return model.Snapshot{}, err
	}

	ticker, err := m.exchange.GetTicker(pair)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("binance ticker fetch for %s: %w", symbol, err)
	}

	return model.Snapshot{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(ticker.Last),
		BidPrice:  decimal.NewFromFloat(ticker.Buy),
		AskPrice:  decimal.NewFromFloat(ticker.Sell),
		Timestamp: time.Unix(int64(ticker.Date), 0).UTC(),
	}, nil
}
