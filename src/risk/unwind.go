package risk

import (
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// Unwinder produces the progressive de-risking orders while a portfolio is
// HALTED. Instead of dumping everything at once into a falling market, it
// emits reduce-only intents for a fixed fraction of every open position, at
// most once per configured interval. Once a residual position is small enough
// the remainder is closed in full.
type Unwinder struct {
	mu      sync.Mutex
	cfg     Config
	lastRun time.Time
	now     func() time.Time
}

func NewUnwinder(cfg Config) *Unwinder {
	return &Unwinder{cfg: cfg, now: time.Now}
}

// Intents returns the reduce-only intents for this unwind window, or nil when
// the breaker is not halted, there is nothing open, or the window has not
// elapsed yet.
func (u *Unwinder) Intents(dc model.DecisionContext) []model.SizedOrderIntent {
	if dc.BreakerLevel != model.BreakerHalted || len(dc.Positions) == 0 {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	now := u.now()
	if !u.lastRun.IsZero() && now.Sub(u.lastRun) < u.cfg.UnwindInterval {
		return nil
	}
	u.lastRun = now

	intents := make([]model.SizedOrderIntent, 0, len(dc.Positions))
	for _, pos := range dc.Positions {
		held := pos.Quantity.Abs()
		if held.IsZero() {
			continue
		}

		qty := held.Mul(u.cfg.UnwindFractionPct).RoundDown(4)
		if qty.IsZero() || pos.MarketValue.Abs().LessThanOrEqual(u.cfg.UnwindFullCloseUSD) {
			qty = held
		}

		side := model.SideSell
		if pos.Side == model.DirectionShort || pos.Quantity.IsNegative() {
			side = model.SideBuy
		}

		intents = append(intents, model.SizedOrderIntent{
			IntentID:   uuid.NewString(),
			Symbol:     pos.Symbol,
			Side:       side,
			Quantity:   qty,
			Notional:   qty.Mul(pos.MarketValue.Abs().Div(held)).Round(2),
			OrderType:  model.OrderTypeMarket,
			ReduceOnly: true,
			CreatedAt:  now,
		})
	}

	if len(intents) > 0 {
		logger.WithFields(map[string]interface{}{
			"positions": len(intents),
			"fraction":  u.cfg.UnwindFractionPct.String(),
		}).Warn("emitting progressive unwind orders")
	}
	return intents
}
