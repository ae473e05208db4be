package sizing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// Config holds the deterministic sizing parameters. Everything is an exact
// decimal; the engine never touches floating point.
type Config struct {
	BaseRiskPct    decimal.Decimal // fraction of portfolio risked per trade at full conviction
	MaxPositionPct decimal.Decimal // hard cap on any single position's notional
	MinOrderUSD    decimal.Decimal // broker minimum order size; smaller intents are dropped

	RegimeMultiplier  map[string]decimal.Decimal
	BreakerMultiplier map[string]decimal.Decimal
}

// DefaultConfig reasonable defaults, tweak per portfolio.
func DefaultConfig() Config {
	return Config{
		BaseRiskPct:    decimal.RequireFromString("0.02"),
		MaxPositionPct: decimal.RequireFromString("0.10"),
		MinOrderUSD:    decimal.RequireFromString("1.00"),
		RegimeMultiplier: map[string]decimal.Decimal{
			model.RegimeBull:     decimal.RequireFromString("1.0"),
			model.RegimeSideways: decimal.RequireFromString("0.7"),
			model.RegimeBear:     decimal.RequireFromString("0.5"),
			model.RegimeVolatile: decimal.RequireFromString("0.3"),
		},
		BreakerMultiplier: map[string]decimal.Decimal{
			model.BreakerNormal:  decimal.RequireFromString("1.0"),
			model.BreakerReduced: decimal.RequireFromString("0.5"),
			model.BreakerHalted:  decimal.Zero,
		},
	}
}

// Result is the sizing outcome for one proposal. Dropped intents carry the
// reason for the audit row and produce no order.
type Result struct {
	Intent  *model.SizedOrderIntent
	Dropped bool
	Reason  string
}

// Engine converts proposals into bounded order intents. Pure decimal math
// over the proposal, account state and the context's volatility estimate;
// conviction alone can never set a size.
type Engine struct {
	cfg Config
	now func() time.Time
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

func dropped(reason string) Result {
	return Result{Dropped: true, Reason: reason}
}

// Size computes the order intent for one aggregated proposal.
//
//	risk_budget = base_risk_pct * regime_mult * breaker_mult * conviction
//	notional    = risk_budget * portfolio_value / volatility_pct
//	notional    = min(notional, max_position_pct * portfolio_value)
func (e *Engine) Size(p model.Proposal, dc model.DecisionContext) Result {
	pv := dc.Account.PortfolioValue
	if pv.LessThanOrEqual(decimal.Zero) {
		return dropped("portfolio value not positive")
	}

	breakerMult, ok := e.cfg.BreakerMultiplier[dc.BreakerLevel]
	if !ok {
		// Unknown level sizes as halted; failing open here would defeat the ladder.
		breakerMult = decimal.Zero
	}
	if breakerMult.IsZero() {
		return dropped("circuit breaker halted, no new risk")
	}

	regimeMult, ok := e.cfg.RegimeMultiplier[dc.Regime]
	if !ok {
		regimeMult = e.cfg.RegimeMultiplier[model.RegimeVolatile]
	}

	volatility, ok := dc.Volatility[p.Symbol]
	if !ok || volatility.LessThanOrEqual(decimal.Zero) {
		return dropped("no volatility estimate for symbol")
	}

	riskBudget := e.cfg.BaseRiskPct.
		Mul(regimeMult).
		Mul(breakerMult).
		Mul(p.Conviction)

	notional := riskBudget.Mul(pv).Div(volatility)

	cap := e.cfg.MaxPositionPct.Mul(pv)
	if notional.GreaterThan(cap) {
		notional = cap
	}

	if notional.LessThan(e.cfg.MinOrderUSD) {
		logger.WithFields(map[string]interface{}{
			"symbol":   p.Symbol,
			"notional": notional.String(),
			"minimum":  e.cfg.MinOrderUSD.String(),
		}).Info("sized notional below broker minimum, dropping intent")
		return dropped("notional below broker minimum")
	}

	side := model.SideBuy
	if p.Direction == model.DirectionShort {
		side = model.SideSell
	}

	intent := &model.SizedOrderIntent{
		IntentID:   uuid.NewString(),
		Proposal:   p,
		Symbol:     p.Symbol,
		Side:       side,
		Notional:   notional.Round(2),
		OrderType:  model.OrderTypeMarket,
		RiskBudget: riskBudget,
		CreatedAt:  e.now(),
	}

	if price, ok := dc.Prices[p.Symbol]; ok && price.GreaterThan(decimal.Zero) {
		qty := notional.Div(price).RoundDown(4)
		if qty.IsZero() {
			return dropped("quantity rounds to zero at current price")
		}
		intent.Quantity = qty
	}

	return Result{Intent: intent}
}
