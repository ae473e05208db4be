package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/aggregator"
	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/model"
	"tradeorchestrator/src/providers"
	"tradeorchestrator/src/risk"
	"tradeorchestrator/src/sizing"
)

// Storage contracts the orchestrator needs. Implemented by the repository
// package; tests inject stubs.
type DecisionStore interface {
	Create(ctx context.Context, d *model.Decision) error
}

type OrderStore interface {
	CreateWithAutoLog(ctx context.Context, o *model.Order) error
	MarkSubmitted(ctx context.Context, orderID uint, brokerOrderID, status string) error
	UpdateStatusWithAutoLog(ctx context.Context, orderID uint, status, reason string) error
	FindOpenByPortfolio(ctx context.Context, portfolioID uint) ([]model.Order, error)
}

type HeldIntentStore interface {
	Create(ctx context.Context, h *model.HeldIntent) error
}

type BreakerStore interface {
	Upsert(ctx context.Context, s *model.CircuitBreakerState) error
}

type ExceptionStore interface {
	Create(ctx context.Context, e *model.Exception) error
}

// Deps bundles the orchestrator's collaborators so the composition root stays
// readable.
type Deps struct {
	Gateway   Gateway
	Providers []providers.Provider
	Fallback  providers.Provider
	LastGood  *providers.LastKnownGood
	Sizer     *sizing.Engine
	Breaker   *risk.CircuitBreaker
	Gate      *risk.Gate
	Unwinder  *risk.Unwinder

	Decisions  DecisionStore
	Orders     OrderStore
	Held       HeldIntentStore
	BreakerDB  BreakerStore
	Exceptions ExceptionStore
}

// Orchestrator drives one decision cycle end to end: context, provider
// fan-out, aggregation, sizing, risk gate, execution, audit. Every proposal
// that enters a cycle leaves exactly one audit row; no order is ever
// submitted without an executable verdict.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	builder *ContextBuilder

	// cooldownUntil is written by the cycle loop and by the operator
	// approval path, which run on different goroutines in serve mode.
	cooldownMu    sync.Mutex
	cooldownUntil time.Time

	now func() time.Time
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		builder: NewContextBuilder(cfg, deps.Gateway),
		now:     time.Now,
	}
}

type providerResult struct {
	name      string
	proposals []model.Proposal
	err       error
}

// RunCycle executes one full decision cycle for a portfolio in the given
// scheduling phase. A context build failure skips the whole cycle; the system
// never trades on partial state.
func (o *Orchestrator) RunCycle(ctx context.Context, portfolio model.Portfolio, phase string) error {
	correlationID := uuid.NewString()
	log := logger.WithFields(map[string]interface{}{
		"portfolio":      portfolio.Name,
		"phase":          phase,
		"correlation_id": correlationID,
	})

	if portfolio.IsPaused() {
		log.Info("portfolio paused, skipping cycle")
		return nil
	}
	if until, active := o.cooldownActive(); active {
		log.WithField("until", until).Warn("broker cooldown active, skipping cycle")
		o.audit(ctx, &model.Decision{
			PortfolioID: portfolio.ID, CorrelationID: correlationID, Phase: phase,
			DecisionType: model.DecisionTypeSkip, Outcome: model.DecisionOutcomeNoAction,
			Reason: "broker unavailable cooldown", DecidedAt: o.now(),
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.CycleTimeout)
	defer cancel()

	dc, err := o.builder.Build(ctx, portfolio)
	if err != nil {
		log.WithError(err).Error("context build failed, cycle skipped")
		o.capture(ctx, portfolio.ID, "controller", "build_context", err, nil)
		o.audit(ctx, &model.Decision{
			PortfolioID: portfolio.ID, CorrelationID: correlationID, Phase: phase,
			DecisionType: model.DecisionTypeSkip, Outcome: model.DecisionOutcomeNoAction,
			Reason: err.Error(), DecidedAt: o.now(),
		})
		return err
	}

	o.reconcileOrders(ctx, portfolio)

	level := o.deps.Breaker.Observe(dc.Account.PortfolioValue)
	snap := o.deps.Breaker.Snapshot(portfolio.ID)
	dc.BreakerLevel = level
	dc.DrawdownPct = snap.DrawdownPct
	dc.PeakValue = snap.PeakValue
	defer o.persistBreaker(portfolio.ID)

	if level == model.BreakerHalted {
		return o.runUnwind(ctx, portfolio, dc, correlationID, phase)
	}

	proposals := o.fanOut(ctx, portfolio, dc, correlationID, phase)
	if len(proposals) == 0 {
		o.audit(ctx, &model.Decision{
			PortfolioID: portfolio.ID, CorrelationID: correlationID, Phase: phase,
			DecisionType: model.DecisionTypeSkip, Outcome: model.DecisionOutcomeNoAction,
			Reason: "no proposals this cycle", BreakerLevel: level, DecidedAt: o.now(),
		})
		return nil
	}

	merged := aggregator.Aggregate(proposals, o.deps.Gate.SymbolsAtCap(dc))
	for _, proposal := range merged {
		o.decide(ctx, portfolio, dc, proposal, correlationID, phase)
	}
	return nil
}

// fanOut invokes every provider concurrently, each under its own timeout.
// A provider failure degrades stepwise: last known good output, then the
// rule-based fallback, then nothing. Results arriving after the cycle
// deadline are discarded.
func (o *Orchestrator) fanOut(ctx context.Context, portfolio model.Portfolio, dc model.DecisionContext, correlationID, phase string) []model.Proposal {
	results := make(chan providerResult, len(o.deps.Providers))
	for _, p := range o.deps.Providers {
		go func(p providers.Provider) {
			callCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
			defer cancel()

			proposals, err := p.Propose(callCtx, dc)
			if err != nil && errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %s", broker.ErrProviderTimeout, p.Name())
			} else if err != nil {
				err = fmt.Errorf("%w: %s: %v", broker.ErrProviderFailed, p.Name(), err)
			}
			results <- providerResult{name: p.Name(), proposals: proposals, err: err}
		}(p)
	}

	var (
		collected []model.Proposal
		failures  int
	)
	for i := 0; i < len(o.deps.Providers); i++ {
		select {
		case r := <-results:
			if r.err != nil {
				failures++
				o.providerDegraded(ctx, portfolio, r, correlationID, phase, &collected)
				continue
			}
			if o.deps.LastGood != nil {
				o.deps.LastGood.Store(r.name, r.proposals)
			}
			collected = append(collected, o.validated(r.name, r.proposals)...)
		case <-ctx.Done():
			logger.WithField("correlation_id", correlationID).
				Warn("cycle deadline hit during fan-out, discarding late providers")
			return o.maybeFallback(ctx, dc, collected, failures+1)
		}
	}
	return o.maybeFallback(ctx, dc, collected, failures)
}

// providerDegraded audits a provider failure and substitutes its last known
// good output when still fresh.
func (o *Orchestrator) providerDegraded(ctx context.Context, portfolio model.Portfolio, r providerResult, correlationID, phase string, collected *[]model.Proposal) {
	logger.WithError(r.err).WithField("provider", r.name).Warn("provider failed this cycle")
	o.capture(ctx, portfolio.ID, "providers", r.name, r.err, nil)
	o.audit(ctx, &model.Decision{
		PortfolioID: portfolio.ID, CorrelationID: correlationID, Phase: phase,
		DecisionType: model.DecisionTypeProviderErr, Provider: r.name,
		Outcome: model.DecisionOutcomeFailed, Reason: r.err.Error(), DecidedAt: o.now(),
	})

	if o.deps.LastGood == nil {
		return
	}
	if stale, ok := o.deps.LastGood.Get(r.name); ok {
		logger.WithField("provider", r.name).Info("using last known good proposals")
		*collected = append(*collected, o.validated(r.name, stale)...)
	}
}

// maybeFallback runs the conservative rule fallback when every provider came
// back empty-handed and at least one actually failed.
func (o *Orchestrator) maybeFallback(ctx context.Context, dc model.DecisionContext, collected []model.Proposal, failures int) []model.Proposal {
	if len(collected) > 0 || failures == 0 || o.deps.Fallback == nil {
		return collected
	}

	proposals, err := o.deps.Fallback.Propose(ctx, dc)
	if err != nil {
		logger.WithError(err).Warn("rule fallback failed, cycle proceeds with no proposals")
		return nil
	}
	return o.validated(o.deps.Fallback.Name(), proposals)
}

// validated re-checks provider output at the trust boundary; malformed
// proposals are dropped, never fixed up.
func (o *Orchestrator) validated(provider string, in []model.Proposal) []model.Proposal {
	out := make([]model.Proposal, 0, len(in))
	for _, p := range in {
		valid, err := model.NewProposal(p.Symbol, p.AssetClass, p.Direction, p.Rationale, provider, p.Conviction, p.EmittedAt)
		if err != nil {
			logger.WithError(err).WithField("provider", provider).Warn("dropping invalid proposal")
			continue
		}
		out = append(out, valid)
	}
	return out
}

// decide runs one aggregated proposal through sizing, the risk gate and
// execution, emitting exactly one audit row.
func (o *Orchestrator) decide(ctx context.Context, portfolio model.Portfolio, dc model.DecisionContext, proposal model.Proposal, correlationID, phase string) {
	decision := &model.Decision{
		PortfolioID:   portfolio.ID,
		CorrelationID: correlationID,
		Phase:         phase,
		DecisionType:  o.decisionType(dc, proposal),
		BreakerLevel:  dc.BreakerLevel,
		DecidedAt:     o.now(),
	}
	decision.AttachProposal(proposal)

	sized := o.deps.Sizer.Size(proposal, dc)
	if sized.Dropped {
		decision.Outcome = model.DecisionOutcomeDropped
		decision.Reason = sized.Reason
		o.audit(ctx, decision)
		return
	}
	decision.AttachIntent(*sized.Intent)

	verdict := o.deps.Gate.Evaluate(*sized.Intent, dc)
	decision.AttachVerdict(verdict)

	if !verdict.Executable() {
		decision.Outcome = model.DecisionOutcomeRejected
		decision.Reason = verdict.Reason
		o.audit(ctx, decision)
		return
	}

	if verdict.AdjustedNotional.GreaterThanOrEqual(o.cfg.HeldNotionalUSD) {
		o.holdForApproval(ctx, portfolio, *sized.Intent, verdict, decision)
		return
	}

	order, err := o.executeIntent(ctx, portfolio, dc, *sized.Intent, verdict)
	if err != nil {
		decision.Outcome = model.DecisionOutcomeFailed
		decision.Reason = err.Error()
		o.audit(ctx, decision)
		return
	}
	decision.OrderID = &order.ID
	decision.Outcome = model.DecisionOutcomeExecuted
	o.audit(ctx, decision)
}

func (o *Orchestrator) decisionType(dc model.DecisionContext, proposal model.Proposal) string {
	pos, held := dc.PositionFor(proposal.Symbol)
	if held {
		closingLong := pos.Side == model.DirectionLong && proposal.Direction == model.DirectionShort
		closingShort := pos.Side == model.DirectionShort && proposal.Direction == model.DirectionLong
		if closingLong || closingShort {
			return model.DecisionTypeExit
		}
	}
	return model.DecisionTypeEntry
}

// holdForApproval parks a large intent for an operator instead of executing.
func (o *Orchestrator) holdForApproval(ctx context.Context, portfolio model.Portfolio, intent model.SizedOrderIntent, verdict model.RiskGateVerdict, decision *model.Decision) {
	payload, err := json.Marshal(intent)
	if err != nil {
		decision.Outcome = model.DecisionOutcomeFailed
		decision.Reason = "intent serialization failed: " + err.Error()
		o.audit(ctx, decision)
		return
	}

	held := &model.HeldIntent{
		PortfolioID: portfolio.ID,
		IntentID:    intent.IntentID,
		Symbol:      intent.Symbol,
		Side:        intent.Side,
		Notional:    verdict.AdjustedNotional,
		IntentJSON:  string(payload),
		Status:      model.HeldIntentStatusPending,
	}
	if err := o.deps.Held.Create(ctx, held); err != nil {
		o.capture(ctx, portfolio.ID, "controller", "hold_intent", err, map[string]interface{}{"intent_id": intent.IntentID})
		decision.Outcome = model.DecisionOutcomeFailed
		decision.Reason = err.Error()
		o.audit(ctx, decision)
		return
	}

	logger.WithFields(map[string]interface{}{
		"intent_id": intent.IntentID,
		"symbol":    intent.Symbol,
		"notional":  verdict.AdjustedNotional.String(),
	}).Info("intent held for operator approval")

	decision.Outcome = model.DecisionOutcomeHeld
	decision.Reason = "notional above approval threshold"
	o.audit(ctx, decision)
}

// executeIntent persists and submits one approved intent. The verdict guard
// is the last line of defense: an unexecutable verdict reaching this point is
// a process-fatal invariant violation, not a recoverable error.
func (o *Orchestrator) executeIntent(ctx context.Context, portfolio model.Portfolio, dc model.DecisionContext, intent model.SizedOrderIntent, verdict model.RiskGateVerdict) (*model.Order, error) {
	if !verdict.Executable() {
		return nil, fmt.Errorf("%w: order submission attempted with %s verdict for intent %s",
			broker.ErrInvariantViolation, verdict.Outcome, intent.IntentID)
	}

	order := &model.Order{
		PortfolioID:   portfolio.ID,
		ClientOrderID: uuid.NewString(),
		IntentID:      intent.IntentID,
		Broker:        o.deps.Gateway.TradingBackend(),
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		OrderType:     intent.OrderType,
		Quantity:      verdict.AdjustedQuantity,
		Notional:      verdict.AdjustedNotional,
		LimitPrice:    intent.LimitPrice,
		Status:        model.OrderStatusNew,
		ReduceOnly:    intent.ReduceOnly,
	}
	// Position-reducing orders carry the average entry price so the fill
	// reconciliation can compute the realized result of the round trip.
	if pos, held := dc.PositionFor(intent.Symbol); held {
		closingLong := pos.Side == model.DirectionLong && intent.Side == model.SideSell
		closingShort := pos.Side == model.DirectionShort && intent.Side == model.SideBuy
		if closingLong || closingShort {
			order.EntryPrice = pos.AvgEntryPrice
		}
	}
	if err := o.deps.Orders.CreateWithAutoLog(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	result, err := o.deps.Gateway.SubmitOrder(ctx, broker.OrderRequest{
		ClientOrderID: order.ClientOrderID,
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		OrderType:     intent.OrderType,
		Quantity:      verdict.AdjustedQuantity,
		Notional:      verdict.AdjustedNotional,
		LimitPrice:    intent.LimitPrice,
		StopPrice:     intent.StopPrice,
		ReduceOnly:    intent.ReduceOnly,
		TimeInForce:   "day",
	})
	if err != nil {
		if updateErr := o.deps.Orders.UpdateStatusWithAutoLog(ctx, order.ID, model.OrderStatusFailed, err.Error()); updateErr != nil {
			logger.WithError(updateErr).Error("failed to mark order failed")
		}
		o.capture(ctx, portfolio.ID, "broker", "submit_order", err, map[string]interface{}{
			"client_order_id": order.ClientOrderID, "symbol": intent.Symbol,
		})
		if errors.Is(err, broker.ErrBrokerUnavailable) {
			o.startCooldown(5 * time.Minute)
		}
		return nil, err
	}

	if err := o.deps.Orders.MarkSubmitted(ctx, order.ID, result.BrokerOrderID, result.Status); err != nil {
		logger.WithError(err).Error("failed to record broker order id")
	}
	order.BrokerOrderID = result.BrokerOrderID
	order.Status = result.Status
	return order, nil
}

// reconcileOrders polls every open order against the broker and advances the
// persisted status. Closing fills feed realized PnL into the breaker's loss
// streak; running before the breaker observation means a completed streak
// halts this same cycle, not the next one. A poll failure leaves the order
// untouched for the next cycle.
func (o *Orchestrator) reconcileOrders(ctx context.Context, portfolio model.Portfolio) {
	open, err := o.deps.Orders.FindOpenByPortfolio(ctx, portfolio.ID)
	if err != nil {
		logger.WithError(err).Error("failed to list open orders for reconciliation")
		return
	}
	for _, ord := range open {
		if ord.BrokerOrderID == "" {
			continue
		}
		result, err := o.deps.Gateway.GetOrder(ctx, ord.BrokerOrderID)
		if err != nil {
			logger.WithError(err).WithField("broker_order_id", ord.BrokerOrderID).
				Warn("order status poll failed")
			continue
		}
		if result.Status == ord.Status {
			continue
		}
		if err := o.deps.Orders.UpdateStatusWithAutoLog(ctx, ord.ID, result.Status, "broker status sync"); err != nil {
			logger.WithError(err).Error("failed to record order status transition")
			continue
		}
		if result.Status == model.OrderStatusFilled {
			o.RecordFill(ord, result)
		}
	}
}

// RecordFill feeds one terminal fill into the breaker's win/loss streak.
// Called from cycle reconciliation and from streaming order updates. Entries
// carry no entry price and contribute no realized result.
func (o *Orchestrator) RecordFill(ord model.Order, result broker.OrderResult) {
	pnl, ok := realizedPnl(ord, result)
	if !ok {
		return
	}
	logger.WithFields(map[string]interface{}{
		"symbol":       ord.Symbol,
		"side":         ord.Side,
		"realized_pnl": pnl.String(),
	}).Info("closing fill reconciled")
	o.deps.Breaker.RecordTradeResult(pnl)
}

// realizedPnl computes the round-trip result of a filled closing order
// against the entry price captured at submission. A sell closes a long; a
// buy covers a short, so the sign flips.
func realizedPnl(ord model.Order, result broker.OrderResult) (decimal.Decimal, bool) {
	if ord.EntryPrice.IsZero() || result.FilledQty.IsZero() || result.FilledAvgPx.IsZero() {
		return decimal.Decimal{}, false
	}
	diff := result.FilledAvgPx.Sub(ord.EntryPrice)
	if ord.Side == model.SideBuy {
		diff = diff.Neg()
	}
	return diff.Mul(result.FilledQty), true
}

func (o *Orchestrator) cooldownActive() (time.Time, bool) {
	o.cooldownMu.Lock()
	defer o.cooldownMu.Unlock()
	if o.now().Before(o.cooldownUntil) {
		return o.cooldownUntil, true
	}
	return time.Time{}, false
}

func (o *Orchestrator) startCooldown(d time.Duration) {
	o.cooldownMu.Lock()
	o.cooldownUntil = o.now().Add(d)
	o.cooldownMu.Unlock()
}

// runUnwind handles a HALTED cycle: no new risk, progressive position
// reduction only.
func (o *Orchestrator) runUnwind(ctx context.Context, portfolio model.Portfolio, dc model.DecisionContext, correlationID, phase string) error {
	intents := o.deps.Unwinder.Intents(dc)
	if len(intents) == 0 {
		o.audit(ctx, &model.Decision{
			PortfolioID: portfolio.ID, CorrelationID: correlationID, Phase: phase,
			DecisionType: model.DecisionTypeSkip, Outcome: model.DecisionOutcomeNoAction,
			Reason: "halted, nothing to unwind this window", BreakerLevel: dc.BreakerLevel,
			DecidedAt: o.now(),
		})
		return nil
	}

	for _, intent := range intents {
		decision := &model.Decision{
			PortfolioID:   portfolio.ID,
			CorrelationID: correlationID,
			Phase:         phase,
			DecisionType:  model.DecisionTypeUnwind,
			Symbol:        intent.Symbol,
			BreakerLevel:  dc.BreakerLevel,
			DecidedAt:     o.now(),
		}
		decision.AttachIntent(intent)

		verdict := o.deps.Gate.Evaluate(intent, dc)
		decision.AttachVerdict(verdict)
		if !verdict.Executable() {
			decision.Outcome = model.DecisionOutcomeRejected
			decision.Reason = verdict.Reason
			o.audit(ctx, decision)
			continue
		}

		order, err := o.executeIntent(ctx, portfolio, dc, intent, verdict)
		if err != nil {
			decision.Outcome = model.DecisionOutcomeFailed
			decision.Reason = err.Error()
			o.audit(ctx, decision)
			if broker.Fatal(err) {
				return err
			}
			continue
		}
		decision.OrderID = &order.ID
		decision.Outcome = model.DecisionOutcomeExecuted
		o.audit(ctx, decision)
	}
	return nil
}

// ExecuteApproved submits a previously held intent after operator approval.
// The gate re-evaluates against a fresh context; conditions may have moved
// while the intent was parked.
func (o *Orchestrator) ExecuteApproved(ctx context.Context, portfolio model.Portfolio, intent model.SizedOrderIntent) (*model.Order, error) {
	dc, err := o.builder.Build(ctx, portfolio)
	if err != nil {
		return nil, err
	}
	dc.BreakerLevel = o.deps.Breaker.Observe(dc.Account.PortfolioValue)

	verdict := o.deps.Gate.Evaluate(intent, dc)
	if !verdict.Executable() {
		return nil, fmt.Errorf("%w: %s", broker.ErrRiskRejected, verdict.Reason)
	}

	decision := &model.Decision{
		PortfolioID:   portfolio.ID,
		CorrelationID: uuid.NewString(),
		Phase:         "operator_approval",
		DecisionType:  model.DecisionTypeEntry,
		Symbol:        intent.Symbol,
		BreakerLevel:  dc.BreakerLevel,
		DecidedAt:     o.now(),
	}
	decision.AttachIntent(intent)
	decision.AttachVerdict(verdict)

	order, err := o.executeIntent(ctx, portfolio, dc, intent, verdict)
	if err != nil {
		decision.Outcome = model.DecisionOutcomeFailed
		decision.Reason = err.Error()
		o.audit(ctx, decision)
		return nil, err
	}
	decision.OrderID = &order.ID
	decision.Outcome = model.DecisionOutcomeExecuted
	o.audit(ctx, decision)
	return order, nil
}

func (o *Orchestrator) persistBreaker(portfolioID uint) {
	if o.deps.BreakerDB == nil {
		return
	}
	snap := o.deps.Breaker.Snapshot(portfolioID)
	if err := o.deps.BreakerDB.Upsert(context.Background(), &snap); err != nil {
		logger.WithError(err).Error("failed to persist circuit breaker state")
	}
}

func (o *Orchestrator) audit(ctx context.Context, d *model.Decision) {
	if o.deps.Decisions == nil {
		return
	}
	if err := o.deps.Decisions.Create(ctx, d); err != nil {
		// The audit trail is load-bearing; losing a row is an operational
		// incident even though the cycle itself continues.
		logger.WithError(err).WithField("decision_type", d.DecisionType).
			Error("failed to write audit decision")
	}
}
