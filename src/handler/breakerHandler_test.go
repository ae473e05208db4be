package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

type mockBreakerRepo struct {
	state    *model.CircuitBreakerState
	upserted *model.CircuitBreakerState
}

func (m *mockBreakerRepo) GetByPortfolio(ctx context.Context, portfolioID uint) (*model.CircuitBreakerState, error) {
	return m.state, nil
}

func (m *mockBreakerRepo) Upsert(ctx context.Context, state *model.CircuitBreakerState) error {
	m.upserted = state
	return nil
}

type mockBreakerController struct {
	resetOperator string
	resetReason   string
	resetValue    decimal.Decimal
	snapshot      model.CircuitBreakerState
}

func (m *mockBreakerController) Reset(operator, reason string, portfolioValue decimal.Decimal) {
	m.resetOperator = operator
	m.resetReason = reason
	m.resetValue = portfolioValue
}

func (m *mockBreakerController) Snapshot(portfolioID uint) model.CircuitBreakerState {
	m.snapshot.PortfolioID = portfolioID
	return m.snapshot
}

func breakerRequest(method, target, portfolioID, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("portfolioID", portfolioID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestGetBreakerHandlerReturnsState(t *testing.T) {
	repo := &mockBreakerRepo{state: &model.CircuitBreakerState{
		PortfolioID: 1,
		Level:       model.BreakerReduced,
		DrawdownPct: decimal.RequireFromString("0.12"),
	}}
	h := GetBreakerHandler(repo)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, breakerRequest(http.MethodGet, "/breaker/1", "1", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), model.BreakerReduced) {
		t.Fatalf("expected level in body, got %s", rr.Body.String())
	}
}

func TestGetBreakerHandlerNotFound(t *testing.T) {
	h := GetBreakerHandler(&mockBreakerRepo{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, breakerRequest(http.MethodGet, "/breaker/9", "9", ""))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestResetBreakerHandlerResetsAndPersists(t *testing.T) {
	repo := &mockBreakerRepo{}
	controller := &mockBreakerController{snapshot: model.CircuitBreakerState{Level: model.BreakerNormal}}
	h := ResetBreakerHandler(controller, repo)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, breakerRequest(http.MethodPost, "/breaker/1/reset", "1",
		`{"operator":"ops","reason":"reviewed drawdown","portfolio_value":"82000"}`))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if controller.resetOperator != "ops" || controller.resetReason != "reviewed drawdown" {
		t.Fatalf("reset not forwarded: %s %s", controller.resetOperator, controller.resetReason)
	}
	if !controller.resetValue.Equal(decimal.RequireFromString("82000")) {
		t.Fatalf("expected peak rebase to 82000, got %s", controller.resetValue)
	}
	if repo.upserted == nil || repo.upserted.PortfolioID != 1 {
		t.Fatal("expected reset snapshot to be persisted")
	}
}

func TestResetBreakerHandlerRequiresOperatorAndReason(t *testing.T) {
	h := ResetBreakerHandler(&mockBreakerController{}, &mockBreakerRepo{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, breakerRequest(http.MethodPost, "/breaker/1/reset", "1", `{"portfolio_value":"1000"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestResetBreakerHandlerRejectsNonPositiveValue(t *testing.T) {
	h := ResetBreakerHandler(&mockBreakerController{}, &mockBreakerRepo{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, breakerRequest(http.MethodPost, "/breaker/1/reset", "1",
		`{"operator":"ops","reason":"x","portfolio_value":"0"}`))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
