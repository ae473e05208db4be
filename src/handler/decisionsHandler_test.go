package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradeorchestrator/src/model"
	"tradeorchestrator/src/repository"
)

type mockDecisionSearcher struct {
	decisions []model.Decision
	filter    repository.SearchFilter
	chainID   string
}

func (m *mockDecisionSearcher) Search(ctx context.Context, filter repository.SearchFilter) ([]model.Decision, error) {
	m.filter = filter
	return m.decisions, nil
}

func (m *mockDecisionSearcher) FindByCorrelation(ctx context.Context, correlationID string) ([]model.Decision, error) {
	m.chainID = correlationID
	return m.decisions, nil
}

func TestSearchDecisionsHandlerForwardsFilters(t *testing.T) {
	repo := &mockDecisionSearcher{decisions: []model.Decision{{ID: 1, Symbol: "AAPL"}}}
	h := SearchDecisionsHandler(repo)

	req := httptest.NewRequest(http.MethodGet,
		"/decisions?portfolioId=2&symbol=AAPL&type=entry&outcome=executed&from=2026-01-01T00:00:00Z&limit=10", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if repo.filter.PortfolioID != 2 || repo.filter.Symbol != "AAPL" {
		t.Fatalf("filters not forwarded: %+v", repo.filter)
	}
	if repo.filter.DecisionType != "entry" || repo.filter.Outcome != "executed" {
		t.Fatalf("filters not forwarded: %+v", repo.filter)
	}
	if repo.filter.From.IsZero() || repo.filter.Limit != 10 {
		t.Fatalf("filters not forwarded: %+v", repo.filter)
	}
}

func TestSearchDecisionsHandlerRejectsBadPortfolioID(t *testing.T) {
	h := SearchDecisionsHandler(&mockDecisionSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/decisions?portfolioId=abc", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSearchDecisionsHandlerRejectsBadDate(t *testing.T) {
	h := SearchDecisionsHandler(&mockDecisionSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/decisions?from=yesterday", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestGetDecisionChainHandlerRequiresCorrelationID(t *testing.T) {
	h := GetDecisionChainHandler(&mockDecisionSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/decisions/chain", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestGetDecisionChainHandlerReturnsChain(t *testing.T) {
	repo := &mockDecisionSearcher{decisions: []model.Decision{{ID: 1}, {ID: 2}}}
	h := GetDecisionChainHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/decisions/chain?correlationId=c-42", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if repo.chainID != "c-42" {
		t.Fatalf("expected correlation id to be forwarded, got %s", repo.chainID)
	}
}
