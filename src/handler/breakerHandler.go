package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

type breakerStateReader interface {
	GetByPortfolio(ctx context.Context, portfolioID uint) (*model.CircuitBreakerState, error)
}

type breakerStateWriter interface {
	Upsert(ctx context.Context, state *model.CircuitBreakerState) error
}

// breakerController is the in-process ladder the loop trades against; the
// reset must go through it, not just the database row.
type breakerController interface {
	Reset(operator, reason string, portfolioValue decimal.Decimal)
	Snapshot(portfolioID uint) model.CircuitBreakerState
}

// GetBreakerHandler returns the persisted breaker state for a portfolio.
func GetBreakerHandler(repo breakerStateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolioID, err := portfolioIDParam(r)
		if err != nil {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		state, err := repo.GetByPortfolio(r.Context(), portfolioID)
		if err != nil {
			logger.WithError(err).Error("failed to load breaker state")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if state == nil {
			http.Error(w, "breaker state not found", http.StatusNotFound)
			return
		}

		writeJSON(w, state)
	}
}

type resetBreakerRequest struct {
	Operator       string          `json:"operator"`
	Reason         string          `json:"reason"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}

// ResetBreakerHandler clears a halt after operator review. The peak rebases
// to the supplied portfolio value so the ladder does not re-trip instantly.
func ResetBreakerHandler(breaker breakerController, repo breakerStateWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolioID, err := portfolioIDParam(r)
		if err != nil {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		var req resetBreakerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Operator == "" || req.Reason == "" {
			http.Error(w, "operator and reason required", http.StatusBadRequest)
			return
		}
		if !req.PortfolioValue.IsPositive() {
			http.Error(w, "portfolio_value must be positive", http.StatusBadRequest)
			return
		}

		breaker.Reset(req.Operator, req.Reason, req.PortfolioValue)
		snapshot := breaker.Snapshot(portfolioID)

		if err := repo.Upsert(r.Context(), &snapshot); err != nil {
			logger.WithError(err).Error("failed to persist breaker reset")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.WithFields(map[string]interface{}{
			"portfolio_id": portfolioID,
			"operator":     req.Operator,
			"reason":       req.Reason,
		}).Warn("circuit breaker reset by operator")

		writeJSON(w, snapshot)
	}
}

func portfolioIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "portfolioID"), 10, 64)
	return uint(id), err
}
