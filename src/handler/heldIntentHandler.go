package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

type heldIntentStore interface {
	FindByIntentID(ctx context.Context, intentID string) (*model.HeldIntent, error)
	FindPendingByPortfolio(ctx context.Context, portfolioID uint) ([]model.HeldIntent, error)
	Decide(ctx context.Context, intentID, status, decidedBy string) error
}

// approvalExecutor submits a previously held intent through the full risk
// gate again. Implemented by the orchestrator.
type approvalExecutor interface {
	ExecuteApproved(ctx context.Context, portfolio model.Portfolio, intent model.SizedOrderIntent) (*model.Order, error)
}

type portfolioFinder interface {
	FindByID(ctx context.Context, id uint) (*model.Portfolio, error)
}

// ListHeldIntentsHandler returns the pending approval queue for a portfolio.
func ListHeldIntentsHandler(held heldIntentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		portfolioID, err := portfolioIDParam(r)
		if err != nil {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		intents, err := held.FindPendingByPortfolio(r.Context(), portfolioID)
		if err != nil {
			logger.WithError(err).Error("failed to list held intents")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, intents)
	}
}

type decideRequest struct {
	DecidedBy string `json:"decided_by"`
}

// ApproveHeldIntentHandler marks a pending intent approved and submits it.
// The risk gate re-evaluates against fresh state; an approval is permission
// to try, not a bypass.
func ApproveHeldIntentHandler(held heldIntentStore, portfolios portfolioFinder, exec approvalExecutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intentID := chi.URLParam(r, "intentID")

		var req decideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DecidedBy == "" {
			http.Error(w, "decided_by required", http.StatusBadRequest)
			return
		}

		record, err := held.FindByIntentID(r.Context(), intentID)
		if err != nil {
			logger.WithError(err).Error("failed to load held intent")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if record == nil {
			http.Error(w, "held intent not found", http.StatusNotFound)
			return
		}

		var intent model.SizedOrderIntent
		if err := json.Unmarshal([]byte(record.IntentJSON), &intent); err != nil {
			logger.WithError(err).WithField("intent_id", intentID).Error("held intent payload corrupt")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		portfolio, err := portfolios.FindByID(r.Context(), record.PortfolioID)
		if err != nil || portfolio == nil {
			logger.WithError(err).Error("failed to load portfolio for held intent")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if err := held.Decide(r.Context(), intentID, model.HeldIntentStatusApproved, req.DecidedBy); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		order, err := exec.ExecuteApproved(r.Context(), *portfolio, intent)
		if err != nil {
			// The approval stands; the submission failure is recorded in the
			// audit trail by the orchestrator.
			logger.WithError(err).WithField("intent_id", intentID).Error("approved intent failed to execute")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		logger.WithFields(map[string]interface{}{
			"intent_id":  intentID,
			"decided_by": req.DecidedBy,
			"order_id":   order.ID,
		}).Info("held intent approved and executed")

		writeJSON(w, order)
	}
}

// DenyHeldIntentHandler marks a pending intent denied; nothing is submitted.
func DenyHeldIntentHandler(held heldIntentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intentID := chi.URLParam(r, "intentID")

		var req decideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DecidedBy == "" {
			http.Error(w, "decided_by required", http.StatusBadRequest)
			return
		}

		if err := held.Decide(r.Context(), intentID, model.HeldIntentStatusDenied, req.DecidedBy); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		logger.WithFields(map[string]interface{}{
			"intent_id":  intentID,
			"decided_by": req.DecidedBy,
		}).Info("held intent denied")
		w.WriteHeader(http.StatusNoContent)
	}
}
