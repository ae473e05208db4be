package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/model"
	"tradeorchestrator/src/repository"
)

type decisionSearcher interface {
	Search(ctx context.Context, filter repository.SearchFilter) ([]model.Decision, error)
	FindByCorrelation(ctx context.Context, correlationID string) ([]model.Decision, error)
}

// SearchDecisionsHandler lists audit decisions filtered by query parameters
// (portfolioId, symbol, type, outcome, correlationId, from, to, limit).
func SearchDecisionsHandler(repo decisionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := repository.SearchFilter{
			Symbol:        r.URL.Query().Get("symbol"),
			DecisionType:  r.URL.Query().Get("type"),
			Outcome:       r.URL.Query().Get("outcome"),
			CorrelationID: r.URL.Query().Get("correlationId"),
		}

		if portfolioParam := r.URL.Query().Get("portfolioId"); portfolioParam != "" {
			id, err := strconv.ParseUint(portfolioParam, 10, 64)
			if err != nil {
				http.Error(w, "invalid portfolioId", http.StatusBadRequest)
				return
			}
			filter.PortfolioID = uint(id)
		}

		if fromParam := r.URL.Query().Get("from"); fromParam != "" {
			parsed, err := time.Parse(time.RFC3339, fromParam)
			if err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
			filter.From = parsed
		}

		if toParam := r.URL.Query().Get("to"); toParam != "" {
			parsed, err := time.Parse(time.RFC3339, toParam)
			if err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
			filter.To = parsed
		}

		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			filter.Limit = parsed
		}

		decisions, err := repo.Search(r.Context(), filter)
		if err != nil {
			logger.WithError(err).Error("failed to search decisions")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, decisions)
	}
}

// GetDecisionChainHandler returns every decision sharing one correlation id,
// oldest first, so a full cycle can be replayed.
func GetDecisionChainHandler(repo decisionSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.URL.Query().Get("correlationId")
		if correlationID == "" {
			http.Error(w, "correlationId required", http.StatusBadRequest)
			return
		}

		decisions, err := repo.FindByCorrelation(r.Context(), correlationID)
		if err != nil {
			logger.WithError(err).Error("failed to load decision chain")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, decisions)
	}
}

// DefaultSearchDecisionsHandler serves queries from the read-only connection.
func DefaultSearchDecisionsHandler() http.HandlerFunc {
	return SearchDecisionsHandler(repository.NewDecisionRepository().WithDB(database.ReadOnlyDB))
}

func DefaultGetDecisionChainHandler() http.HandlerFunc {
	return GetDecisionChainHandler(repository.NewDecisionRepository().WithDB(database.ReadOnlyDB))
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
