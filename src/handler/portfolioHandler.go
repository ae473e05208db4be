package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
	"tradeorchestrator/src/repository"
)

type portfolioAdmin interface {
	FindByID(ctx context.Context, id uint) (*model.Portfolio, error)
	Pause(ctx context.Context, id uint, pausedBy string) error
	Resume(ctx context.Context, id uint) error
}

type pauseRequest struct {
	By string `json:"by"`
}

// PausePortfolioHandler stops the loop from opening new risk for a portfolio.
// Already-submitted orders are unaffected.
func PausePortfolioHandler(repo portfolioAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := portfolioIDParam(r)
		if err != nil {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		var req pauseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.By == "" {
			http.Error(w, "by required", http.StatusBadRequest)
			return
		}

		portfolio, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load portfolio")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if portfolio == nil {
			http.Error(w, "portfolio not found", http.StatusNotFound)
			return
		}

		if err := repo.Pause(r.Context(), id, req.By); err != nil {
			logger.WithError(err).Error("failed to pause portfolio")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.WithFields(map[string]interface{}{
			"portfolio_id": id,
			"by":           req.By,
		}).Warn("portfolio paused")
		w.WriteHeader(http.StatusNoContent)
	}
}

// ResumePortfolioHandler reactivates a paused portfolio.
func ResumePortfolioHandler(repo portfolioAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := portfolioIDParam(r)
		if err != nil {
			http.Error(w, "invalid portfolio id", http.StatusBadRequest)
			return
		}

		portfolio, err := repo.FindByID(r.Context(), id)
		if err != nil {
			logger.WithError(err).Error("failed to load portfolio")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if portfolio == nil {
			http.Error(w, "portfolio not found", http.StatusNotFound)
			return
		}

		if err := repo.Resume(r.Context(), id); err != nil {
			logger.WithError(err).Error("failed to resume portfolio")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.WithField("portfolio_id", id).Info("portfolio resumed")
		w.WriteHeader(http.StatusNoContent)
	}
}

func DefaultPausePortfolioHandler() http.HandlerFunc {
	return PausePortfolioHandler(repository.NewPortfolioRepository())
}

func DefaultResumePortfolioHandler() http.HandlerFunc {
	return ResumePortfolioHandler(repository.NewPortfolioRepository())
}
