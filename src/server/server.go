package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/controller"
	"tradeorchestrator/src/handler"
	"tradeorchestrator/src/repository"
	"tradeorchestrator/src/risk"
)

// Deps carries the live collaborators the operator endpoints act on. The
// breaker reset must reach the same in-process ladder the loop trades
// against, so the server and the loop share these instances.
type Deps struct {
	Breaker      *risk.CircuitBreaker
	Orchestrator *controller.Orchestrator
}

func StartServer(port string, deps Deps) {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck error")
		}
	})

	// Read-only audit queries.
	r.Get("/decisions", handler.DefaultSearchDecisionsHandler())
	r.Get("/decisions/chain", handler.DefaultGetDecisionChainHandler())

	// Operator endpoints.
	breakerRep := repository.NewBreakerRepository()
	heldRep := repository.NewHeldIntentRepository()
	portfolioRep := repository.NewPortfolioRepository()

	r.Route("/portfolios/{portfolioID}", func(r chi.Router) {
		r.Post("/pause", handler.DefaultPausePortfolioHandler())
		r.Post("/resume", handler.DefaultResumePortfolioHandler())
		r.Get("/breaker", handler.GetBreakerHandler(breakerRep))
		r.Post("/breaker/reset", handler.ResetBreakerHandler(deps.Breaker, breakerRep))
		r.Get("/held-intents", handler.ListHeldIntentsHandler(heldRep))
	})
	r.Route("/held-intents/{intentID}", func(r chi.Router) {
		r.Post("/approve", handler.ApproveHeldIntentHandler(heldRep, portfolioRep, deps.Orchestrator))
		r.Post("/deny", handler.DenyHeldIntentHandler(heldRep))
	})

	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
