package orchestrate

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/executors"
)

type Orchestrate struct {
}

// Start runs the headless decision loop until interrupted.
func (t *Orchestrate) Start() error {
	config := executors.GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	// Initialize read-only database
	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to read-only database")
		return err
	}

	logrus.WithFields(map[string]interface{}{
		"portfolio": config.PortfolioName,
		"broker":    config.TargetBroker,
	}).Info("Starting decision loop")

	if err := executors.StartLoop(ctx); err != nil {
		logrus.WithError(err).Error("Decision loop exited with error")
		return err
	}

	return nil
}
