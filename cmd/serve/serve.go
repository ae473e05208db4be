package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"tradeorchestrator/src/broker"
	"tradeorchestrator/src/database"
	"tradeorchestrator/src/executors"
	"tradeorchestrator/src/server"
)

type Serve struct {
}

// Start runs the decision loop and the operator API in one process. They
// share the runtime so breaker resets and intent approvals act on the same
// in-memory state the loop uses.
func (t *Serve) Start() error {
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

	runtime, err := executors.NewRuntime(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to assemble runtime")
		return err
	}

	go func() {
		if err := runtime.StartLoop(ctx); err != nil {
			if broker.Fatal(err) {
				logrus.WithError(err).Fatal("Decision loop hit an invariant violation")
			}
			logrus.WithError(err).Error("Decision loop exited")
		}
	}()

	config := server.GetConfig()
	server.StartServer(config.Port, server.Deps{
		Breaker:      runtime.Breaker,
		Orchestrator: runtime.Orchestrator,
	})

	return nil
}
