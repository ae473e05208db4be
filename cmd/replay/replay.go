package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"tradeorchestrator/src/database"
	"tradeorchestrator/src/model"
	"tradeorchestrator/src/repository"
)

type Replay struct {
	CorrelationID string
	PortfolioID   uint
	Symbol        string
	Limit         int
}

// Start prints an audit trail slice: either the full chain for one
// correlation id, or a filtered search, newest first.
func (t *Replay) Start() error {
	if t.CorrelationID == "" && t.PortfolioID == 0 {
		return errors.New("either --correlation or --portfolio is required")
	}

	if err := database.InitReadOnlyDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to read-only database")
		return err
	}

	repo := repository.NewDecisionRepository().WithDB(database.ReadOnlyDB)
	ctx := context.Background()

	var (
		decisions []model.Decision
		err       error
	)
	if t.CorrelationID != "" {
		decisions, err = repo.FindByCorrelation(ctx, t.CorrelationID)
	} else {
		decisions, err = repo.Search(ctx, repository.SearchFilter{
			PortfolioID: t.PortfolioID,
			Symbol:      t.Symbol,
			Limit:       t.Limit,
		})
	}
	if err != nil {
		logrus.WithError(err).Error("Failed to load decisions")
		return err
	}

	if len(decisions) == 0 {
		fmt.Println("no decisions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DECIDED AT\tCORRELATION\tTYPE\tSYMBOL\tPROVIDER\tBREAKER\tOUTCOME\tREASON")
	for _, d := range decisions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.DecidedAt.Format(time.RFC3339),
			d.CorrelationID,
			d.DecisionType,
			d.Symbol,
			d.Provider,
			d.BreakerLevel,
			d.Outcome,
			d.Reason,
		)
	}
	return w.Flush()
}
