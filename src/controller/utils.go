package controller

import (
	"context"
	"encoding/json"

	logger "github.com/sirupsen/logrus"

	"tradeorchestrator/src/model"
)

// capture records an operational error for post-hoc review. Best effort; a
// failing exception store must never take down the cycle that hit the error.
func (o *Orchestrator) capture(ctx context.Context, portfolioID uint, component, operation string, err error, meta map[string]interface{}) {
	if o.deps.Exceptions == nil {
		return
	}

	metadata := ""
	if len(meta) > 0 {
		if b, marshalErr := json.Marshal(meta); marshalErr == nil {
			metadata = string(b)
		}
	}

	exc := &model.Exception{
		PortfolioID: portfolioID,
		Component:   component,
		Operation:   operation,
		Severity:    "error",
		Message:     err.Error(),
		Metadata:    metadata,
	}
	if storeErr := o.deps.Exceptions.Create(ctx, exc); storeErr != nil {
		logger.WithError(storeErr).Error("failed to store exception record")
	}
}
