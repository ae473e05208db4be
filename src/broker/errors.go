package broker

import (
	"errors"
	"fmt"
)

// Shared error taxonomy for the whole pipeline. Adapters map backend-specific
// codes onto these sentinels; the controller decides containment vs escalation
// by matching on them, never on backend strings.
var (
	// ErrContextUnavailable aborts the cycle before any provider runs.
	ErrContextUnavailable = errors.New("decision context unavailable")

	// ErrProviderTimeout drops one provider's proposals for the cycle.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrProviderFailed drops one provider's proposals for the cycle.
	ErrProviderFailed = errors.New("provider failed")

	// ErrInstrumentNotResolvable rejects the specific intent only.
	ErrInstrumentNotResolvable = errors.New("instrument not resolvable")

	// ErrRateLimited is retried with backoff up to a cap, then surfaces
	// as ErrBrokerUnavailable.
	ErrRateLimited = errors.New("broker rate limited")

	// ErrBrokerUnavailable halts new submissions for a cooldown window.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrRiskRejected is an expected outcome, logged and audited, never escalated.
	ErrRiskRejected = errors.New("risk rejected")

	// ErrInvariantViolation is fatal; the process must abort rather than
	// silently proceed with a money-affecting bug.
	ErrInvariantViolation = errors.New("invariant violation")
)

// OrderError wraps a backend rejection with the backend's own code so the
// audit trail keeps the original diagnostic.
type OrderError struct {
	Broker  string
	Code    string
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s order error %s: %s", e.Broker, e.Code, e.Message)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// Fatal reports whether err must abort the process.
func Fatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
