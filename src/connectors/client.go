package connectors

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tradeorchestrator/src/broker"
)

const (
	defaultRetryAttempts   = 4
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// isRetryableResp retries transport errors, 5xx, 429 and 408. Everything else
// is surfaced to the caller on the first attempt.
func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()
	if code >= 500 && code <= 599 {
		return true
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == http.StatusRequestTimeout {
		return true
	}
	return false
}

// newRestyClient builds the shared HTTP client: bounded retry with exponential
// backoff plus a client-side rate limiter so we stop hammering a venue before
// it starts returning 429s.
func newRestyClient(baseURL string, timeout time.Duration, perMinute int) *resty.Client {
	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/10+1)

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx := req.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return limiter.Wait(ctx)
	})

	return client
}

// classifyResponse maps a final (post-retry) response onto the shared error
// taxonomy. A 429 that survived every retry attempt counts as the venue being
// unavailable; submissions then pause for the cooldown window.
func classifyResponse(brokerName string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %v", broker.ErrBrokerUnavailable, brokerName, err)
	}
	if resp == nil {
		return fmt.Errorf("%w: %s: empty response", broker.ErrBrokerUnavailable, brokerName)
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusTooManyRequests:
		logger.WithFields(map[string]interface{}{
			"broker": brokerName,
			"status": code,
		}).Warn("rate limit persisted through retry budget")
		return fmt.Errorf("%w: %s: %w", broker.ErrBrokerUnavailable, brokerName, broker.ErrRateLimited)
	case code >= 500:
		return fmt.Errorf("%w: %s: HTTP %d", broker.ErrBrokerUnavailable, brokerName, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: HTTP 404: %s", brokerName, resp.String())
	case code >= 400:
		return &broker.OrderError{
			Broker:  brokerName,
			Code:    fmt.Sprintf("HTTP_%d", code),
			Message: resp.String(),
		}
	}
	return nil
}
