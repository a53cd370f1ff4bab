// Package mpesa talks to the Safaricom Daraja STK push API, or pretends to.
package mpesa

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

type Mode string

const (
	ModeDaraja    Mode = "daraja"
	ModeSimulator Mode = "simulator"
)

// Outcome is the gateway's view of a push payment.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// Result codes reported by Daraja in callbacks and queries.
const (
	ResultSuccess         = 0
	ResultCancelledByUser = 1032
)

// OutcomeForCode maps a Daraja ResultCode onto an Outcome.
func OutcomeForCode(code int) Outcome {
	switch code {
	case ResultSuccess:
		return OutcomeCompleted
	case ResultCancelledByUser:
		return OutcomeCancelled
	default:
		return OutcomeFailed
	}
}

type PushRequest struct {
	Phone       string
	Amount      int
	Reference   string
	Description string
}

type PushResult struct {
	CheckoutRequestID   string
	MerchantRequestID   string
	TransactionID       string
	ResponseDescription string
	CustomerMessage     string
}

type QueryResult struct {
	Outcome    Outcome
	ResultCode string
	ResultDesc string
}

// Gateway is what the payment workflow needs from a push-payment provider.
type Gateway interface {
	Mode() Mode
	Push(ctx context.Context, req PushRequest) (*PushResult, error)
	Query(ctx context.Context, checkoutRequestID string) (*QueryResult, error)
}

// ErrAuth is returned when the access token cannot be obtained.
var ErrAuth = errors.New("mpesa: authentication failed")

// Error carries the provider's response for a failed call.
type Error struct {
	Op         string
	StatusCode int
	Body       map[string]interface{}
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op + " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if desc := e.Description(); desc != "" {
		msg += ": " + desc
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Description picks the most useful message out of a Daraja error body.
func (e *Error) Description() string {
	for _, k := range []string{"errorMessage", "error_description", "ResponseDescription", "ResultDesc"} {
		if v, ok := e.Body[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Select builds the gateway once at start-up. An unconfigured environment, or
// one whose credentials are rejected by the token endpoint, gets the simulator.
func Select(ctx context.Context, cfg Config, client *http.Client) Gateway {
	if !cfg.IsConfigured() {
		log.Printf("[mpesa] not configured (environment=%q), using simulator", cfg.Environment)
		return NewSimulator()
	}
	d := NewDaraja(cfg, client)
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := d.AccessToken(probeCtx); err != nil {
		log.Printf("[mpesa] connectivity probe failed, using simulator: %v", err)
		return NewSimulator()
	}
	log.Printf("[mpesa] using Daraja at %s (shortcode %s)", d.baseURL, cfg.BusinessShortCode)
	return d
}
