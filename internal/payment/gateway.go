// Package payment talks to the external payment provider. It only sees amounts,
// currencies, callback URLs and the provider's opaque identifiers.
package payment

import (
	"context"
	"fmt"
)

// CaptureCompleted is the provider status of a settled capture.
const CaptureCompleted = "COMPLETED"

// Authorization is a provider order awaiting buyer approval.
type Authorization struct {
	ProviderOrderID string `json:"provider_order_id"`
	ApprovalURL     string `json:"approval_url"`
	Status          string `json:"status"`
}

// Capture is the provider's answer to a capture request.
type Capture struct {
	Status    string `json:"status"`
	CaptureID string `json:"capture_id"`
}

// Completed reports whether the money has moved.
func (c *Capture) Completed() bool {
	return c.Status == CaptureCompleted
}

// Gateway creates and captures payment authorizations.
type Gateway interface {
	CreateAuthorization(ctx context.Context, amount int64, currency, returnURL, cancelURL string) (*Authorization, error)
	CaptureAuthorization(ctx context.Context, providerOrderID string) (*Capture, error)
}

// Operation names the gateway call that failed.
type Operation string

const (
	OpToken   Operation = "token"
	OpCreate  Operation = "create"
	OpCapture Operation = "capture"
)

// Error is a provider-side or transport failure. Message is the provider's own
// description when one was returned.
type Error struct {
	Op         Operation
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("payment %s failed with status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("payment %s failed: %s: %v", e.Op, e.Message, e.Err)
	default:
		return fmt.Sprintf("payment %s failed: %s", e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }
