package services

import (
	"errors"
	"fmt"

	"toko-checkout/internal/payment"
	"toko-checkout/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a checkout failure so callers can pick a response.
type Kind string

const (
	KindInvalidInput             Kind = "InvalidInput"
	KindNotFound                 Kind = "NotFound"
	KindNoActiveCart             Kind = "NoActiveCart"
	KindEmptyCart                Kind = "EmptyCart"
	KindNoCheckoutSession        Kind = "NoCheckoutSession"
	KindCartLocked               Kind = "CartLocked"
	KindDeliveryUnavailable      Kind = "DeliveryUnavailable"
	KindOutOfStock               Kind = "OutOfStock"
	KindProductUnavailable       Kind = "ProductUnavailable"
	KindCheckoutSessionNotFound  Kind = "CheckoutSessionNotFound"
	KindCheckoutAlreadyProcessed Kind = "CheckoutAlreadyProcessed"
	KindInvalidOrderData         Kind = "InvalidOrderData"
	KindPaymentInit              Kind = "PaymentInitError"
	KindPaymentCapture           Kind = "PaymentCaptureError"
	KindOrderTransactionFailed   Kind = "OrderTransactionFailed"
)

// Error is the tagged error returned by the cart, checkout, payment and order services.
type Error struct {
	Kind    Kind
	Message string
	// Product names the offending product for DeliveryUnavailable, OutOfStock and
	// ProductUnavailable.
	Product string
	// Fields holds per-field validation messages for InvalidInput and InvalidOrderData.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrCartLocked) works
// for every CartLocked failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInvalidInput             = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrNotFound                 = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNoActiveCart             = &Error{Kind: KindNoActiveCart, Message: "no active cart"}
	ErrEmptyCart                = &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrNoCheckoutSession        = &Error{Kind: KindNoCheckoutSession, Message: "no checkout in progress"}
	ErrCartLocked               = &Error{Kind: KindCartLocked, Message: "cart is locked for checkout"}
	ErrDeliveryUnavailable      = &Error{Kind: KindDeliveryUnavailable, Message: "delivery option unavailable"}
	ErrOutOfStock               = &Error{Kind: KindOutOfStock, Message: "insufficient stock"}
	ErrProductUnavailable       = &Error{Kind: KindProductUnavailable, Message: "product unavailable"}
	ErrCheckoutSessionNotFound  = &Error{Kind: KindCheckoutSessionNotFound, Message: "checkout not found"}
	ErrCheckoutAlreadyProcessed = &Error{Kind: KindCheckoutAlreadyProcessed, Message: "checkout already processed"}
	ErrInvalidOrderData         = &Error{Kind: KindInvalidOrderData, Message: "invalid order data"}
	ErrPaymentInit              = &Error{Kind: KindPaymentInit, Message: "payment initialization failed"}
	ErrPaymentCapture           = &Error{Kind: KindPaymentCapture, Message: "payment capture failed"}
	ErrOrderTransactionFailed   = &Error{Kind: KindOrderTransactionFailed, Message: "order transaction failed"}
)

// errPaymentStarted rejects edits to a checkout whose total is already authorized
// at the provider.
var errPaymentStarted = &Error{
	Kind:    KindCheckoutAlreadyProcessed,
	Message: "payment already started for this checkout; cancel it to make changes",
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func invalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// validationError converts validator output into an error of kind with per-field messages.
func validationError(kind Kind, message string, err error) *Error {
	out := &Error{Kind: kind, Message: message, Err: err}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out.Fields = make(map[string]string, len(verrs))
		for _, e := range verrs {
			out.Fields[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return out
}

// paymentError keeps the provider's message for diagnostics.
func paymentError(kind Kind, err error) *Error {
	msg := err.Error()
	var perr *payment.Error
	if errors.As(err, &perr) && perr.Message != "" {
		msg = perr.Message
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func isNotFound(err error) bool { return errors.Is(err, repositories.ErrNotFound) }
func isConflict(err error) bool { return errors.Is(err, repositories.ErrConflict) }
