package services

import (
	"context"

	"toko-checkout/internal/metrics"
	"toko-checkout/internal/models"
	"toko-checkout/internal/payment"
	"toko-checkout/internal/repositories"

	"go.uber.org/zap"
)

// CaptureResult reports the outcome of a capture callback. OrderID is set only once
// the capture completed and the order exists.
type CaptureResult struct {
	Status     string `json:"status"`
	CaptureID  string `json:"capture_id,omitempty"`
	OrderID    string `json:"order_id,omitempty"`
	CheckoutID string `json:"checkout_id"`
	Completed  bool   `json:"completed"`
}

// PaymentService drives the provider authorization for the open checkout and hands
// completed captures to the order finalizer.
type PaymentService struct {
	store     *repositories.Store
	gateway   payment.Gateway
	checkouts *CheckoutService
	orders    *OrderService
	metrics   *metrics.Checkout
	logger    *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(store *repositories.Store, gateway payment.Gateway, checkouts *CheckoutService, orders *OrderService, m *metrics.Checkout, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		store:     store,
		gateway:   gateway,
		checkouts: checkouts,
		orders:    orders,
		metrics:   m,
		logger:    logger,
	}
}

// StartPayment creates a provider authorization for the open checkout's total and
// records its id on the snapshot.
func (s *PaymentService) StartPayment(ctx context.Context, userID, returnURL, cancelURL string) (*payment.Authorization, error) {
	if returnURL == "" || cancelURL == "" {
		return nil, invalidInput("return_url and cancel_url are required")
	}
	snap, err := s.checkouts.requireOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.DeliveryType == "" {
		return nil, invalidInput("delivery must be selected before payment")
	}
	if snap.Total <= 0 {
		return nil, invalidInput("checkout total must be positive")
	}

	auth, err := s.gateway.CreateAuthorization(ctx, snap.Total, snap.Currency, returnURL, cancelURL)
	if err != nil {
		s.metrics.PaymentFailed(string(payment.OpCreate))
		s.logger.Warn("payment authorization failed", zap.String("checkout_id", snap.ID), zap.Error(err))
		return nil, paymentError(KindPaymentInit, err)
	}

	if err := s.store.Checkouts.UpdateOpen(ctx, snap.ID, map[string]interface{}{"payment_order_id": auth.ProviderOrderID}); err != nil {
		return nil, noSession(err)
	}
	s.logger.Info("payment started",
		zap.String("checkout_id", snap.ID),
		zap.String("provider_order_id", auth.ProviderOrderID),
		zap.Int64("amount", snap.Total))
	return auth, nil
}

// CapturePayment captures the authorization the buyer approved. A capture that is
// not yet completed is reported without finalizing. Replaying the callback for a
// finalized checkout returns the existing order with CheckoutAlreadyProcessed.
func (s *PaymentService) CapturePayment(ctx context.Context, userID, providerOrderID string) (*CaptureResult, error) {
	if providerOrderID == "" {
		return nil, invalidInput("order id is required")
	}
	snap, err := s.store.Checkouts.FindByPaymentOrderID(ctx, providerOrderID)
	if isNotFound(err) || (err == nil && snap.UserID != userID) {
		return nil, ErrCheckoutSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	switch snap.Status {
	case models.CheckoutCompleted:
		result := &CaptureResult{Status: payment.CaptureCompleted, CheckoutID: snap.ID, Completed: true}
		if order, err := s.store.Orders.GetByCheckoutID(ctx, snap.ID); err == nil {
			result.OrderID = order.ID
			result.CaptureID = order.PaymentReference
		}
		return result, ErrCheckoutAlreadyProcessed
	case models.CheckoutCanceled:
		return nil, ErrCheckoutAlreadyProcessed
	}

	capture, err := s.gateway.CaptureAuthorization(ctx, providerOrderID)
	if err != nil {
		s.metrics.PaymentFailed(string(payment.OpCapture))
		s.logger.Warn("payment capture failed", zap.String("checkout_id", snap.ID), zap.Error(err))
		return nil, paymentError(KindPaymentCapture, err)
	}

	result := &CaptureResult{Status: capture.Status, CaptureID: capture.CaptureID, CheckoutID: snap.ID}
	if !capture.Completed() {
		s.logger.Info("payment capture pending", zap.String("checkout_id", snap.ID), zap.String("status", capture.Status))
		return result, nil
	}

	orderID, err := s.orders.Finalize(ctx, snap.ID, PaymentReference{
		Provider:      models.PaymentProviderPayPal,
		Reference:     capture.CaptureID,
		Authorization: providerOrderID,
	})
	if err != nil {
		return nil, err
	}
	result.OrderID = orderID
	result.Completed = true
	return result, nil
}
