package services

import (
	"context"
	"errors"

	"toko-checkout/internal/metrics"
	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// OrderEventPublisher announces finalized orders.
type OrderEventPublisher interface {
	PublishOrderCreated(payload interface{}) error
}

// OrderCreatedEvent is published once an order has been committed.
type OrderCreatedEvent struct {
	OrderID          string `json:"order_id"`
	UserID           string `json:"user_id"`
	CheckoutID       string `json:"checkout_id"`
	Total            int64  `json:"total"`
	Currency         string `json:"currency"`
	PaymentReference string `json:"payment_reference"`
}

// PaymentReference identifies a settled capture at the provider. Authorization is
// the provider order that was captured; the snapshot must still be bound to it.
type PaymentReference struct {
	Provider      string
	Reference     string
	Authorization string
}

// errAuthorizationMismatch means the capture settled an authorization the
// snapshot no longer carries, so its amount cannot be trusted.
var errAuthorizationMismatch = &Error{
	Kind:    KindCheckoutAlreadyProcessed,
	Message: "checkout is not bound to the captured payment",
}

// OrderService materializes orders from paid checkouts and serves order history.
type OrderService struct {
	store     *repositories.Store
	publisher OrderEventPublisher
	metrics   *metrics.Checkout
	logger    *zap.Logger
	validate  *validator.Validate
}

// NewOrderService creates a new OrderService. publisher and m may be nil.
func NewOrderService(store *repositories.Store, publisher OrderEventPublisher, m *metrics.Checkout, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		validate:  validator.New(),
	}
}

// errProcessed marks a finalize transaction that lost the race for the snapshot.
var errProcessed = errors.New("checkout left CREATED")

// Finalize converts a CREATED snapshot into an order. The snapshot must still carry
// ref.Authorization, so the order total is the amount that was authorized. In one
// transaction it marks the snapshot COMPLETED, inserts the order, completes the cart and its lines, and
// provisions a fresh active cart. Nothing is committed unless all of it succeeds.
// A second call for the same snapshot fails with CheckoutAlreadyProcessed.
func (s *OrderService) Finalize(ctx context.Context, snapshotID string, ref PaymentReference) (string, error) {
	snap, err := s.store.Checkouts.FindByID(ctx, snapshotID)
	if isNotFound(err) {
		return "", ErrCheckoutSessionNotFound
	}
	if err != nil {
		return "", newError(KindOrderTransactionFailed, "failed to load checkout", err)
	}
	if snap.Status != models.CheckoutCreated {
		return "", ErrCheckoutAlreadyProcessed
	}
	if snap.PaymentOrderID != ref.Authorization {
		s.logger.Error("capture does not match checkout authorization",
			zap.String("checkout_id", snap.ID),
			zap.String("payment_order_id", snap.PaymentOrderID),
			zap.String("captured", ref.Authorization))
		return "", errAuthorizationMismatch
	}

	order := orderFromSnapshot(snap, ref)
	if err := s.validate.Struct(order); err != nil {
		return "", validationError(KindInvalidOrderData, "order payload failed validation", err)
	}

	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Checkouts.Complete(ctx, snap.ID, ref.Authorization); err != nil {
			if isConflict(err) {
				return errProcessed
			}
			return err
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			if isConflict(err) {
				return errProcessed
			}
			return err
		}
		if err := tx.Carts.Transition(ctx, snap.CartID, models.CartCheckoutLocked, models.CartCompleted); err != nil {
			return err
		}
		if err := tx.Carts.TransitionItems(ctx, snap.CartID, models.CartItemActive, models.CartItemCompleted); err != nil {
			return err
		}
		return tx.Carts.EnsureOpen(ctx, snap.UserID, snap.Currency)
	})
	if errors.Is(err, errProcessed) {
		return "", ErrCheckoutAlreadyProcessed
	}
	if err != nil {
		s.logger.Error("order transaction failed", zap.String("checkout_id", snap.ID), zap.Error(err))
		return "", newError(KindOrderTransactionFailed, "order was not created", err)
	}

	s.metrics.OrderFinalized()
	s.logger.Info("order finalized",
		zap.String("order_id", order.ID),
		zap.String("checkout_id", snap.ID),
		zap.String("user_id", snap.UserID),
		zap.Int64("total", order.TotalAmount))
	s.publishCreated(order)
	return order.ID, nil
}

// GetOrder returns one of the user's orders.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.store.Orders.GetByID(ctx, orderID)
	if isNotFound(err) || (err == nil && order.UserID != userID) {
		return nil, newError(KindNotFound, "order not found", err)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.Orders.ListByUser(ctx, userID)
}

func orderFromSnapshot(snap *models.CheckoutSnapshot, ref PaymentReference) *models.Order {
	items := make(models.OrderItems, 0, len(snap.Items))
	for _, it := range snap.Items {
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	billing := snap.BillingAddress
	if billing.IsZero() {
		billing = snap.ShippingAddress
	}
	return &models.Order{
		UserID:           snap.UserID,
		CheckoutID:       snap.ID,
		CartID:           snap.CartID,
		Status:           models.OrderStatusPaid,
		Items:            items,
		Subtotal:         snap.Subtotal,
		Tax:              snap.Tax,
		Shipping:         snap.Shipping,
		TotalAmount:      snap.Total,
		Currency:         snap.Currency,
		PaymentProvider:  ref.Provider,
		PaymentReference: ref.Reference,
		ShippingAddress:  snap.ShippingAddress,
		BillingAddress:   billing,
		DeliveryMode:     snap.DeliveryType,
	}
}

// publishCreated is best-effort; the order is already committed.
func (s *OrderService) publishCreated(order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		OrderID:          order.ID,
		UserID:           order.UserID,
		CheckoutID:       order.CheckoutID,
		Total:            order.TotalAmount,
		Currency:         order.Currency,
		PaymentReference: order.PaymentReference,
	}
	if err := s.publisher.PublishOrderCreated(event); err != nil {
		s.logger.Warn("failed to publish order created event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
