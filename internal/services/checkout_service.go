package services

import (
	"context"
	"time"

	"toko-checkout/internal/metrics"
	"toko-checkout/internal/models"
	"toko-checkout/internal/pricing"
	"toko-checkout/internal/repositories"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultCheckoutTTL is how long a checkout snapshot stays open.
const DefaultCheckoutTTL = 15 * time.Minute

// reclaimBatch bounds how many expired snapshots one sweep cancels.
const reclaimBatch = 100

// Cancellation reasons recorded in metrics and logs.
const (
	CancelByUser  = "user"
	CancelExpired = "expired"
)

// AddressPublisher forwards captured addresses to the profile service.
type AddressPublisher interface {
	PublishAddressSaved(payload interface{}) error
}

// AddressEvent is published after a shipping or billing address is accepted.
type AddressEvent struct {
	UserID  string         `json:"user_id"`
	Kind    string         `json:"kind"`
	Address models.Address `json:"address"`
}

// BillingInput selects the billing address: either a copy of shipping or a distinct address.
type BillingInput struct {
	UseShipping bool            `json:"use_shipping"`
	Address     *models.Address `json:"address,omitempty"`
}

// CheckoutOptions configures a CheckoutService. Zero values select defaults.
type CheckoutOptions struct {
	TTL       time.Duration
	Addresses AddressPublisher
	Metrics   *metrics.Checkout
	Logger    *zap.Logger
	Now       func() time.Time
}

// CheckoutService walks a frozen snapshot of the user's cart through the shipping,
// billing and delivery steps. At most one CREATED snapshot exists per user, and the
// source cart stays locked while it does.
type CheckoutService struct {
	store     *repositories.Store
	engine    *pricing.Engine
	addresses AddressPublisher
	metrics   *metrics.Checkout
	logger    *zap.Logger
	validate  *validator.Validate
	ttl       time.Duration
	now       func() time.Time
	currency  string
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(store *repositories.Store, engine *pricing.Engine, opts CheckoutOptions) *CheckoutService {
	s := &CheckoutService{
		store:     store,
		engine:    engine,
		addresses: opts.Addresses,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		validate:  validator.New(),
		ttl:       opts.TTL,
		now:       opts.Now,
		currency:  DefaultCurrency,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCheckoutTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// BeginShipping records the shipping address. The first call snapshots the active
// cart and locks it; later calls on the same snapshot replace the address.
func (s *CheckoutService) BeginShipping(ctx context.Context, userID string, addr models.Address) (*models.CheckoutSnapshot, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}
	addr, err := s.checkAddress(addr)
	if err != nil {
		return nil, err
	}

	snap, err := s.open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		if snap.PaymentOrderID != "" {
			return nil, errPaymentStarted
		}
		// A new destination can change the tax, so pricing is reset until delivery
		// is selected again.
		err := s.store.Checkouts.UpdateEditable(ctx, snap.ID, map[string]interface{}{
			"shipping_address": addr,
			"tax":              0,
			"shipping":         0,
			"total":            snap.Subtotal,
			"delivery_type":    "",
		})
		if err == nil {
			snap.ShippingAddress = addr
			snap.Tax, snap.Shipping, snap.Total = 0, 0, snap.Subtotal
			snap.DeliveryType = ""
			s.publishAddress(userID, "shipping", addr)
			return snap, nil
		}
		if !isConflict(err) {
			return nil, err
		}
		if err := s.editConflict(ctx, userID); err != nil {
			return nil, err
		}
		// Completed or canceled concurrently; start a new checkout below.
	}

	snap, err = s.create(ctx, userID, addr)
	if err != nil {
		return nil, err
	}
	s.metrics.CheckoutStarted()
	s.logger.Info("checkout started",
		zap.String("user_id", userID),
		zap.String("checkout_id", snap.ID),
		zap.String("cart_id", snap.CartID),
		zap.Int64("subtotal", snap.Subtotal))
	s.publishAddress(userID, "shipping", addr)
	return snap, nil
}

func (s *CheckoutService) create(ctx context.Context, userID string, addr models.Address) (*models.CheckoutSnapshot, error) {
	now := s.now().UTC()
	var snap *models.CheckoutSnapshot
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		cart, err := tx.Carts.FindOpen(ctx, userID)
		if isNotFound(err) {
			return ErrNoActiveCart
		}
		if err != nil {
			return err
		}
		if cart.Locked() {
			return ErrCartLocked
		}
		// Lock first so no cart mutation can commit between reading the lines and
		// freezing them.
		if err := tx.Carts.Transition(ctx, cart.ID, models.CartActive, models.CartCheckoutLocked); err != nil {
			return guardToLocked(err)
		}

		lines, err := tx.Carts.ActiveItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		items := make(models.SnapshotItems, 0, len(lines))
		for _, line := range lines {
			tiers := models.DeliveryTiers{models.DeliveryNormal}
			product, err := tx.Products.GetByID(ctx, line.ProductID)
			switch {
			case err == nil:
				tiers = product.DeliveryOptions.OrDefault()
			case !isNotFound(err):
				return err
			}
			items = append(items, models.SnapshotItem{
				ProductID:     line.ProductID,
				Name:          line.SnapshotName,
				Price:         line.SnapshotPrice,
				Quantity:      line.Quantity,
				DeliveryTiers: tiers,
			})
		}

		snap = &models.CheckoutSnapshot{
			UserID:          userID,
			CartID:          cart.ID,
			Items:           items,
			Subtotal:        pricing.Subtotal(items),
			Currency:        cart.Currency,
			ShippingAddress: addr,
			Status:          models.CheckoutCreated,
			ExpiresAt:       now.Add(s.ttl),
		}
		snap.Total = snap.Subtotal
		return guardToLocked(tx.Checkouts.Create(ctx, snap))
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SetBillingAddress records the billing address of the open checkout.
func (s *CheckoutService) SetBillingAddress(ctx context.Context, userID string, in BillingInput) (*models.CheckoutSnapshot, error) {
	snap, err := s.requireEditable(ctx, userID)
	if err != nil {
		return nil, err
	}

	var billing models.Address
	switch {
	case in.UseShipping:
		billing = snap.ShippingAddress
	case in.Address != nil:
		billing, err = s.checkAddress(*in.Address)
		if err != nil {
			return nil, err
		}
	default:
		return nil, invalidInput("billing address or use_shipping is required")
	}

	if err := s.store.Checkouts.UpdateEditable(ctx, snap.ID, map[string]interface{}{"billing_address": billing}); err != nil {
		return nil, s.editFailed(ctx, userID, err)
	}
	snap.BillingAddress = billing
	if !in.UseShipping {
		s.publishAddress(userID, "billing", billing)
	}
	return snap, nil
}

// SelectDelivery prices the open checkout for tier. Every frozen item must offer
// the tier.
func (s *CheckoutService) SelectDelivery(ctx context.Context, userID, tierName string) (*pricing.Quote, error) {
	tier, ok := models.ParseDeliveryTier(tierName)
	if !ok {
		return nil, invalidInput("unknown delivery type " + tierName)
	}
	snap, err := s.requireEditable(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.ShippingAddress.IsZero() {
		return nil, invalidInput("shipping address is required before delivery")
	}
	for _, item := range snap.Items {
		if !item.DeliveryTiers.Contains(tier) {
			return nil, &Error{
				Kind:    KindDeliveryUnavailable,
				Message: string(tier) + " delivery is not available for " + item.Name,
				Product: item.Name,
			}
		}
	}

	quote, err := s.engine.Price(snap.Items, tier, snap.ShippingAddress)
	if err != nil {
		return nil, newError(KindInvalidInput, "delivery type cannot be priced", err)
	}
	err = s.store.Checkouts.UpdateEditable(ctx, snap.ID, map[string]interface{}{
		"subtotal":      quote.Subtotal,
		"tax":           quote.Tax,
		"shipping":      quote.Shipping,
		"total":         quote.Total,
		"delivery_type": quote.DeliveryType,
	})
	if err != nil {
		return nil, s.editFailed(ctx, userID, err)
	}
	return &quote, nil
}

// DeliveryOptions lists the tiers every item of the open checkout can ship with.
func (s *CheckoutService) DeliveryOptions(ctx context.Context, userID string) ([]pricing.DeliveryOption, error) {
	snap, err := s.requireOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []pricing.DeliveryOption
	for _, option := range s.engine.Options() {
		offered := true
		for _, item := range snap.Items {
			if !item.DeliveryTiers.Contains(option.Tier) {
				offered = false
				break
			}
		}
		if offered {
			out = append(out, option)
		}
	}
	return out, nil
}

// Current returns the open checkout.
func (s *CheckoutService) Current(ctx context.Context, userID string) (*models.CheckoutSnapshot, error) {
	return s.requireOpen(ctx, userID)
}

// Cancel abandons the open checkout and unlocks the cart. When the latest checkout
// is already terminal its status is returned unchanged.
func (s *CheckoutService) Cancel(ctx context.Context, userID string) (models.CheckoutStatus, error) {
	snap, err := s.store.Checkouts.FindOpenByUser(ctx, userID)
	if isNotFound(err) {
		latest, err := s.store.Checkouts.FindLatestByUser(ctx, userID)
		if isNotFound(err) {
			return "", ErrNoCheckoutSession
		}
		if err != nil {
			return "", err
		}
		return latest.Status, nil
	}
	if err != nil {
		return "", err
	}
	return s.cancel(ctx, snap, CancelByUser)
}

// ExpireStale cancels expired checkouts that have no authorization in flight and
// returns how many were canceled.
func (s *CheckoutService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.store.Checkouts.ListReclaimable(ctx, now, reclaimBatch)
	if err != nil {
		return 0, err
	}
	canceled := 0
	for i := range stale {
		status, err := s.cancel(ctx, &stale[i], CancelExpired)
		if err != nil {
			return canceled, err
		}
		if status == models.CheckoutCanceled {
			canceled++
		}
	}
	return canceled, nil
}

// cancel moves snap to CANCELED and the cart back to active in one transaction.
// If snap left CREATED concurrently, its current status is returned.
func (s *CheckoutService) cancel(ctx context.Context, snap *models.CheckoutSnapshot, reason string) (models.CheckoutStatus, error) {
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Checkouts.Transition(ctx, snap.ID, models.CheckoutCreated, models.CheckoutCanceled); err != nil {
			return err
		}
		err := tx.Carts.Transition(ctx, snap.CartID, models.CartCheckoutLocked, models.CartActive)
		if isConflict(err) {
			return nil
		}
		return err
	})
	if isConflict(err) {
		current, ferr := s.store.Checkouts.FindByID(ctx, snap.ID)
		if ferr != nil {
			return "", ferr
		}
		return current.Status, nil
	}
	if err != nil {
		return "", err
	}

	s.metrics.CheckoutCanceled(reason)
	s.logger.Info("checkout canceled",
		zap.String("user_id", snap.UserID),
		zap.String("checkout_id", snap.ID),
		zap.String("reason", reason))
	return models.CheckoutCanceled, nil
}

// open returns the user's CREATED snapshot, or nil. An expired one is canceled
// first and treated as absent.
func (s *CheckoutService) open(ctx context.Context, userID string) (*models.CheckoutSnapshot, error) {
	snap, err := s.store.Checkouts.FindOpenByUser(ctx, userID)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if snap.Reclaimable(s.now()) {
		if _, err := s.cancel(ctx, snap, CancelExpired); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return snap, nil
}

func (s *CheckoutService) requireOpen(ctx context.Context, userID string) (*models.CheckoutSnapshot, error) {
	snap, err := s.open(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoCheckoutSession
	}
	return snap, nil
}

// requireEditable returns the open checkout if no payment has been started for it.
func (s *CheckoutService) requireEditable(ctx context.Context, userID string) (*models.CheckoutSnapshot, error) {
	snap, err := s.requireOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.PaymentOrderID != "" {
		return nil, errPaymentStarted
	}
	return snap, nil
}

// editConflict explains a rejected edit: errPaymentStarted when the open checkout
// was authorized in the meantime, nil when no checkout is open any more.
func (s *CheckoutService) editConflict(ctx context.Context, userID string) error {
	current, err := s.store.Checkouts.FindOpenByUser(ctx, userID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.PaymentOrderID != "" {
		return errPaymentStarted
	}
	return nil
}

func (s *CheckoutService) editFailed(ctx context.Context, userID string, err error) error {
	if !isConflict(err) {
		return err
	}
	if cerr := s.editConflict(ctx, userID); cerr != nil {
		return cerr
	}
	return noSession(err)
}

func (s *CheckoutService) checkAddress(addr models.Address) (models.Address, error) {
	addr = addr.Normalize()
	if err := s.validate.Struct(addr); err != nil {
		return models.Address{}, validationError(KindInvalidInput, "invalid address", err)
	}
	return addr, nil
}

// publishAddress is best-effort: a failure never fails the checkout step.
func (s *CheckoutService) publishAddress(userID, kind string, addr models.Address) {
	if s.addresses == nil {
		return
	}
	if err := s.addresses.PublishAddressSaved(AddressEvent{UserID: userID, Kind: kind, Address: addr}); err != nil {
		s.logger.Warn("failed to publish address", zap.String("user_id", userID), zap.String("kind", kind), zap.Error(err))
	}
}

func noSession(err error) error {
	if isConflict(err) {
		return newError(KindNoCheckoutSession, "checkout is no longer open", err)
	}
	return err
}
