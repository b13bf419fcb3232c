package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toko-checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCheckoutRepository is a GORM implementation of CheckoutRepository.
type GORMCheckoutRepository struct {
	db *gorm.DB
}

// NewGORMCheckoutRepository creates a new instance of GORMCheckoutRepository.
func NewGORMCheckoutRepository(db *gorm.DB) *GORMCheckoutRepository {
	return &GORMCheckoutRepository{db: db}
}

// Create inserts a snapshot. A second CREATED snapshot for the same user violates
// idx_checkout_open_user and is reported as ErrConflict.
func (r *GORMCheckoutRepository) Create(ctx context.Context, snapshot *models.CheckoutSnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("open checkout for user %s: %w", snapshot.UserID, ErrConflict)
		}
		return fmt.Errorf("failed to create checkout snapshot: %w", err)
	}
	return nil
}

func (r *GORMCheckoutRepository) first(ctx context.Context, what string, query string, args ...interface{}) (*models.CheckoutSnapshot, error) {
	var snapshot models.CheckoutSnapshot
	err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkout %s: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get checkout %s: %w", what, err)
	}
	return &snapshot, nil
}

// FindByID retrieves a snapshot by its ID.
func (r *GORMCheckoutRepository) FindByID(ctx context.Context, id string) (*models.CheckoutSnapshot, error) {
	return r.first(ctx, "with ID "+id, "id = ?", id)
}

// FindOpenByUser retrieves the user's CREATED snapshot.
func (r *GORMCheckoutRepository) FindOpenByUser(ctx context.Context, userID string) (*models.CheckoutSnapshot, error) {
	return r.first(ctx, "open for user "+userID, "user_id = ? AND status = ?", userID, models.CheckoutCreated)
}

// FindLatestByUser retrieves the user's most recent snapshot in any status.
func (r *GORMCheckoutRepository) FindLatestByUser(ctx context.Context, userID string) (*models.CheckoutSnapshot, error) {
	return r.first(ctx, "for user "+userID, "user_id = ?", userID)
}

// FindByPaymentOrderID retrieves the snapshot an authorization was created for.
func (r *GORMCheckoutRepository) FindByPaymentOrderID(ctx context.Context, providerOrderID string) (*models.CheckoutSnapshot, error) {
	if providerOrderID == "" {
		return nil, fmt.Errorf("checkout for empty payment order: %w", ErrNotFound)
	}
	return r.first(ctx, "for payment order "+providerOrderID, "payment_order_id = ?", providerOrderID)
}

// UpdateOpen writes fields onto a snapshot that is still CREATED.
func (r *GORMCheckoutRepository) UpdateOpen(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.CheckoutSnapshot{}).
		Where("id = ? AND status = ?", id, models.CheckoutCreated).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update checkout %s: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("checkout %s is not open: %w", id, ErrConflict)
	}
	return nil
}

// noAuthorization matches snapshots without a payment authorization.
const noAuthorization = "(payment_order_id IS NULL OR payment_order_id = '')"

// UpdateEditable writes fields onto a CREATED snapshot that has no payment
// authorization yet. Once an authorization exists the priced snapshot is frozen.
func (r *GORMCheckoutRepository) UpdateEditable(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.CheckoutSnapshot{}).
		Where("id = ? AND status = ? AND "+noAuthorization, id, models.CheckoutCreated).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to update checkout %s: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("checkout %s is not editable: %w", id, ErrConflict)
	}
	return nil
}

// Complete moves a CREATED snapshot to COMPLETED only while it is still bound to
// the given payment authorization.
func (r *GORMCheckoutRepository) Complete(ctx context.Context, id, paymentOrderID string) error {
	res := r.db.WithContext(ctx).Model(&models.CheckoutSnapshot{}).
		Where("id = ? AND status = ? AND COALESCE(payment_order_id, '') = ?", id, models.CheckoutCreated, paymentOrderID).
		Update("status", models.CheckoutCompleted)
	if res.Error != nil {
		return fmt.Errorf("failed to complete checkout %s: %w", id, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("checkout %s is not awaiting payment %q: %w", id, paymentOrderID, ErrConflict)
	}
	return nil
}

// Transition moves a snapshot between statuses.
func (r *GORMCheckoutRepository) Transition(ctx context.Context, id string, from, to models.CheckoutStatus) error {
	res := r.db.WithContext(ctx).Model(&models.CheckoutSnapshot{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to move checkout %s to %s: %w", id, to, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("checkout %s is not %s: %w", id, from, ErrConflict)
	}
	return nil
}

// ListReclaimable returns expired CREATED snapshots that have no authorization in flight.
func (r *GORMCheckoutRepository) ListReclaimable(ctx context.Context, now time.Time, limit int) ([]models.CheckoutSnapshot, error) {
	var snapshots []models.CheckoutSnapshot
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ? AND "+noAuthorization, models.CheckoutCreated, now.UTC()).
		Order("expires_at").
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired checkouts: %w", err)
	}
	return snapshots, nil
}
