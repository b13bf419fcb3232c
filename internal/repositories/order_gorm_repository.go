package repositories

import (
	"context"
	"errors"
	"fmt"

	"toko-checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// Create inserts an order. Reusing a checkout or a payment reference is ErrConflict.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("order for checkout %s: %w", order.CheckoutID, ErrConflict)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByCheckoutID retrieves the order materialized from a checkout.
func (r *GORMOrderRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	return r.first(ctx, "checkout_id = ?", checkoutID)
}

func (r *GORMOrderRepository) first(ctx context.Context, query string, arg string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", arg, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", arg, err)
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID, err)
	}
	return orders, nil
}
