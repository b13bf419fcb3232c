package repositories

import (
	"context"

	"toko-checkout/internal/models"
)

// OrderRepository defines data access for orders. Orders are append-only.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
}
