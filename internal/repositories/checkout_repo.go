package repositories

import (
	"context"
	"time"

	"toko-checkout/internal/models"
)

// CheckoutRepository defines data access for checkout snapshots.
type CheckoutRepository interface {
	Create(ctx context.Context, snapshot *models.CheckoutSnapshot) error
	FindByID(ctx context.Context, id string) (*models.CheckoutSnapshot, error)
	FindOpenByUser(ctx context.Context, userID string) (*models.CheckoutSnapshot, error)
	FindLatestByUser(ctx context.Context, userID string) (*models.CheckoutSnapshot, error)
	FindByPaymentOrderID(ctx context.Context, providerOrderID string) (*models.CheckoutSnapshot, error)
	UpdateOpen(ctx context.Context, id string, fields map[string]interface{}) error
	UpdateEditable(ctx context.Context, id string, fields map[string]interface{}) error
	Complete(ctx context.Context, id, paymentOrderID string) error
	Transition(ctx context.Context, id string, from, to models.CheckoutStatus) error
	ListReclaimable(ctx context.Context, now time.Time, limit int) ([]models.CheckoutSnapshot, error)
}
