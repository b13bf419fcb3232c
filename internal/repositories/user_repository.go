package repositories

import (
	"context"

	"toko-checkout/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SaveAddress(ctx context.Context, address *models.SavedAddress) error
	ListAddresses(ctx context.Context, userID string) ([]models.SavedAddress, error)
}
