package repositories

import (
	"context"
	"errors"
	"fmt"

	"toko-checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %s: %w", user.Username, ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GORMUserRepository) first(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, column+" = ?", value).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with %s %s: %w", column, value, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by %s %s: %w", column, value, err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by their username.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username", username)
}

// GetByEmail retrieves a user by their email.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email", email)
}

// GetByID retrieves a user by their ID.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id", id)
}

// SaveAddress stores an address for reuse on later checkouts.
func (r *GORMUserRepository) SaveAddress(ctx context.Context, address *models.SavedAddress) error {
	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return fmt.Errorf("failed to save address for user %s: %w", address.UserID, err)
	}
	return nil
}

// ListAddresses returns a user's saved addresses, newest first.
func (r *GORMUserRepository) ListAddresses(ctx context.Context, userID string) ([]models.SavedAddress, error) {
	var addresses []models.SavedAddress
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&addresses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list addresses for user %s: %w", userID, err)
	}
	return addresses, nil
}
