package repositories

import (
	"context"
	"errors"
	"fmt"

	"toko-checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ensureOpenCartSQL inserts an active cart only when the user has no open cart.
// The partial unique index idx_carts_open_user turns a lost race into a no-op.
const ensureOpenCartSQL = `INSERT INTO carts (id, user_id, status, currency, total_price, created_at, updated_at)
SELECT ?, ?, ?, ?, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
WHERE NOT EXISTS (SELECT 1 FROM carts WHERE user_id = ? AND status IN (?, ?))
ON CONFLICT DO NOTHING`

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

// EnsureOpen provisions an active cart for the user unless one is already open.
func (r *GORMCartRepository) EnsureOpen(ctx context.Context, userID, currency string) error {
	err := r.db.WithContext(ctx).Exec(ensureOpenCartSQL,
		uuid.NewString(), userID, string(models.CartActive), currency,
		userID, string(models.CartActive), string(models.CartCheckoutLocked),
	).Error
	if err != nil {
		return fmt.Errorf("failed to ensure open cart for user %s: %w", userID, err)
	}
	return nil
}

// FindOpen returns the user's active or checkout-locked cart.
func (r *GORMCartRepository) FindOpen(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []models.CartStatus{models.CartActive, models.CartCheckoutLocked}).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("open cart for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get open cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

// Transition moves the cart from one status to another.
func (r *GORMCartRepository) Transition(ctx context.Context, cartID string, from, to models.CartStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("failed to move cart %s to %s: %w", cartID, to, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("cart %s is not %s: %w", cartID, from, ErrConflict)
	}
	return nil
}

// RefreshTotal recomputes the cached total from active lines and stores it while
// the cart is still in the guard status.
func (r *GORMCartRepository) RefreshTotal(ctx context.Context, cartID string, guard models.CartStatus) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM(snapshot_price * quantity), 0)").
		Where("cart_id = ? AND status = ?", cartID, models.CartItemActive).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum cart %s: %w", cartID, err)
	}

	res := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND status = ?", cartID, guard).
		Update("total_price", total)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update total for cart %s: %w", cartID, res.Error)
	}
	if res.RowsAffected != 1 {
		return 0, fmt.Errorf("cart %s is not %s: %w", cartID, guard, ErrConflict)
	}
	return total, nil
}

// ActiveItems lists the cart's active lines in insertion order.
func (r *GORMCartRepository) ActiveItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, models.CartItemActive).
		Order("created_at, id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items of cart %s: %w", cartID, err)
	}
	return items, nil
}

// FindActiveItem returns the active line for a product.
func (r *GORMCartRepository) FindActiveItem(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND status = ?", cartID, productID, models.CartItemActive).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s in cart %s: %w", productID, cartID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get item of cart %s: %w", cartID, err)
	}
	return &item, nil
}

// CreateItem inserts a new line.
func (r *GORMCartRepository) CreateItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.CartItemActive
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}
	return nil
}

// UpdateItem sets an active line's quantity and refreshes its price snapshot.
func (r *GORMCartRepository) UpdateItem(ctx context.Context, itemID string, quantity int, price int64, name string) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND status = ?", itemID, models.CartItemActive).
		Updates(map[string]interface{}{
			"quantity":       quantity,
			"snapshot_price": price,
			"snapshot_name":  name,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("cart item %s is not active: %w", itemID, ErrConflict)
	}
	return nil
}

// SetItemStatus flips an active line to status.
func (r *GORMCartRepository) SetItemStatus(ctx context.Context, itemID string, status models.CartItemStatus) error {
	res := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ? AND status = ?", itemID, models.CartItemActive).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update cart item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("cart item %s is not active: %w", itemID, ErrConflict)
	}
	return nil
}

// TransitionItems moves every line of the cart in status from to status to.
func (r *GORMCartRepository) TransitionItems(ctx context.Context, cartID string, from, to models.CartItemStatus) error {
	err := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND status = ?", cartID, from).
		Update("status", to).Error
	if err != nil {
		return fmt.Errorf("failed to move items of cart %s to %s: %w", cartID, to, err)
	}
	return nil
}
