package repositories

import (
	"context"

	"toko-checkout/internal/models"
)

// CartRepository defines data access for carts and their lines. Writes that depend
// on the cart's state carry the expected state in their WHERE clause and return
// ErrConflict when it no longer holds.
type CartRepository interface {
	EnsureOpen(ctx context.Context, userID, currency string) error
	FindOpen(ctx context.Context, userID string) (*models.Cart, error)
	Transition(ctx context.Context, cartID string, from, to models.CartStatus) error
	RefreshTotal(ctx context.Context, cartID string, guard models.CartStatus) (int64, error)

	ActiveItems(ctx context.Context, cartID string) ([]models.CartItem, error)
	FindActiveItem(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, itemID string, quantity int, price int64, name string) error
	SetItemStatus(ctx context.Context, itemID string, status models.CartItemStatus) error
	TransitionItems(ctx context.Context, cartID string, from, to models.CartItemStatus) error
}
