package services

import (
	"context"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"go.uber.org/zap"
)

// DefaultCurrency is the currency of every cart and order.
const DefaultCurrency = "USD"

// CartService handles the user's mutable cart. Every mutation is a read followed by
// a write guarded on the cart still being active, inside one transaction.
type CartService struct {
	store    *repositories.Store
	currency string
	logger   *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(store *repositories.Store, logger *zap.Logger) *CartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{store: store, currency: DefaultCurrency, logger: logger}
}

// GetOrCreateActiveCart returns the user's open cart, creating an active one when
// none exists. Concurrent callers never produce a second open cart.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	return openCart(ctx, s.store, userID, s.currency)
}

// GetCart returns the open cart with its active lines.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := openCart(ctx, s.store, userID, s.currency)
	if err != nil {
		return nil, err
	}
	items, err := s.store.Carts.ActiveItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

// AddItem adds qty of a product, merging into an existing line.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, invalidInput("quantity must be a positive integer")
	}
	err := s.mutate(ctx, userID, func(tx *repositories.Store, cart *models.Cart) error {
		product, err := sellableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		item, err := tx.Carts.FindActiveItem(ctx, cart.ID, productID)
		if err != nil && !isNotFound(err) {
			return err
		}
		quantity := qty
		if item != nil {
			quantity += item.Quantity
		}
		if quantity > product.Stock {
			return &Error{Kind: KindOutOfStock, Message: "requested quantity exceeds available stock", Product: product.Name}
		}
		if item != nil {
			return tx.Carts.UpdateItem(ctx, item.ID, quantity, product.Price, product.Name)
		}
		return tx.Carts.CreateItem(ctx, &models.CartItem{
			CartID:        cart.ID,
			ProductID:     product.ID,
			Quantity:      quantity,
			SnapshotPrice: product.Price,
			SnapshotName:  product.Name,
			Status:        models.CartItemActive,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cart item added", zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", qty))
	return s.GetCart(ctx, userID)
}

// UpdateQuantity replaces the quantity of an existing line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*models.Cart, error) {
	if qty <= 0 {
		return nil, invalidInput("quantity must be a positive integer")
	}
	err := s.mutate(ctx, userID, func(tx *repositories.Store, cart *models.Cart) error {
		item, err := tx.Carts.FindActiveItem(ctx, cart.ID, productID)
		if isNotFound(err) {
			return invalidInput("product is not in the cart")
		}
		if err != nil {
			return err
		}
		product, err := sellableProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if qty > product.Stock {
			return &Error{Kind: KindOutOfStock, Message: "requested quantity exceeds available stock", Product: product.Name}
		}
		return tx.Carts.UpdateItem(ctx, item.ID, qty, product.Price, product.Name)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// RemoveItem marks a line removed.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	err := s.mutate(ctx, userID, func(tx *repositories.Store, cart *models.Cart) error {
		item, err := tx.Carts.FindActiveItem(ctx, cart.ID, productID)
		if isNotFound(err) {
			return invalidInput("product is not in the cart")
		}
		if err != nil {
			return err
		}
		return tx.Carts.SetItemStatus(ctx, item.ID, models.CartItemRemoved)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// Clear retires the cart and all of its lines. The next cart access provisions a
// fresh active cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		cart, err := openCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		if cart.Locked() {
			return ErrCartLocked
		}
		if err := tx.Carts.TransitionItems(ctx, cart.ID, models.CartItemActive, models.CartItemRemoved); err != nil {
			return err
		}
		if _, err := tx.Carts.RefreshTotal(ctx, cart.ID, models.CartActive); err != nil {
			return guardToLocked(err)
		}
		return guardToLocked(tx.Carts.Transition(ctx, cart.ID, models.CartActive, models.CartRemoved))
	})
	if err != nil {
		return err
	}
	s.logger.Info("cart cleared", zap.String("user_id", userID))
	return nil
}

// mutate runs fn on the user's active cart and refreshes the cached total. The
// total update is guarded on the cart being active, so a checkout that locked the
// cart mid-way rolls the mutation back.
func (s *CartService) mutate(ctx context.Context, userID string, fn func(tx *repositories.Store, cart *models.Cart) error) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		cart, err := openCart(ctx, tx, userID, s.currency)
		if err != nil {
			return err
		}
		if cart.Locked() {
			return ErrCartLocked
		}
		if err := fn(tx, cart); err != nil {
			return guardToLocked(err)
		}
		_, err = tx.Carts.RefreshTotal(ctx, cart.ID, models.CartActive)
		return guardToLocked(err)
	})
}

// sellableProduct looks the product up through store, which may be bound to a
// transaction.
func sellableProduct(ctx context.Context, store *repositories.Store, productID string) (*models.Product, error) {
	product, err := store.Products.GetByID(ctx, productID)
	if isNotFound(err) {
		return nil, &Error{Kind: KindProductUnavailable, Message: "product does not exist", Product: productID}
	}
	if err != nil {
		return nil, err
	}
	if !product.Sellable() {
		return nil, &Error{Kind: KindProductUnavailable, Message: "product is not available for sale", Product: product.Name}
	}
	return product, nil
}

// openCart provisions and returns the user's open cart through store, which may be
// bound to a transaction.
func openCart(ctx context.Context, store *repositories.Store, userID, currency string) (*models.Cart, error) {
	if userID == "" {
		return nil, invalidInput("user is required")
	}
	if err := store.Carts.EnsureOpen(ctx, userID, currency); err != nil {
		return nil, err
	}
	return store.Carts.FindOpen(ctx, userID)
}

func guardToLocked(err error) error {
	if isConflict(err) {
		return newError(KindCartLocked, "cart is locked for checkout", err)
	}
	return err
}
