package repositories_test

import (
	"context"
	"errors"
	"testing"

	"toko-checkout/internal/models"
	"toko-checkout/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository_EnsureOpenIsIdempotent(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))
	}

	var count int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	cart, err := store.Carts.FindOpen(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.CartActive, cart.Status)
	assert.Equal(t, "USD", cart.Currency)
	assert.False(t, cart.CreatedAt.IsZero())
}

func TestCartRepository_EnsureOpenSkipsLockedCart(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))
	cart, err := store.Carts.FindOpen(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, store.Carts.Transition(ctx, cart.ID, models.CartActive, models.CartCheckoutLocked))

	require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))
	var count int64
	require.NoError(t, db.Model(&models.Cart{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, store.Carts.Transition(ctx, cart.ID, models.CartCheckoutLocked, models.CartCompleted))
	require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))
	fresh, err := store.Carts.FindOpen(ctx, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.ID)
}

func TestCartRepository_PartialIndexRejectsSecondOpenCart(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))

	err := db.Create(&models.Cart{ID: "dup", UserID: "user-1", Status: models.CartActive, Currency: "USD"}).Error
	assert.Error(t, err)
}

func TestCartRepository_TransitionIsGuarded(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))
	cart, err := store.Carts.FindOpen(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, store.Carts.Transition(ctx, cart.ID, models.CartActive, models.CartCheckoutLocked))
	err = store.Carts.Transition(ctx, cart.ID, models.CartActive, models.CartCheckoutLocked)
	assert.True(t, errors.Is(err, repositories.ErrConflict))
}

func TestCartRepository_ItemsAndTotal(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Carts.EnsureOpen(ctx, "user-1", "USD"))
	cart, err := store.Carts.FindOpen(ctx, "user-1")
	require.NoError(t, err)

	lamp := &models.CartItem{CartID: cart.ID, ProductID: "lamp", Quantity: 2, SnapshotPrice: 100, SnapshotName: "Lamp"}
	rug := &models.CartItem{CartID: cart.ID, ProductID: "rug", Quantity: 1, SnapshotPrice: 40, SnapshotName: "Rug"}
	require.NoError(t, store.Carts.CreateItem(ctx, lamp))
	require.NoError(t, store.Carts.CreateItem(ctx, rug))

	total, err := store.Carts.RefreshTotal(ctx, cart.ID, models.CartActive)
	require.NoError(t, err)
	assert.Equal(t, int64(240), total)

	require.NoError(t, store.Carts.SetItemStatus(ctx, rug.ID, models.CartItemRemoved))
	require.NoError(t, store.Carts.UpdateItem(ctx, lamp.ID, 3, 90, "Lamp v2"))
	total, err = store.Carts.RefreshTotal(ctx, cart.ID, models.CartActive)
	require.NoError(t, err)
	assert.Equal(t, int64(270), total)

	items, err := store.Carts.ActiveItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Lamp v2", items[0].SnapshotName)

	_, err = store.Carts.FindActiveItem(ctx, cart.ID, "rug")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = store.Carts.RefreshTotal(ctx, cart.ID, models.CartCheckoutLocked)
	assert.ErrorIs(t, err, repositories.ErrConflict)
}
