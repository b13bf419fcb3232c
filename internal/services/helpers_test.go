package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"toko-checkout/internal/models"
	"toko-checkout/internal/pricing"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/services"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*repositories.Store, *gorm.DB) {
	t.Helper()
	db, err := repositories.Open(repositories.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      repositories.InMemorySQLiteDSN(),
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repositories.NewStore(db), db
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fixture wires the checkout services against one in-memory database.
type fixture struct {
	store     *repositories.Store
	db        *gorm.DB
	clock     *fakeClock
	carts     *services.CartService
	checkouts *services.CheckoutService
	orders    *services.OrderService
}

func newFixture(t *testing.T, opts services.CheckoutOptions) *fixture {
	t.Helper()
	store, db := newTestStore(t)
	clock := newClock()
	if opts.Now == nil {
		opts.Now = clock.Now
	}
	return &fixture{
		store:     store,
		db:        db,
		clock:     clock,
		carts:     services.NewCartService(store, nil),
		checkouts: services.NewCheckoutService(store, pricing.NewEngine(), opts),
		orders:    services.NewOrderService(store, nil, nil, nil),
	}
}

func (f *fixture) product(t *testing.T, id string, price int64, stock int, tiers ...models.DeliveryTier) *models.Product {
	t.Helper()
	p := &models.Product{ID: id, Name: "Product " + id, Price: price, Stock: stock, DeliveryOptions: tiers}
	require.NoError(t, f.store.Products.Create(context.Background(), p))
	return p
}

func address(state string) models.Address {
	return models.Address{
		FullName:     "Asha Rao",
		Phone:        "9876543210",
		AddressLine1: "12 Beach Road",
		City:         "Chennai",
		State:        state,
		PostalCode:   "600001",
		Country:      "IN",
	}
}

// readyCheckout fills a cart with one 100-unit lamp and walks it to delivery selection.
func (f *fixture) readyCheckout(t *testing.T, userID, state string) *models.CheckoutSnapshot {
	t.Helper()
	ctx := context.Background()
	if _, err := f.store.Products.GetByID(ctx, "lamp"); err != nil {
		f.product(t, "lamp", 100, 10)
	}
	_, err := f.carts.AddItem(ctx, userID, "lamp", 1)
	require.NoError(t, err)
	snap, err := f.checkouts.BeginShipping(ctx, userID, address(state))
	require.NoError(t, err)
	_, err = f.checkouts.SelectDelivery(ctx, userID, "NORMAL")
	require.NoError(t, err)
	return snap
}
