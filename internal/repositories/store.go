package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that take part in checkout transactions.
type Store struct {
	db        *gorm.DB
	Carts     CartRepository
	Checkouts CheckoutRepository
	Orders    OrderRepository
	Products  ProductRepository
	Users     UserRepository
}

// NewStore binds every repository to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Carts:     NewGORMCartRepository(db),
		Checkouts: NewGORMCheckoutRepository(db),
		Orders:    NewGORMOrderRepository(db),
		Products:  NewGORMProductRepository(db),
		Users:     NewGORMUserRepository(db),
	}
}

// Transaction runs fn against a Store bound to one database transaction. Any
// error returned by fn rolls back every write made through tx.
//
// fn must only use tx. On SQLite the transaction holds the only connection.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(NewStore(db))
	})
}

// DB exposes the underlying handle for health checks and migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}
