package models

import "time"

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartActive         CartStatus = "active"
	CartCheckoutLocked CartStatus = "checkout_locked"
	CartCompleted      CartStatus = "completed"
	CartRemoved        CartStatus = "removed"
)

// CartItemStatus is the lifecycle state of a cart line. Lines are never deleted.
type CartItemStatus string

const (
	CartItemActive    CartItemStatus = "active"
	CartItemRemoved   CartItemStatus = "removed"
	CartItemCompleted CartItemStatus = "completed"
)

// Cart is a user's mutable shopping cart.
type Cart struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Status     CartStatus `json:"status" gorm:"type:varchar(20);not null"`
	Currency   string     `json:"currency" gorm:"type:varchar(3);not null"`
	TotalPrice int64      `json:"total_price" gorm:"not null;default:0"`
	Items      []CartItem `json:"items" gorm:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Locked reports whether a checkout currently owns the cart.
func (c *Cart) Locked() bool {
	return c.Status == CartCheckoutLocked
}

// CartItem is one product line with the price and name captured when it was added.
type CartItem struct {
	ID            string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CartID        string         `json:"cart_id" gorm:"type:varchar(36);not null;index"`
	ProductID     string         `json:"product_id" gorm:"type:varchar(36);not null"`
	Quantity      int            `json:"quantity" gorm:"not null"`
	SnapshotPrice int64          `json:"snapshot_price" gorm:"not null"`
	SnapshotName  string         `json:"snapshot_name" gorm:"type:varchar(100)"`
	Status        CartItemStatus `json:"status" gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
