package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// CheckoutStatus is the lifecycle state of a checkout snapshot.
type CheckoutStatus string

const (
	CheckoutCreated   CheckoutStatus = "CREATED"
	CheckoutCanceled  CheckoutStatus = "CANCELED"
	CheckoutCompleted CheckoutStatus = "COMPLETED"
)

// IsTerminal reports whether the snapshot can no longer change.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutCanceled || s == CheckoutCompleted
}

// SnapshotItem is a cart line frozen at the moment checkout began.
type SnapshotItem struct {
	ProductID     string        `json:"product_id"`
	Name          string        `json:"name"`
	Price         int64         `json:"price"`
	Quantity      int           `json:"quantity"`
	DeliveryTiers DeliveryTiers `json:"delivery_tiers"`
}

// SnapshotItems is stored as a JSON column.
type SnapshotItems []SnapshotItem

// Value implements driver.Valuer.
func (s SnapshotItems) Value() (driver.Value, error) {
	if s == nil {
		s = SnapshotItems{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *SnapshotItems) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// CheckoutSnapshot is the frozen projection of a cart that a checkout walks through
// shipping, billing and delivery. Only the address, delivery and pricing fields
// change, and only while the status is CREATED.
type CheckoutSnapshot struct {
	ID              string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string         `json:"user_id" gorm:"type:varchar(36);not null;index"`
	CartID          string         `json:"cart_id" gorm:"type:varchar(36);not null"`
	Items           SnapshotItems  `json:"items" gorm:"type:text;not null"`
	Subtotal        int64          `json:"subtotal" gorm:"not null;default:0"`
	Tax             int64          `json:"tax" gorm:"not null;default:0"`
	Shipping        int64          `json:"shipping" gorm:"not null;default:0"`
	Total           int64          `json:"total" gorm:"not null;default:0"`
	Currency        string         `json:"currency" gorm:"type:varchar(3);not null"`
	ShippingAddress Address        `json:"shipping_address" gorm:"type:text"`
	BillingAddress  Address        `json:"billing_address" gorm:"type:text"`
	DeliveryType    DeliveryTier   `json:"delivery_type,omitempty" gorm:"type:varchar(20)"`
	PaymentOrderID  string         `json:"payment_order_id,omitempty" gorm:"type:varchar(64);index"`
	Status          CheckoutStatus `json:"status" gorm:"type:varchar(20);not null"`
	ExpiresAt       time.Time      `json:"expires_at" gorm:"not null;index"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Expired reports whether the snapshot outlived its TTL at now.
func (c *CheckoutSnapshot) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// Reclaimable reports whether an expired snapshot may be cancelled. Snapshots with
// an authorization in flight are left for the capture callback.
func (c *CheckoutSnapshot) Reclaimable(now time.Time) bool {
	return c.Status == CheckoutCreated && c.PaymentOrderID == "" && c.Expired(now)
}
