package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

const (
	OrderStatusPaid       = "PAID"
	PaymentProviderPayPal = "paypal"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Price     int64  `json:"price" validate:"gte=0"` // Price at the time of checkout
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// OrderItems is stored as a JSON column.
type OrderItems []OrderItem

// Value implements driver.Valuer.
func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		o = OrderItems{}
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (o *OrderItems) Scan(src interface{}) error {
	return scanJSON(src, o)
}

// Order is the immutable record of a paid checkout.
type Order struct {
	ID               string       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID           string       `json:"user_id" gorm:"type:varchar(36);not null;index" validate:"required"`
	CheckoutID       string       `json:"checkout_id" gorm:"type:varchar(36);not null;uniqueIndex" validate:"required"`
	CartID           string       `json:"cart_id" gorm:"type:varchar(36);not null" validate:"required"`
	Status           string       `json:"status" gorm:"type:varchar(20);not null" validate:"required,eq=PAID"`
	Items            OrderItems   `json:"items" gorm:"type:text;not null" validate:"required,min=1,dive"`
	Subtotal         int64        `json:"subtotal" gorm:"not null" validate:"gte=0"`
	Tax              int64        `json:"tax" gorm:"not null" validate:"gte=0"`
	Shipping         int64        `json:"shipping" gorm:"not null" validate:"gte=0"`
	TotalAmount      int64        `json:"total_amount" gorm:"not null" validate:"gt=0"`
	Currency         string       `json:"currency" gorm:"type:varchar(3);not null" validate:"required,len=3"`
	PaymentProvider  string       `json:"payment_provider" gorm:"type:varchar(20);not null" validate:"required,eq=paypal"`
	PaymentReference string       `json:"payment_reference" gorm:"type:varchar(64);not null;uniqueIndex" validate:"required"`
	ShippingAddress  Address      `json:"shipping_address" gorm:"type:text"`
	BillingAddress   Address      `json:"billing_address" gorm:"type:text"`
	DeliveryMode     DeliveryTier `json:"delivery_mode" gorm:"type:varchar(20);not null" validate:"oneof=NORMAL SPEED EXPRESS"`
	CreatedAt        time.Time    `json:"created_at"`
}
