package models

import "time"

// ProductStatus controls whether a product can be sold.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
)

// Product represents a product in the store. Price is in whole currency units.
type Product struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,max=36"`
	Name            string        `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=3,max=100"`
	Description     string        `json:"description" validate:"omitempty,max=500"`
	Price           int64         `json:"price" gorm:"not null" validate:"required,gt=0"`
	Stock           int           `json:"stock" gorm:"not null;default:0" validate:"gte=0"`
	Status          ProductStatus `json:"status" gorm:"type:varchar(20);not null;default:active"`
	DeliveryOptions DeliveryTiers `json:"delivery_options" gorm:"type:text"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Sellable reports whether the product may be added to a cart.
func (p *Product) Sellable() bool {
	return p.Status == ProductActive
}
