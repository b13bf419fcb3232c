package models

import "time"

// User represents a user of the store.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username  string    `json:"username" gorm:"uniqueIndex;type:varchar(100)" validate:"required,min=3,max=100"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Password  string    `json:"password,omitempty" gorm:"type:varchar(255)" validate:"required,min=6"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SavedAddress is an address a user entered during checkout, kept for reuse.
type SavedAddress struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Kind      string    `json:"kind" gorm:"type:varchar(20);not null"` // "shipping" or "billing"
	Address   Address   `json:"address" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}
