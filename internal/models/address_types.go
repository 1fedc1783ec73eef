package models

import "time"

// Address is the model for the 'addresses' table. At most one address per
// user carries is_default = true; setting a new default clears the old one
// in the same transaction.
type Address struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"userId" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	AddressLine1 string    `json:"addressLine1" db:"address_line_1"`
	AddressLine2 *string   `json:"addressLine2,omitempty" db:"address_line_2"`
	City         string    `json:"city" db:"city"`
	PostalCode   string    `json:"postalCode" db:"postal_code"`
	IsDefault    bool      `json:"isDefault" db:"is_default"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
