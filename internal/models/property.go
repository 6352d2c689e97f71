package models

import "time"

// Property represents one managed property (the tenant boundary).
// All visitor and notification records are scoped to a property.
type Property struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Address    string    `json:"address" db:"address"`
	City       string    `json:"city" db:"city"`
	TotalUnits int       `json:"total_units" db:"total_units"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// CreatePropertyRequest represents the super-admin request to add a property
type CreatePropertyRequest struct {
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	TotalUnits int    `json:"total_units"`
}

// UpdatePropertyRequest represents the super-admin request to update a property
type UpdatePropertyRequest struct {
	Name       *string `json:"name,omitempty"`
	Address    *string `json:"address,omitempty"`
	City       *string `json:"city,omitempty"`
	TotalUnits *int    `json:"total_units,omitempty"`
	Status     *string `json:"status,omitempty"`
}
