package models

import "time"

// Resident represents a resident profile within a property.
// A user with the resident role has exactly one profile per property;
// visitors always reference the profile id, never the user id.
type Resident struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	PropertyID string     `json:"property_id" db:"property_id"`
	Name       string     `json:"name" db:"name"`
	Phone      string     `json:"phone" db:"phone"`
	UnitNumber string     `json:"unit_number" db:"unit_number"`
	IsPrimary  bool       `json:"is_primary" db:"is_primary"`
	Status     string     `json:"status" db:"status"`
	MovedInAt  *time.Time `json:"moved_in_at,omitempty" db:"moved_in_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActive checks if the resident can host visitors
func (r *Resident) IsActive() bool {
	return r.Status == "active"
}

// BelongsTo checks if the resident lives in the given property
func (r *Resident) BelongsTo(propertyID string) bool {
	return r.PropertyID == propertyID
}
