package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gatepass/visitor-gate-backend/internal/models"
)

// PropertyRepository handles database operations for the properties table
type PropertyRepository struct {
	db DB
}

// NewPropertyRepository creates a new PropertyRepository
func NewPropertyRepository(db DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Create inserts a new property
func (r *PropertyRepository) Create(property *models.Property) error {
	query := `
		INSERT INTO properties (id, name, address, city, total_units, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	if property.ID == "" {
		property.ID = uuid.New().String()
	}
	if property.Status == "" {
		property.Status = "active"
	}

	return r.db.QueryRow(
		query,
		property.ID, property.Name, property.Address, property.City,
		property.TotalUnits, property.Status,
	).Scan(&property.CreatedAt, &property.UpdatedAt)
}

// GetByID retrieves a property by ID
func (r *PropertyRepository) GetByID(propertyID string) (*models.Property, error) {
	query := `
		SELECT id, name, address, city, total_units, status, created_at, updated_at
		FROM properties
		WHERE id = $1
	`

	property := &models.Property{}
	err := r.db.QueryRow(query, propertyID).Scan(
		&property.ID, &property.Name, &property.Address, &property.City,
		&property.TotalUnits, &property.Status, &property.CreatedAt, &property.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return property, nil
}

// List lists all properties, newest first
func (r *PropertyRepository) List() ([]models.Property, error) {
	query := `
		SELECT id, name, address, city, total_units, status, created_at, updated_at
		FROM properties
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	properties := []models.Property{}
	for rows.Next() {
		var property models.Property
		err := rows.Scan(
			&property.ID, &property.Name, &property.Address, &property.City,
			&property.TotalUnits, &property.Status, &property.CreatedAt, &property.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		properties = append(properties, property)
	}

	return properties, rows.Err()
}

// Update applies partial updates to a property
func (r *PropertyRepository) Update(propertyID string, req *models.UpdatePropertyRequest) error {
	query := `
		UPDATE properties
		SET name = COALESCE($2, name),
			address = COALESCE($3, address),
			city = COALESCE($4, city),
			total_units = COALESCE($5, total_units),
			status = COALESCE($6, status),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, propertyID, req.Name, req.Address, req.City, req.TotalUnits, req.Status)
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
