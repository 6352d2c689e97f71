package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gatepass/visitor-gate-backend/internal/models"
)

// ResidentRepository handles database operations for the residents table
type ResidentRepository struct {
	db DB
}

// NewResidentRepository creates a new ResidentRepository
func NewResidentRepository(db DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

const residentColumns = `
	id, user_id, property_id, name, phone, unit_number,
	is_primary, status, moved_in_at, created_at, updated_at
`

// Create inserts a new resident profile
func (r *ResidentRepository) Create(resident *models.Resident) error {
	query := `
		INSERT INTO residents (id, user_id, property_id, name, phone, unit_number, is_primary, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	if resident.ID == "" {
		resident.ID = uuid.New().String()
	}
	if resident.Status == "" {
		resident.Status = "active"
	}

	return r.db.QueryRow(
		query,
		resident.ID, resident.UserID, resident.PropertyID, resident.Name,
		resident.Phone, resident.UnitNumber, resident.IsPrimary, resident.Status,
	).Scan(&resident.CreatedAt, &resident.UpdatedAt)
}

// GetByID retrieves a resident profile by its id
func (r *ResidentRepository) GetByID(residentID string) (*models.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE id = $1`

	return r.scanResident(r.db.QueryRow(query, residentID))
}

// GetByUserID retrieves the resident profile for a user account.
// This is the canonical user-to-resident mapping used by every handler
// that compares the caller against a visitor's host.
func (r *ResidentRepository) GetByUserID(userID string) (*models.Resident, error) {
	query := `SELECT ` + residentColumns + ` FROM residents WHERE user_id = $1`

	return r.scanResident(r.db.QueryRow(query, userID))
}

// GetByProperty lists the active residents of a property
func (r *ResidentRepository) GetByProperty(propertyID string) ([]models.Resident, error) {
	query := `
		SELECT ` + residentColumns + `
		FROM residents
		WHERE property_id = $1
		  AND status = 'active'
		ORDER BY unit_number
	`

	rows, err := r.db.Query(query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	residents := []models.Resident{}
	for rows.Next() {
		resident, err := r.scanResidentRow(rows)
		if err != nil {
			return nil, err
		}
		residents = append(residents, *resident)
	}

	return residents, rows.Err()
}

func (r *ResidentRepository) scanResident(row *sql.Row) (*models.Resident, error) {
	resident := &models.Resident{}
	var movedInAt sql.NullTime

	err := row.Scan(
		&resident.ID, &resident.UserID, &resident.PropertyID, &resident.Name,
		&resident.Phone, &resident.UnitNumber, &resident.IsPrimary, &resident.Status,
		&movedInAt, &resident.CreatedAt, &resident.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}

	if movedInAt.Valid {
		resident.MovedInAt = &movedInAt.Time
	}

	return resident, nil
}

func (r *ResidentRepository) scanResidentRow(rows *sql.Rows) (*models.Resident, error) {
	resident := &models.Resident{}
	var movedInAt sql.NullTime

	err := rows.Scan(
		&resident.ID, &resident.UserID, &resident.PropertyID, &resident.Name,
		&resident.Phone, &resident.UnitNumber, &resident.IsPrimary, &resident.Status,
		&movedInAt, &resident.CreatedAt, &resident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if movedInAt.Valid {
		resident.MovedInAt = &movedInAt.Time
	}

	return resident, nil
}
