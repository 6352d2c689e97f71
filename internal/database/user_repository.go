package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/gatepass/visitor-gate-backend/internal/models"
)

// UserRepository handles database operations for the users table
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
	id, phone, full_name, email, role, property_id, password_hash,
	status, phone_verified, last_login_at, created_at, updated_at
`

// CreateUser creates a user account with the given phone and role
func (r *UserRepository) CreateUser(phone, role string, propertyID *string) (*models.User, error) {
	query := `
		INSERT INTO users (id, phone, role, property_id, status, phone_verified)
		VALUES ($1, $2, $3, $4, 'active', TRUE)
		RETURNING ` + userColumns

	user := &models.User{}
	err := r.db.QueryRow(query, uuid.New(), phone, role, propertyID).Scan(
		&user.ID, &user.Phone, &user.FullName, &user.Email, &user.Role,
		&user.PropertyID, &user.PasswordHash, &user.Status, &user.PhoneVerified,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(userID uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user := &models.User{}
	err := r.db.QueryRow(query, userID).Scan(
		&user.ID, &user.Phone, &user.FullName, &user.Email, &user.Role,
		&user.PropertyID, &user.PasswordHash, &user.Status, &user.PhoneVerified,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByPhone retrieves a user by phone number
func (r *UserRepository) GetUserByPhone(phone string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone = $1`

	user := &models.User{}
	err := r.db.QueryRow(query, phone).Scan(
		&user.ID, &user.Phone, &user.FullName, &user.Email, &user.Role,
		&user.PropertyID, &user.PasswordHash, &user.Status, &user.PhoneVerified,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}

	return user, nil
}

// GetUsersByPropertyAndRole lists the users of one role in a property.
// Used by the notification fan-out to find every guard at a property.
func (r *UserRepository) GetUsersByPropertyAndRole(propertyID, role string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE property_id = $1
		  AND role = $2
		  AND status = 'active'
		ORDER BY created_at
	`

	rows, err := r.db.Query(query, propertyID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Phone, &user.FullName, &user.Email, &user.Role,
			&user.PropertyID, &user.PasswordHash, &user.Status, &user.PhoneVerified,
			&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// ListUsers lists all users, newest first (super-admin view)
func (r *UserRepository) ListUsers() ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Phone, &user.FullName, &user.Email, &user.Role,
			&user.PropertyID, &user.PasswordHash, &user.Status, &user.PhoneVerified,
			&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateProfile updates the mutable profile fields
func (r *UserRepository) UpdateProfile(userID uuid.UUID, fullName, email *string) error {
	query := `
		UPDATE users
		SET full_name = COALESCE($2, full_name),
			email = COALESCE($3, email),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, userID, fullName, email)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
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

// SetPassword stores the bcrypt hash for password-based accounts
func (r *UserRepository) SetPassword(userID uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
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

// UpdateStatus activates or suspends an account (super-admin only)
func (r *UserRepository) UpdateStatus(userID uuid.UUID, status string) error {
	query := `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, userID, status)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
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

// RecordLogin stamps the last successful login time
func (r *UserRepository) RecordLogin(userID uuid.UUID) error {
	query := `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`

	_, err := r.db.Exec(query, userID)
	return err
}
