package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gatepass/visitor-gate-backend/internal/models"
)

// visitorColumns is the canonical column list shared by all SELECTs
const visitorColumns = `
	id, property_id, host_resident_id, name, phone, phone_verified,
	photo_url, id_card_type, id_card_number, id_card_image_url,
	purpose, vehicle_number, number_of_persons, status,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	checked_in_by, check_in_time, checked_out_by, check_out_time,
	marked_exit_by, marked_exit_at,
	is_forwarded, forwarded_from, forwarded_to, forwarded_at, forwarding_note,
	otp_code, otp_expires_at, otp_verified,
	is_walk_in, created_by, created_at, updated_at
`

// scanner abstracts sql.Row and sql.Rows for the scan helpers
type scanner interface {
	Scan(dest ...interface{}) error
}

// VisitorRepository handles database operations for the visitors table.
// Every status transition is a single conditional UPDATE guarded by the
// expected current status, so concurrent transitions on the same visitor
// resolve to exactly one winner; the losers get ErrStatusConflict.
type VisitorRepository struct {
	db DB
}

// NewVisitorRepository creates a new VisitorRepository
func NewVisitorRepository(db DB) *VisitorRepository {
	return &VisitorRepository{db: db}
}

// Create inserts a new visitor in pending status
func (r *VisitorRepository) Create(visitor *models.Visitor) error {
	query := `
		INSERT INTO visitors (
			id, property_id, host_resident_id, name, phone, phone_verified,
			photo_url, id_card_type, id_card_number, id_card_image_url,
			purpose, vehicle_number, number_of_persons, status,
			otp_code, otp_expires_at, otp_verified, is_walk_in, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19
		)
		RETURNING created_at, updated_at
	`

	if visitor.ID == "" {
		visitor.ID = uuid.New().String()
	}
	if visitor.Status == "" {
		visitor.Status = models.VisitorStatusPending
	}

	err := r.db.QueryRow(
		query,
		visitor.ID, visitor.PropertyID, visitor.HostResidentID, visitor.Name,
		visitor.Phone, visitor.PhoneVerified,
		visitor.PhotoURL, visitor.IDCardType, visitor.IDCardNumber, visitor.IDCardImageURL,
		visitor.Purpose, visitor.VehicleNumber, visitor.NumberOfPersons, visitor.Status,
		visitor.OTPCode, visitor.OTPExpiresAt, visitor.OTPVerified,
		visitor.IsWalkIn, visitor.CreatedBy,
	).Scan(&visitor.CreatedAt, &visitor.UpdatedAt)

	return err
}

// GetByID retrieves a visitor by ID
func (r *VisitorRepository) GetByID(visitorID string) (*models.Visitor, error) {
	query := `SELECT ` + visitorColumns + ` FROM visitors WHERE id = $1`

	visitor, err := r.scanVisitor(r.db.QueryRow(query, visitorID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return visitor, err
}

// GetByHostResident retrieves visitors currently hosted by a resident,
// newest first
func (r *VisitorRepository) GetByHostResident(residentID string) ([]models.Visitor, error) {
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE host_resident_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(query, residentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVisitors(rows)
}

// GetByPropertyAndStatus retrieves visitors in a property filtered by status
func (r *VisitorRepository) GetByPropertyAndStatus(propertyID string, statuses ...models.VisitorStatus) ([]models.Visitor, error) {
	query := `
		SELECT ` + visitorColumns + `
		FROM visitors
		WHERE property_id = $1
		  AND status = ANY($2)
		ORDER BY created_at DESC
	`

	statusList := make([]string, len(statuses))
	for i, s := range statuses {
		statusList[i] = string(s)
	}

	rows, err := r.db.Query(query, propertyID, pq.Array(statusList))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanVisitors(rows)
}

// Approve transitions a pending visitor to approved and stamps the approver.
// The status and host guards are part of the WHERE clause so a concurrent
// approve/reject/forward cannot both win.
func (r *VisitorRepository) Approve(visitorID, residentID string) error {
	query := `
		UPDATE visitors
		SET status = 'approved', approved_by = $2, approved_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND host_resident_id = $2
		  AND status = 'pending'
	`

	return r.execTransition(query, visitorID, residentID)
}

// Reject transitions a pending visitor to rejected with the stamped reason
func (r *VisitorRepository) Reject(visitorID, residentID, reason string) error {
	query := `
		UPDATE visitors
		SET status = 'rejected', rejected_by = $2, rejected_at = NOW(),
			rejection_reason = $3, updated_at = NOW()
		WHERE id = $1
		  AND host_resident_id = $2
		  AND status = 'pending'
	`

	return r.execTransition(query, visitorID, residentID, reason)
}

// Forward reassigns a still-pending visitor to another resident. Status is
// unchanged; the host reference and the forwarding audit block are set in
// the same conditional write.
func (r *VisitorRepository) Forward(visitorID, fromResidentID, toResidentID string, note *string) error {
	query := `
		UPDATE visitors
		SET host_resident_id = $3, is_forwarded = TRUE,
			forwarded_from = $2, forwarded_to = $3, forwarded_at = NOW(),
			forwarding_note = $4, updated_at = NOW()
		WHERE id = $1
		  AND host_resident_id = $2
		  AND status = 'pending'
	`

	return r.execTransition(query, visitorID, fromResidentID, toResidentID, note)
}

// CheckIn transitions an approved visitor to checked_in and stamps the guard
func (r *VisitorRepository) CheckIn(visitorID string, guardID string) error {
	query := `
		UPDATE visitors
		SET status = 'checked_in', checked_in_by = $2, check_in_time = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND status = 'approved'
	`

	return r.execTransition(query, visitorID, guardID)
}

// MarkExit stamps the advisory exit mark on a checked-in visitor. The
// status stays checked_in; a guard verifies the exit at the gate out of band.
func (r *VisitorRepository) MarkExit(visitorID, residentID string) error {
	query := `
		UPDATE visitors
		SET marked_exit_by = $2, marked_exit_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND host_resident_id = $2
		  AND status = 'checked_in'
	`

	return r.execTransition(query, visitorID, residentID)
}

// SetOTP stores a fresh phone-verification code on the visitor
func (r *VisitorRepository) SetOTP(visitorID, code string, expiresAt time.Time) error {
	query := `
		UPDATE visitors
		SET otp_code = $2, otp_expires_at = $3, otp_verified = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, visitorID, code, expiresAt)
	if err != nil {
		return err
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

// VerifyOTP atomically validates and consumes the phone-verification code.
// The code and expiry guards sit in the WHERE clause; zero rows means the
// code is wrong, expired, or already consumed.
func (r *VisitorRepository) VerifyOTP(visitorID, code string) error {
	query := `
		UPDATE visitors
		SET otp_verified = TRUE, phone_verified = TRUE,
			otp_code = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
		  AND otp_code = $2
		  AND otp_expires_at > NOW()
	`

	return r.execTransition(query, visitorID, code)
}

// CountByStatus returns per-status visitor counts for a property
func (r *VisitorRepository) CountByStatus(propertyID string) (map[models.VisitorStatus]int, error) {
	query := `
		SELECT status, COUNT(*)
		FROM visitors
		WHERE property_id = $1
		GROUP BY status
	`

	rows, err := r.db.Query(query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.VisitorStatus]int)
	for rows.Next() {
		var status models.VisitorStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// execTransition runs a conditional UPDATE and maps zero affected rows to
// ErrStatusConflict
func (r *VisitorRepository) execTransition(query string, args ...interface{}) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStatusConflict
	}

	return nil
}

// scanVisitor scans a single visitor row
func (r *VisitorRepository) scanVisitor(row scanner) (*models.Visitor, error) {
	visitor := &models.Visitor{}
	var phone, photoURL, idCardType, idCardNumber, idCardImageURL sql.NullString
	var vehicleNumber sql.NullString
	var approvedBy, rejectedBy, rejectionReason sql.NullString
	var approvedAt, rejectedAt sql.NullTime
	var checkedInBy, checkedOutBy sql.NullString
	var checkInTime, checkOutTime sql.NullTime
	var markedExitBy sql.NullString
	var markedExitAt sql.NullTime
	var forwardedFrom, forwardedTo, forwardingNote sql.NullString
	var forwardedAt sql.NullTime
	var otpCode sql.NullString
	var otpExpiresAt sql.NullTime
	var createdBy sql.NullString

	err := row.Scan(
		&visitor.ID, &visitor.PropertyID, &visitor.HostResidentID, &visitor.Name,
		&phone, &visitor.PhoneVerified,
		&photoURL, &idCardType, &idCardNumber, &idCardImageURL,
		&visitor.Purpose, &vehicleNumber, &visitor.NumberOfPersons, &visitor.Status,
		&approvedBy, &approvedAt, &rejectedBy, &rejectedAt, &rejectionReason,
		&checkedInBy, &checkInTime, &checkedOutBy, &checkOutTime,
		&markedExitBy, &markedExitAt,
		&visitor.IsForwarded, &forwardedFrom, &forwardedTo, &forwardedAt, &forwardingNote,
		&otpCode, &otpExpiresAt, &visitor.OTPVerified,
		&visitor.IsWalkIn, &createdBy, &visitor.CreatedAt, &visitor.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	applyNullString(&visitor.Phone, phone)
	applyNullString(&visitor.PhotoURL, photoURL)
	applyNullString(&visitor.IDCardType, idCardType)
	applyNullString(&visitor.IDCardNumber, idCardNumber)
	applyNullString(&visitor.IDCardImageURL, idCardImageURL)
	applyNullString(&visitor.VehicleNumber, vehicleNumber)
	applyNullString(&visitor.ApprovedBy, approvedBy)
	applyNullTime(&visitor.ApprovedAt, approvedAt)
	applyNullString(&visitor.RejectedBy, rejectedBy)
	applyNullTime(&visitor.RejectedAt, rejectedAt)
	applyNullString(&visitor.RejectionReason, rejectionReason)
	applyNullString(&visitor.CheckedInBy, checkedInBy)
	applyNullTime(&visitor.CheckInTime, checkInTime)
	applyNullString(&visitor.CheckedOutBy, checkedOutBy)
	applyNullTime(&visitor.CheckOutTime, checkOutTime)
	applyNullString(&visitor.MarkedExitBy, markedExitBy)
	applyNullTime(&visitor.MarkedExitAt, markedExitAt)
	applyNullString(&visitor.ForwardedFrom, forwardedFrom)
	applyNullString(&visitor.ForwardedTo, forwardedTo)
	applyNullTime(&visitor.ForwardedAt, forwardedAt)
	applyNullString(&visitor.ForwardingNote, forwardingNote)
	applyNullString(&visitor.OTPCode, otpCode)
	applyNullTime(&visitor.OTPExpiresAt, otpExpiresAt)
	applyNullString(&visitor.CreatedBy, createdBy)

	return visitor, nil
}

// scanVisitors scans multiple visitors from rows
func (r *VisitorRepository) scanVisitors(rows *sql.Rows) ([]models.Visitor, error) {
	visitors := []models.Visitor{}

	for rows.Next() {
		visitor, err := r.scanVisitor(rows)
		if err != nil {
			return nil, err
		}
		visitors = append(visitors, *visitor)
	}

	return visitors, rows.Err()
}

func applyNullString(dest **string, src sql.NullString) {
	if src.Valid {
		value := src.String
		*dest = &value
	}
}

func applyNullTime(dest **time.Time, src sql.NullTime) {
	if src.Valid {
		value := src.Time
		*dest = &value
	}
}
