package services

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOTPService(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)

	assert.NotNil(t, service)
}

func TestGenerateOTP(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"

	// Expect invalidate query
	mock.ExpectExec("UPDATE otp_verifications").
		WithArgs(phone).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Expect insert query
	mock.ExpectExec("INSERT INTO otp_verifications").
		WithArgs(phone, sqlmock.AnyArg(), sqlmock.AnyArg(), MaxOTPAttempts, "203.0.113.10", "test-agent").
		WillReturnResult(sqlmock.NewResult(1, 1))

	otp, err := service.GenerateOTP(phone, "203.0.113.10", "test-agent")
	require.NoError(t, err)
	assert.Len(t, otp, 6)
	assert.Regexp(t, "^[0-9]{6}$", otp)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateOTP_InvalidatesPreviousCodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"

	// A second request must burn the first code before storing a new one
	mock.ExpectExec("UPDATE otp_verifications").
		WithArgs(phone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("INSERT INTO otp_verifications").
		WithArgs(phone, sqlmock.AnyArg(), sqlmock.AnyArg(), MaxOTPAttempts, "", "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err = service.GenerateOTP(phone, "", "")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func otpRecordRows(phone, otp string, expiresAt time.Time, verified bool, attempts int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "phone", "otp_code", "purpose", "created_at", "expires_at",
		"verified", "verified_at", "attempts", "max_attempts", "ip_address", "user_agent",
	})
	var verifiedAt interface{}
	if verified {
		verifiedAt = time.Now()
	}
	return rows.AddRow(1, phone, otp, "login", time.Now(), expiresAt,
		verified, verifiedAt, attempts, MaxOTPAttempts, nil, nil)
}

func TestValidateOTP_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"
	otp := "123456"
	expiresAt := time.Now().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
		WithArgs(phone).
		WillReturnRows(otpRecordRows(phone, otp, expiresAt, false, 0))

	mock.ExpectExec("UPDATE otp_verifications SET attempts").
		WithArgs(phone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec("UPDATE otp_verifications SET verified").
		WithArgs(sqlmock.AnyArg(), phone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	valid, err := service.ValidateOTP(phone, otp)
	require.NoError(t, err)
	assert.True(t, valid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOTP_InvalidCode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"
	expiresAt := time.Now().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
		WithArgs(phone).
		WillReturnRows(otpRecordRows(phone, "123456", expiresAt, false, 0))

	// A wrong guess still burns an attempt
	mock.ExpectExec("UPDATE otp_verifications SET attempts").
		WithArgs(phone).
		WillReturnResult(sqlmock.NewResult(0, 1))

	valid, err := service.ValidateOTP(phone, "654321")
	assert.False(t, valid)
	assert.Equal(t, ErrOTPInvalid, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOTP_Expired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"
	expiresAt := time.Now().Add(-1 * time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
		WithArgs(phone).
		WillReturnRows(otpRecordRows(phone, "123456", expiresAt, false, 0))

	valid, err := service.ValidateOTP(phone, "123456")
	assert.False(t, valid)
	assert.Equal(t, ErrOTPExpired, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOTP_MaxAttemptsExceeded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"
	expiresAt := time.Now().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
		WithArgs(phone).
		WillReturnRows(otpRecordRows(phone, "123456", expiresAt, false, MaxOTPAttempts))

	valid, err := service.ValidateOTP(phone, "123456")
	assert.False(t, valid)
	assert.Equal(t, ErrMaxAttemptsExceeded, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOTP_AlreadyUsed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"
	expiresAt := time.Now().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
		WithArgs(phone).
		WillReturnRows(otpRecordRows(phone, "123456", expiresAt, true, 1))

	valid, err := service.ValidateOTP(phone, "123456")
	assert.False(t, valid)
	assert.Equal(t, ErrOTPAlreadyUsed, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOTP_NoOTPFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"

	mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
		WithArgs(phone).
		WillReturnError(sql.ErrNoRows)

	valid, err := service.ValidateOTP(phone, "123456")
	assert.False(t, valid)
	assert.Equal(t, ErrNoOTPFound, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRemainingAttempts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)
	phone := "9876543210"
	expiresAt := time.Now().Add(5 * time.Minute)

	tests := []struct {
		name           string
		attempts       int
		expectedRemain int
	}{
		{"No attempts yet", 0, 3},
		{"One attempt", 1, 2},
		{"Two attempts", 2, 1},
		{"Max attempts", 3, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock.ExpectQuery("SELECT (.+) FROM otp_verifications").
				WithArgs(phone).
				WillReturnRows(otpRecordRows(phone, "123456", expiresAt, false, tc.attempts))

			remaining, err := service.GetRemainingAttempts(phone)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedRemain, remaining)
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupExpiredOTPs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mockDB := &mockDatabase{db: db}
	service := NewOTPService(mockDB)

	mock.ExpectExec("DELETE FROM otp_verifications").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 5))

	rowsAffected, err := service.CleanupExpiredOTPs()
	require.NoError(t, err)
	assert.Equal(t, int64(5), rowsAffected)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateRandomOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		otp, err := GenerateRandomOTP()
		require.NoError(t, err)
		assert.Len(t, otp, 6)
		assert.Regexp(t, "^[0-9]{6}$", otp)
	}
}

// mockDatabase implements the database.DB interface for testing
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Get not implemented in mock")
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return fmt.Errorf("Select not implemented in mock")
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Close() error {
	return m.db.Close()
}

func (m *mockDatabase) Ping() error {
	return m.db.Ping()
}
