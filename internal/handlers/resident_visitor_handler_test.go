package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
	"github.com/gatepass/visitor-gate-backend/internal/services"
)

func TestResidentApprove_NotOwner(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	// The visitor exists but is hosted by someone else
	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-2", "pending", true))

	w := performResidentRequest(handler.Approve, userID, map[string]interface{}{
		"visitor_id": "visitor-1",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not assigned to you")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentApprove_LostRace(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "pending", true))

	// Another decision won between the read and the update
	mock.ExpectExec(`UPDATE visitors SET status = 'approved'`).
		WithArgs("visitor-1", "resident-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := performResidentRequest(handler.Approve, userID, map[string]interface{}{
		"visitor_id": "visitor-1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "conflict")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentApprove_Success(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "pending", true))

	mock.ExpectExec(`UPDATE visitors SET status = 'approved'`).
		WithArgs("visitor-1", "resident-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "approved", true))

	// Guard fan-out finds nobody on duty
	mock.ExpectQuery(`SELECT (.+) FROM users WHERE property_id`).
		WithArgs("property-1", "guard").
		WillReturnRows(emptyUserRows())

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := performResidentRequest(handler.Approve, userID, map[string]interface{}{
		"visitor_id": "visitor-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"approved"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentApprove_MissingBody(t *testing.T) {
	db, _, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)

	w := performResidentRequest(handler.Approve, uuid.New(), map[string]interface{}{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
}

func TestResidentReject_DefaultReason(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "pending", true))

	mock.ExpectExec(`UPDATE visitors SET status = 'rejected'`).
		WithArgs("visitor-1", "resident-1", "Rejected by resident").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "rejected", true))

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := performResidentRequest(handler.Reject, userID, map[string]interface{}{
		"visitor_id": "visitor-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentForward_ToSelf(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "pending", true))

	w := performResidentRequest(handler.Forward, userID, map[string]interface{}{
		"visitor_id":             "visitor-1",
		"forward_to_resident_id": "resident-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "yourself")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentForward_TargetInAnotherProperty(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "pending", true))

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE id`).
		WithArgs("resident-2").
		WillReturnRows(residentRows("resident-2", uuid.New().String(), "property-2"))

	w := performResidentRequest(handler.Forward, userID, map[string]interface{}{
		"visitor_id":             "visitor-1",
		"forward_to_resident_id": "resident-2",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "forwarding target not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentForward_TargetUnknown(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "pending", true))

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE id`).
		WithArgs("resident-9").
		WillReturnError(errNoRows())

	w := performResidentRequest(handler.Forward, userID, map[string]interface{}{
		"visitor_id":             "visitor-1",
		"forward_to_resident_id": "resident-9",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentMarkExit_NotCheckedIn(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnRows(residentRows("resident-1", userID.String(), "property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM visitors WHERE id`).
		WithArgs("visitor-1").
		WillReturnRows(visitorRows("visitor-1", "property-1", "resident-1", "approved", true))

	mock.ExpectExec(`UPDATE visitors SET marked_exit_by`).
		WithArgs("visitor-1", "resident-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := performResidentRequest(handler.MarkExit, userID, map[string]interface{}{
		"visitor_id": "visitor-1",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentList_NoProfile(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newResidentHandler(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM residents WHERE user_id`).
		WithArgs(userID.String()).
		WillReturnError(errNoRows())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setResidentContext(c, userID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/resident/visitors", nil)

	handler.List(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "No resident profile")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- shared test plumbing for the handlers package ---

// noopGateway delivers nothing and never fails
type noopGateway struct{}

func (noopGateway) SendSMS(ctx context.Context, phone, message string) error      { return nil }
func (noopGateway) SendWhatsApp(ctx context.Context, phone, message string) error { return nil }
func (noopGateway) Name() string                                                  { return "noop" }

func errNoRows() error {
	return sql.ErrNoRows
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func setupHandlerDB(t *testing.T) (database.DB, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return &database.PostgresDB{DB: sqlxDB}, mock, func() { sqlxDB.Close() }
}

func newResidentHandler(db database.DB) *ResidentVisitorHandler {
	logger := quietLogger()
	return NewResidentVisitorHandler(
		database.NewVisitorRepository(db),
		database.NewResidentRepository(db),
		services.NewAuditService(db, logger),
		newTestNotifier(db, logger),
		logger,
	)
}

func newTestNotifier(db database.DB, logger *logrus.Logger) *services.NotificationService {
	return services.NewNotificationService(
		database.NewNotificationRepository(db),
		database.NewUserRepository(db),
		noopGateway{},
		logger,
	)
}

func setResidentContext(c *gin.Context, userID uuid.UUID) {
	c.Set(middleware.UserContextKey, middleware.UserContext{
		UserID:     userID,
		Phone:      "9876543210",
		Role:       "resident",
		PropertyID: "property-1",
	})
}

func performResidentRequest(handle gin.HandlerFunc, userID uuid.UUID, body map[string]interface{}) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	setResidentContext(c, userID)

	payload, _ := json.Marshal(body)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/resident/visitors", bytes.NewBuffer(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	handle(c)
	return w
}

func residentRows(residentID, userID, propertyID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "property_id", "name", "phone", "unit_number",
		"is_primary", "status", "moved_in_at", "created_at", "updated_at",
	}).AddRow(
		residentID, userID, propertyID, "Priya Sharma", "9876543211", "A-101",
		true, "active", nil, now, now,
	)
}

func visitorRows(visitorID, propertyID, hostResidentID, status string, phoneVerified bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "property_id", "host_resident_id", "name", "phone", "phone_verified",
		"photo_url", "id_card_type", "id_card_number", "id_card_image_url",
		"purpose", "vehicle_number", "number_of_persons", "status",
		"approved_by", "approved_at", "rejected_by", "rejected_at", "rejection_reason",
		"checked_in_by", "check_in_time", "checked_out_by", "check_out_time",
		"marked_exit_by", "marked_exit_at",
		"is_forwarded", "forwarded_from", "forwarded_to", "forwarded_at", "forwarding_note",
		"otp_code", "otp_expires_at", "otp_verified",
		"is_walk_in", "created_by", "created_at", "updated_at",
	}).AddRow(
		visitorID, propertyID, hostResidentID, "Ravi Kumar", "9876543210", phoneVerified,
		nil, nil, nil, nil,
		"Delivery", nil, 1, status,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil,
		nil, nil,
		false, nil, nil, nil, nil,
		nil, nil, phoneVerified,
		false, nil, now, now,
	)
}

func emptyUserRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "phone", "full_name", "email", "role", "property_id", "password_hash",
		"status", "phone_verified", "last_login_at", "created_at", "updated_at",
	})
}
