package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatepass/visitor-gate-backend/internal/config"
	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
	"github.com/gatepass/visitor-gate-backend/internal/services"
)

func newAdminHandler(db database.DB) *AdminHandler {
	logger := quietLogger()
	cfg := &config.Config{
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}

	return NewAdminHandler(
		database.NewUserRepository(db),
		database.NewResidentRepository(db),
		database.NewPropertyRepository(db),
		database.NewVisitorRepository(db),
		database.NewRefreshTokenRepository(db),
		database.NewAuditLogRepository(db),
		services.NewAuditService(db, logger),
		cfg,
		logger,
	)
}

func performAdminRequest(handle gin.HandlerFunc, adminID uuid.UUID, method, target string, body map[string]interface{}, params gin.Params) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.UserContextKey, middleware.UserContext{
		UserID: adminID,
		Phone:  "9876543219",
		Role:   "super_admin",
	})
	c.Params = params

	var reader *bytes.Buffer
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")

	handle(c)
	return w
}

func propertyRow(propertyID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "address", "city", "total_units", "status", "created_at", "updated_at",
	}).AddRow(propertyID, "Green Meadows", "12 Lake Road", "Pune", 120, "active", now, now)
}

func TestAdminCreateUser_ResidentMissingProfileFields(t *testing.T) {
	db, _, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)

	w := performAdminRequest(handler.CreateUser, uuid.New(), http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
		"phone":       "9876543210",
		"role":        "resident",
		"property_id": "property-1",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "property_id, name, and unit_number")
}

func TestAdminCreateUser_UnknownRole(t *testing.T) {
	db, _, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)

	w := performAdminRequest(handler.CreateUser, uuid.New(), http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
		"phone": "9876543210",
		"role":  "manager",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "role must be one of")
}

func TestAdminCreateUser_ShortAdminPassword(t *testing.T) {
	db, _, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)

	w := performAdminRequest(handler.CreateUser, uuid.New(), http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
		"phone":    "9876543210",
		"role":     "super_admin",
		"password": "short",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "at least 12 characters")
}

func TestAdminCreateUser_DuplicatePhone(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM properties WHERE id`).
		WithArgs("property-1").
		WillReturnRows(propertyRow("property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone`).
		WithArgs("9876543210").
		WillReturnRows(userRow(uuid.New(), "9876543210", "guard", "active", nil))

	w := performAdminRequest(handler.CreateUser, uuid.New(), http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
		"phone":       "9876543210",
		"role":        "guard",
		"property_id": "property-1",
	}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminCreateUser_ResidentWithProfile(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)
	adminID := uuid.New()
	newUserID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM properties WHERE id`).
		WithArgs("property-1").
		WillReturnRows(propertyRow("property-1"))

	mock.ExpectQuery(`SELECT (.+) FROM users WHERE phone`).
		WithArgs("9876543210").
		WillReturnError(errNoRows())

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(userRow(newUserID, "9876543210", "resident", "active", nil))

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO residents`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := performAdminRequest(handler.CreateUser, adminID, http.MethodPost, "/api/v1/admin/users", map[string]interface{}{
		"phone":       "9876543210",
		"role":        "resident",
		"property_id": "property-1",
		"name":        "Priya Sharma",
		"unit_number": "A-101",
		"is_primary":  true,
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"unit_number":"A-101"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminUpdateUserStatus(t *testing.T) {
	t.Run("Suspend revokes sessions", func(t *testing.T) {
		db, mock, cleanup := setupHandlerDB(t)
		defer cleanup()

		handler := newAdminHandler(db)
		adminID := uuid.New()
		targetID := uuid.New()

		mock.ExpectExec(`UPDATE users SET status`).
			WithArgs(targetID, "suspended").
			WillReturnResult(sqlmock.NewResult(0, 1))

		mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE`).
			WithArgs(targetID).
			WillReturnResult(sqlmock.NewResult(0, 2))

		mock.ExpectExec(`INSERT INTO audit_logs`).
			WillReturnResult(sqlmock.NewResult(1, 1))

		w := performAdminRequest(handler.UpdateUserStatus, adminID, http.MethodPatch,
			"/api/v1/admin/users/"+targetID.String()+"/status",
			map[string]interface{}{"status": "suspended"},
			gin.Params{{Key: "id", Value: targetID.String()}})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cannot suspend yourself", func(t *testing.T) {
		db, _, cleanup := setupHandlerDB(t)
		defer cleanup()

		handler := newAdminHandler(db)
		adminID := uuid.New()

		w := performAdminRequest(handler.UpdateUserStatus, adminID, http.MethodPatch,
			"/api/v1/admin/users/"+adminID.String()+"/status",
			map[string]interface{}{"status": "suspended"},
			gin.Params{{Key: "id", Value: adminID.String()}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "your own account")
	})

	t.Run("Invalid status value", func(t *testing.T) {
		db, _, cleanup := setupHandlerDB(t)
		defer cleanup()

		handler := newAdminHandler(db)

		w := performAdminRequest(handler.UpdateUserStatus, uuid.New(), http.MethodPatch,
			"/api/v1/admin/users/x/status",
			map[string]interface{}{"status": "banned"},
			gin.Params{{Key: "id", Value: uuid.New().String()}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "active or suspended")
	})

	t.Run("Unknown user", func(t *testing.T) {
		db, mock, cleanup := setupHandlerDB(t)
		defer cleanup()

		handler := newAdminHandler(db)
		targetID := uuid.New()

		mock.ExpectExec(`UPDATE users SET status`).
			WithArgs(targetID, "active").
			WillReturnResult(sqlmock.NewResult(0, 0))

		w := performAdminRequest(handler.UpdateUserStatus, uuid.New(), http.MethodPatch,
			"/api/v1/admin/users/"+targetID.String()+"/status",
			map[string]interface{}{"status": "active"},
			gin.Params{{Key: "id", Value: targetID.String()}})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminCreateProperty(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO properties`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := performAdminRequest(handler.CreateProperty, uuid.New(), http.MethodPost, "/api/v1/admin/properties", map[string]interface{}{
		"name":        "Green Meadows",
		"address":     "12 Lake Road",
		"city":        "Pune",
		"total_units": 120,
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"active"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminPropertyStats(t *testing.T) {
	db, mock, cleanup := setupHandlerDB(t)
	defer cleanup()

	handler := newAdminHandler(db)

	mock.ExpectQuery(`SELECT (.+) FROM properties WHERE id`).
		WithArgs("property-1").
		WillReturnRows(propertyRow("property-1"))

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM visitors`).
		WithArgs("property-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("pending", 2).
			AddRow("checked_in", 1))

	w := performAdminRequest(handler.PropertyStats, uuid.New(), http.MethodGet,
		"/api/v1/admin/properties/property-1/stats", nil,
		gin.Params{{Key: "id", Value: "property-1"}})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pending":2`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminAuditLogs(t *testing.T) {
	t.Run("Entity filter", func(t *testing.T) {
		db, mock, cleanup := setupHandlerDB(t)
		defer cleanup()

		handler := newAdminHandler(db)

		now := time.Now()
		mock.ExpectQuery(`SELECT (.+) FROM audit_logs WHERE entity_type`).
			WithArgs("visitor", "visitor-1", 100).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "user_id", "action", "entity_type", "entity_id",
				"ip_address", "user_agent", "details", "created_at",
			}).AddRow(
				int64(1), uuid.New(), "visitor_approved", "visitor", "visitor-1",
				"203.0.113.10", "test-agent", `{"reason":"ok"}`, now,
			))

		w := performAdminRequest(handler.AuditLogs, uuid.New(), http.MethodGet,
			"/api/v1/admin/audit-logs?entity_type=visitor&entity_id=visitor-1", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "visitor_approved")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Limit out of range", func(t *testing.T) {
		db, _, cleanup := setupHandlerDB(t)
		defer cleanup()

		handler := newAdminHandler(db)

		w := performAdminRequest(handler.AuditLogs, uuid.New(), http.MethodGet,
			"/api/v1/admin/audit-logs?limit=5000", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "limit must be between 1 and 1000")
	})
}
