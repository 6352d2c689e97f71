package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatepass/visitor-gate-backend/internal/config"
	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
	"github.com/gatepass/visitor-gate-backend/internal/models"
	"github.com/gatepass/visitor-gate-backend/internal/services"
	"github.com/gatepass/visitor-gate-backend/internal/utils"
	"github.com/gatepass/visitor-gate-backend/pkg/validator"
)

const defaultAuditLogLimit = 100

// CreateUserRequest is the super-admin request to provision an account.
// Resident accounts also get a resident profile, so name, unit number, and
// property are required for them.
type CreateUserRequest struct {
	Phone      string  `json:"phone" binding:"required"`
	Role       string  `json:"role" binding:"required"`
	PropertyID *string `json:"property_id,omitempty"`
	Password   *string `json:"password,omitempty"`
	Name       *string `json:"name,omitempty"`
	UnitNumber *string `json:"unit_number,omitempty"`
	IsPrimary  bool    `json:"is_primary"`
}

// UpdateUserStatusRequest activates or suspends an account
type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminHandler handles super-admin management endpoints
type AdminHandler struct {
	users         *database.UserRepository
	residents     *database.ResidentRepository
	properties    *database.PropertyRepository
	visitors      *database.VisitorRepository
	refreshTokens *database.RefreshTokenRepository
	auditLogs     *database.AuditLogRepository
	audit         *services.AuditService
	phoneVal      *validator.PhoneValidator
	cfg           *config.Config
	logger        *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	users *database.UserRepository,
	residents *database.ResidentRepository,
	properties *database.PropertyRepository,
	visitors *database.VisitorRepository,
	refreshTokens *database.RefreshTokenRepository,
	auditLogs *database.AuditLogRepository,
	audit *services.AuditService,
	cfg *config.Config,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		users:         users,
		residents:     residents,
		properties:    properties,
		visitors:      visitors,
		refreshTokens: refreshTokens,
		auditLogs:     auditLogs,
		audit:         audit,
		phoneVal:      validator.NewPhoneValidator(),
		cfg:           cfg,
		logger:        logger,
	}
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	phone, err := h.phoneVal.Validate(req.Phone)
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	switch req.Role {
	case models.RoleResident:
		if req.PropertyID == nil || req.Name == nil || req.UnitNumber == nil {
			respondError(c, http.StatusBadRequest, CodeValidationError, "resident accounts need property_id, name, and unit_number")
			return
		}
	case models.RoleGuard:
		if req.PropertyID == nil {
			respondError(c, http.StatusBadRequest, CodeValidationError, "guard accounts need property_id")
			return
		}
	case models.RoleSuperAdmin:
		if req.Password == nil || len(*req.Password) < 12 {
			respondError(c, http.StatusBadRequest, CodeValidationError, "super admin accounts need a password of at least 12 characters")
			return
		}
	default:
		respondError(c, http.StatusBadRequest, CodeValidationError, "role must be one of: resident, guard, super_admin")
		return
	}

	if req.PropertyID != nil {
		if _, err := h.properties.GetByID(*req.PropertyID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(c, http.StatusBadRequest, CodeValidationError, "property not found")
				return
			}
			respondRepoError(c, err)
			return
		}
	}

	if _, err := h.users.GetUserByPhone(phone); err == nil {
		respondError(c, http.StatusConflict, CodeConflict, "An account with this phone already exists")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		respondRepoError(c, err)
		return
	}

	user, err := h.users.CreateUser(phone, req.Role, req.PropertyID)
	if err != nil {
		h.logger.WithError(err).Error("failed to create user")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), h.cfg.Security.BcryptCost)
		if err != nil {
			h.logger.WithError(err).Error("failed to hash password")
			respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
			return
		}
		if err := h.users.SetPassword(user.ID, string(hash)); err != nil {
			h.logger.WithError(err).Error("failed to store password hash")
			respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
			return
		}
	}

	var resident *models.Resident
	if req.Role == models.RoleResident {
		resident = &models.Resident{
			UserID:     user.ID.String(),
			PropertyID: *req.PropertyID,
			Name:       *req.Name,
			Phone:      phone,
			UnitNumber: *req.UnitNumber,
			IsPrimary:  req.IsPrimary,
		}
		if err := h.residents.Create(resident); err != nil {
			h.logger.WithError(err).Error("failed to create resident profile")
			respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
			return
		}
	}

	adminCtx := middleware.MustGetUserContext(c)
	h.audit.LogUserCreated(adminCtx.UserID, user.ID.String(), user.Role, utils.GetRealIP(c), utils.GetUserAgent(c))

	respondOK(c, http.StatusCreated, gin.H{
		"user":     user,
		"resident": resident,
	})
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListUsers()
	if err != nil {
		h.logger.WithError(err).Error("failed to list users")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, users)
}

// UpdateUserStatus handles PATCH /api/v1/admin/users/:id/status. Suspending
// an account also revokes its refresh tokens so open sessions die at the
// next refresh.
func (h *AdminHandler) UpdateUserStatus(c *gin.Context) {
	var req UpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "status is required")
		return
	}

	if req.Status != "active" && req.Status != "suspended" {
		respondError(c, http.StatusBadRequest, CodeValidationError, "status must be active or suspended")
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "invalid user id")
		return
	}

	adminCtx := middleware.MustGetUserContext(c)
	if userID == adminCtx.UserID {
		respondError(c, http.StatusBadRequest, CodeValidationError, "cannot change your own account status")
		return
	}

	if err := h.users.UpdateStatus(userID, req.Status); err != nil {
		respondRepoError(c, err)
		return
	}

	if req.Status == "suspended" {
		if _, err := h.refreshTokens.RevokeAllForUser(userID); err != nil {
			h.logger.WithError(err).Warn("failed to revoke sessions of suspended user")
		}
	}

	h.audit.LogUserStatusChanged(adminCtx.UserID, userID.String(), req.Status, utils.GetRealIP(c), utils.GetUserAgent(c))

	respondOK(c, http.StatusOK, gin.H{"message": "User status updated"})
}

// CreateProperty handles POST /api/v1/admin/properties
func (h *AdminHandler) CreateProperty(c *gin.Context) {
	var req models.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	property := &models.Property{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		TotalUnits: req.TotalUnits,
	}

	if err := h.properties.Create(property); err != nil {
		h.logger.WithError(err).Error("failed to create property")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	adminCtx := middleware.MustGetUserContext(c)
	h.audit.LogPropertyEvent(adminCtx.UserID, services.ActionPropertyCreated, property.ID, utils.GetRealIP(c), utils.GetUserAgent(c))

	respondOK(c, http.StatusCreated, property)
}

// ListProperties handles GET /api/v1/admin/properties
func (h *AdminHandler) ListProperties(c *gin.Context) {
	properties, err := h.properties.List()
	if err != nil {
		h.logger.WithError(err).Error("failed to list properties")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, properties)
}

// GetProperty handles GET /api/v1/admin/properties/:id
func (h *AdminHandler) GetProperty(c *gin.Context) {
	property, err := h.properties.GetByID(c.Param("id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, property)
}

// UpdateProperty handles PATCH /api/v1/admin/properties/:id
func (h *AdminHandler) UpdateProperty(c *gin.Context) {
	var req models.UpdatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	propertyID := c.Param("id")
	if err := h.properties.Update(propertyID, &req); err != nil {
		respondRepoError(c, err)
		return
	}

	property, err := h.properties.GetByID(propertyID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	adminCtx := middleware.MustGetUserContext(c)
	h.audit.LogPropertyEvent(adminCtx.UserID, services.ActionPropertyUpdated, property.ID, utils.GetRealIP(c), utils.GetUserAgent(c))

	respondOK(c, http.StatusOK, property)
}

// ListPropertyResidents handles GET /api/v1/admin/properties/:id/residents
func (h *AdminHandler) ListPropertyResidents(c *gin.Context) {
	residents, err := h.residents.GetByProperty(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("failed to list property residents")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, residents)
}

// PropertyStats handles GET /api/v1/admin/properties/:id/stats
func (h *AdminHandler) PropertyStats(c *gin.Context) {
	propertyID := c.Param("id")

	if _, err := h.properties.GetByID(propertyID); err != nil {
		respondRepoError(c, err)
		return
	}

	counts, err := h.visitors.CountByStatus(propertyID)
	if err != nil {
		h.logger.WithError(err).Error("failed to count visitors")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"property_id": propertyID,
		"visitors":    counts,
	})
}

// AuditLogs handles GET /api/v1/admin/audit-logs
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	limit := defaultAuditLogLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondError(c, http.StatusBadRequest, CodeValidationError, "limit must be between 1 and 1000")
			return
		}
		limit = parsed
	}

	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")

	var logs []models.AuditLog
	var err error
	if entityType != "" && entityID != "" {
		logs, err = h.auditLogs.ListByEntity(entityType, entityID, limit)
	} else {
		logs, err = h.auditLogs.List(limit)
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to list audit logs")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, logs)
}
