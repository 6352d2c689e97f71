package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/models"
	"github.com/gatepass/visitor-gate-backend/internal/services"
	"github.com/gatepass/visitor-gate-backend/internal/utils"
	"github.com/gatepass/visitor-gate-backend/pkg/validator"
)

// VisitorHandler handles the public visitor registration flow
type VisitorHandler struct {
	visitors  *database.VisitorRepository
	residents *database.ResidentRepository
	audit     *services.AuditService
	notifier  *services.NotificationService
	phoneVal  *validator.PhoneValidator
	logger    *logrus.Logger
}

// NewVisitorHandler creates a new visitor handler
func NewVisitorHandler(
	visitors *database.VisitorRepository,
	residents *database.ResidentRepository,
	audit *services.AuditService,
	notifier *services.NotificationService,
	logger *logrus.Logger,
) *VisitorHandler {
	return &VisitorHandler{
		visitors:  visitors,
		residents: residents,
		audit:     audit,
		notifier:  notifier,
		phoneVal:  validator.NewPhoneValidator(),
		logger:    logger,
	}
}

// Register handles POST /api/v1/visitors/register. The visitor self-registers
// against a host resident; the record starts pending and the host is notified.
func (h *VisitorHandler) Register(c *gin.Context) {
	var req models.RegisterVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
		return
	}

	if req.Phone != nil {
		phone, err := h.phoneVal.Validate(*req.Phone)
		if err != nil {
			respondError(c, http.StatusBadRequest, CodeValidationError, err.Error())
			return
		}
		req.Phone = &phone
	}

	host, err := h.residents.GetByID(req.HostResidentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "host resident not found")
			return
		}
		respondRepoError(c, err)
		return
	}

	if !host.IsActive() {
		respondError(c, http.StatusBadRequest, CodeValidationError, "host resident is not active")
		return
	}

	visitor := &models.Visitor{
		PropertyID:      host.PropertyID,
		HostResidentID:  host.ID,
		Name:            req.Name,
		Phone:           req.Phone,
		PhotoURL:        req.PhotoURL,
		IDCardType:      req.IDCardType,
		IDCardNumber:    req.IDCardNumber,
		IDCardImageURL:  req.IDCardImageURL,
		Purpose:         req.Purpose,
		VehicleNumber:   req.VehicleNumber,
		NumberOfPersons: req.NumberOfPersons,
		Status:          models.VisitorStatusPending,
	}

	// Visitors registering with a phone must verify it with an OTP
	var otp string
	if req.Phone != nil {
		otp, err = services.GenerateRandomOTP()
		if err != nil {
			h.logger.WithError(err).Error("failed to generate visitor OTP")
			respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
			return
		}

		expiresAt := time.Now().Add(services.OTPExpiryDuration)
		visitor.OTPCode = &otp
		visitor.OTPExpiresAt = &expiresAt
	}

	if err := h.visitors.Create(visitor); err != nil {
		h.logger.WithError(err).Error("failed to create visitor")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	if otp != "" {
		if err := h.notifier.SendVisitorOTP(c.Request.Context(), *visitor.Phone, otp); err != nil {
			h.logger.WithError(err).WithField("visitor_id", visitor.ID).
				Error("failed to deliver visitor OTP")
		}
	}

	h.notifier.NotifyHostOfRequest(c.Request.Context(), visitor, host)
	h.audit.LogVisitorRegistered(nil, visitor.ID, host.ID, utils.GetRealIP(c), utils.GetUserAgent(c))

	respondOK(c, http.StatusCreated, gin.H{
		"visitor":                     visitor,
		"phone_verification_required": visitor.Phone != nil,
	})
}

// VerifyOTP handles POST /api/v1/visitors/verify-otp. The code is consumed
// atomically; a wrong, expired, or already-used code all look the same.
func (h *VisitorHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyVisitorOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "visitor_id and otp are required")
		return
	}

	err := h.visitors.VerifyOTP(req.VisitorID, req.OTP)
	if err != nil {
		if errors.Is(err, database.ErrStatusConflict) {
			respondError(c, http.StatusBadRequest, CodeValidationError, "Invalid or expired code")
			return
		}
		respondRepoError(c, err)
		return
	}

	visitor, err := h.visitors.GetByID(req.VisitorID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, visitor)
}

// Status handles GET /api/v1/visitors/:id/status. Returns only the fields a
// visitor standing at the gate needs to see.
func (h *VisitorHandler) Status(c *gin.Context) {
	visitor, err := h.visitors.GetByID(c.Param("id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"id":               visitor.ID,
		"name":             visitor.Name,
		"status":           visitor.Status,
		"phone_verified":   visitor.PhoneVerified,
		"rejection_reason": visitor.RejectionReason,
		"check_in_time":    visitor.CheckInTime,
	})
}
