package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
	"github.com/gatepass/visitor-gate-backend/internal/models"
	"github.com/gatepass/visitor-gate-backend/internal/services"
	"github.com/gatepass/visitor-gate-backend/internal/utils"
	"github.com/gatepass/visitor-gate-backend/pkg/validator"
)

// GuardHandler handles the gate side of the visitor workflow
type GuardHandler struct {
	visitors  *database.VisitorRepository
	residents *database.ResidentRepository
	audit     *services.AuditService
	notifier  *services.NotificationService
	phoneVal  *validator.PhoneValidator
	logger    *logrus.Logger
}

// NewGuardHandler creates a new guard handler
func NewGuardHandler(
	visitors *database.VisitorRepository,
	residents *database.ResidentRepository,
	audit *services.AuditService,
	notifier *services.NotificationService,
	logger *logrus.Logger,
) *GuardHandler {
	return &GuardHandler{
		visitors:  visitors,
		residents: residents,
		audit:     audit,
		notifier:  notifier,
		phoneVal:  validator.NewPhoneValidator(),
		logger:    logger,
	}
}

// GateList handles GET /api/v1/guard/visitors. By default it shows the
// visitors a guard acts on: approved (awaiting arrival) and checked_in.
func (h *GuardHandler) GateList(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)
	if userCtx.PropertyID == "" {
		respondError(c, http.StatusForbidden, CodeForbidden, "Guard account is not assigned to a property")
		return
	}

	statuses := []models.VisitorStatus{models.VisitorStatusApproved, models.VisitorStatusCheckedIn}
	if s := c.Query("status"); s != "" {
		statuses = []models.VisitorStatus{models.VisitorStatus(s)}
	}

	visitors, err := h.visitors.GetByPropertyAndStatus(userCtx.PropertyID, statuses...)
	if err != nil {
		h.logger.WithError(err).Error("failed to list gate visitors")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, visitors)
}

// CheckIn handles POST /api/v1/guard/visitors/check-in. Only an approved
// visitor with a verified identity passes the gate; the approved-status guard
// lives in the conditional update so a revoked approval cannot slip through.
func (h *GuardHandler) CheckIn(c *gin.Context) {
	var req models.CheckInVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "visitor_id is required")
		return
	}

	userCtx := middleware.MustGetUserContext(c)

	visitor, err := h.visitors.GetByID(req.VisitorID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	if visitor.PropertyID != userCtx.PropertyID {
		respondError(c, http.StatusForbidden, CodeForbidden, "This visitor belongs to another property")
		return
	}

	if !visitor.HasVerifiedIdentity() {
		respondError(c, http.StatusBadRequest, CodeValidationError, "Visitor identity is not verified")
		return
	}

	if err := h.visitors.CheckIn(visitor.ID, userCtx.UserID.String()); err != nil {
		respondRepoError(c, err)
		return
	}

	updated, err := h.visitors.GetByID(visitor.ID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	host, err := h.residents.GetByID(updated.HostResidentID)
	if err == nil {
		h.notifier.NotifyHostOfCheckIn(c.Request.Context(), updated, host)
	} else {
		h.logger.WithError(err).WithField("visitor_id", updated.ID).
			Warn("failed to load host for check-in notification")
	}

	h.audit.LogVisitorTransition(userCtx.UserID, services.ActionVisitorCheckedIn, updated.ID,
		utils.GetRealIP(c), utils.GetUserAgent(c), nil)

	respondOK(c, http.StatusOK, updated)
}

// ManualEntry handles POST /api/v1/guard/visitors/manual-entry. Walk-in
// visitors entered at the gate still start pending: the host resident keeps
// the approval decision.
func (h *GuardHandler) ManualEntry(c *gin.Context) {
	var req models.ManualEntryRequest
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

	userCtx := middleware.MustGetUserContext(c)

	host, err := h.residents.GetByID(req.HostResidentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "host resident not found")
			return
		}
		respondRepoError(c, err)
		return
	}

	if !host.IsActive() || !host.BelongsTo(userCtx.PropertyID) {
		respondError(c, http.StatusBadRequest, CodeValidationError, "host must be an active resident of your property")
		return
	}

	createdBy := userCtx.UserID.String()
	visitor := &models.Visitor{
		PropertyID:      host.PropertyID,
		HostResidentID:  host.ID,
		Name:            req.Name,
		Phone:           req.Phone,
		IDCardType:      req.IDCardType,
		IDCardNumber:    req.IDCardNumber,
		IDCardImageURL:  req.IDCardImageURL,
		Purpose:         req.Purpose,
		VehicleNumber:   req.VehicleNumber,
		NumberOfPersons: req.NumberOfPersons,
		Status:          models.VisitorStatusPending,
		IsWalkIn:        true,
		CreatedBy:       &createdBy,
	}

	// The guard verifies the walk-in's phone face to face at the gate, so no
	// OTP round-trip is needed
	if req.Phone != nil {
		visitor.PhoneVerified = true
	}

	if err := h.visitors.Create(visitor); err != nil {
		h.logger.WithError(err).Error("failed to create walk-in visitor")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	h.notifier.NotifyHostOfRequest(c.Request.Context(), visitor, host)
	h.audit.LogVisitorRegistered(&userCtx.UserID, visitor.ID, host.ID, utils.GetRealIP(c), utils.GetUserAgent(c))

	respondOK(c, http.StatusCreated, visitor)
}
