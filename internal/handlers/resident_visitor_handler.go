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
)

// ResidentVisitorHandler handles the resident side of the visitor workflow:
// approving, rejecting, forwarding, and marking visitors as left.
type ResidentVisitorHandler struct {
	visitors  *database.VisitorRepository
	residents *database.ResidentRepository
	audit     *services.AuditService
	notifier  *services.NotificationService
	logger    *logrus.Logger
}

// NewResidentVisitorHandler creates a new resident visitor handler
func NewResidentVisitorHandler(
	visitors *database.VisitorRepository,
	residents *database.ResidentRepository,
	audit *services.AuditService,
	notifier *services.NotificationService,
	logger *logrus.Logger,
) *ResidentVisitorHandler {
	return &ResidentVisitorHandler{
		visitors:  visitors,
		residents: residents,
		audit:     audit,
		notifier:  notifier,
		logger:    logger,
	}
}

// List handles GET /api/v1/resident/visitors
func (h *ResidentVisitorHandler) List(c *gin.Context) {
	resident, ok := h.currentResident(c)
	if !ok {
		return
	}

	visitors, err := h.visitors.GetByHostResident(resident.ID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list visitors for resident")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, visitors)
}

// Directory handles GET /api/v1/resident/directory. Residents use it to pick
// a forwarding target within their property.
func (h *ResidentVisitorHandler) Directory(c *gin.Context) {
	resident, ok := h.currentResident(c)
	if !ok {
		return
	}

	residents, err := h.residents.GetByProperty(resident.PropertyID)
	if err != nil {
		h.logger.WithError(err).Error("failed to list property residents")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, residents)
}

// Approve handles POST /api/v1/resident/visitors/approve. The pending status
// and host guards are enforced inside the conditional update, so a request
// racing another decision loses with a conflict instead of double-applying.
func (h *ResidentVisitorHandler) Approve(c *gin.Context) {
	var req models.ApproveVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "visitor_id is required")
		return
	}

	resident, visitor, ok := h.loadOwnedVisitor(c, req.VisitorID)
	if !ok {
		return
	}

	if err := h.visitors.Approve(visitor.ID, resident.ID); err != nil {
		respondRepoError(c, err)
		return
	}

	updated, err := h.visitors.GetByID(visitor.ID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.notifier.NotifyGuardsOfApproval(c.Request.Context(), updated, resident)
	h.notifier.NotifyVisitorOfDecision(c.Request.Context(), updated)
	h.logTransition(c, services.ActionVisitorApproved, updated.ID, nil)

	respondOK(c, http.StatusOK, updated)
}

// Reject handles POST /api/v1/resident/visitors/reject
func (h *ResidentVisitorHandler) Reject(c *gin.Context) {
	var req models.RejectVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "visitor_id is required")
		return
	}

	resident, visitor, ok := h.loadOwnedVisitor(c, req.VisitorID)
	if !ok {
		return
	}

	reason := models.DefaultRejectionReason
	if req.Reason != nil && *req.Reason != "" {
		reason = *req.Reason
	}

	if err := h.visitors.Reject(visitor.ID, resident.ID, reason); err != nil {
		respondRepoError(c, err)
		return
	}

	updated, err := h.visitors.GetByID(visitor.ID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.notifier.NotifyVisitorOfDecision(c.Request.Context(), updated)
	h.logTransition(c, services.ActionVisitorRejected, updated.ID, map[string]interface{}{
		"reason": reason,
	})

	respondOK(c, http.StatusOK, updated)
}

// Forward handles POST /api/v1/resident/visitors/forward. The request is
// reassigned to another resident of the same property and stays pending; the
// new host gets the approval decision.
func (h *ResidentVisitorHandler) Forward(c *gin.Context) {
	var req models.ForwardVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "visitor_id and forward_to_resident_id are required")
		return
	}

	resident, visitor, ok := h.loadOwnedVisitor(c, req.VisitorID)
	if !ok {
		return
	}

	if req.ForwardToResidentID == resident.ID {
		respondError(c, http.StatusBadRequest, CodeValidationError, "cannot forward a visitor to yourself")
		return
	}

	target, err := h.residents.GetByID(req.ForwardToResidentID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "forwarding target not found")
			return
		}
		respondRepoError(c, err)
		return
	}

	// A target in another property does not exist from this resident's view
	if !target.BelongsTo(resident.PropertyID) {
		respondError(c, http.StatusNotFound, CodeNotFound, "forwarding target not found")
		return
	}

	if !target.IsActive() {
		respondError(c, http.StatusBadRequest, CodeValidationError, "forwarding target must be an active resident of the same property")
		return
	}

	if err := h.visitors.Forward(visitor.ID, resident.ID, target.ID, req.Note); err != nil {
		respondRepoError(c, err)
		return
	}

	updated, err := h.visitors.GetByID(visitor.ID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.notifier.NotifyHostOfRequest(c.Request.Context(), updated, target)
	h.logTransition(c, services.ActionVisitorForwarded, updated.ID, map[string]interface{}{
		"forwarded_to": target.ID,
	})

	respondOK(c, http.StatusOK, updated)
}

// MarkExit handles POST /api/v1/resident/visitors/mark-exit. This is an
// advisory stamp from the host; the visitor stays checked_in until a guard
// confirms the exit at the gate.
func (h *ResidentVisitorHandler) MarkExit(c *gin.Context) {
	var req models.MarkExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidationError, "visitor_id is required")
		return
	}

	resident, visitor, ok := h.loadOwnedVisitor(c, req.VisitorID)
	if !ok {
		return
	}

	if err := h.visitors.MarkExit(visitor.ID, resident.ID); err != nil {
		respondRepoError(c, err)
		return
	}

	updated, err := h.visitors.GetByID(visitor.ID)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	h.notifier.NotifyGuardsOfExitMark(c.Request.Context(), updated, resident)
	h.logTransition(c, services.ActionVisitorExitMarked, updated.ID, nil)

	respondOK(c, http.StatusOK, updated)
}

// currentResident resolves the caller's resident profile. Visitors reference
// the profile id, so every ownership check starts here.
func (h *ResidentVisitorHandler) currentResident(c *gin.Context) (*models.Resident, bool) {
	userCtx := middleware.MustGetUserContext(c)

	resident, err := h.residents.GetByUserID(userCtx.UserID.String())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(c, http.StatusForbidden, CodeForbidden, "No resident profile for this account")
			return nil, false
		}
		respondRepoError(c, err)
		return nil, false
	}

	return resident, true
}

// loadOwnedVisitor loads the visitor and verifies the caller hosts it.
// A visitor hosted by someone else is a 403 even when it exists, and a
// missing visitor is a 404; only a lost race yields a conflict later.
func (h *ResidentVisitorHandler) loadOwnedVisitor(c *gin.Context, visitorID string) (*models.Resident, *models.Visitor, bool) {
	resident, ok := h.currentResident(c)
	if !ok {
		return nil, nil, false
	}

	visitor, err := h.visitors.GetByID(visitorID)
	if err != nil {
		respondRepoError(c, err)
		return nil, nil, false
	}

	if !visitor.IsHostedBy(resident.ID) {
		respondError(c, http.StatusForbidden, CodeForbidden, "This visitor is not assigned to you")
		return nil, nil, false
	}

	return resident, visitor, true
}

func (h *ResidentVisitorHandler) logTransition(c *gin.Context, action, visitorID string, details map[string]interface{}) {
	userCtx := middleware.MustGetUserContext(c)
	h.audit.LogVisitorTransition(userCtx.UserID, action, visitorID, utils.GetRealIP(c), utils.GetUserAgent(c), details)
}
