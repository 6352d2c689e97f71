package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/middleware"
)

const defaultNotificationLimit = 50

// NotificationHandler serves a user's in-app notifications
type NotificationHandler struct {
	notifications *database.NotificationRepository
	logger        *logrus.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *database.NotificationRepository, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	limit := defaultNotificationLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 200 {
			respondError(c, http.StatusBadRequest, CodeValidationError, "limit must be between 1 and 200")
			return
		}
		limit = parsed
	}

	notifications, err := h.notifications.GetByUser(userCtx.UserID.String(), limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list notifications")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, notifications)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	count, err := h.notifications.CountUnread(userCtx.UserID.String())
	if err != nil {
		h.logger.WithError(err).Error("failed to count unread notifications")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"unread": count})
}

// MarkRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	err := h.notifications.MarkRead(c.Param("id"), userCtx.UserID.String())
	if err != nil {
		respondRepoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	updated, err := h.notifications.MarkAllRead(userCtx.UserID.String())
	if err != nil {
		h.logger.WithError(err).Error("failed to mark notifications as read")
		respondError(c, http.StatusInternalServerError, CodeInternal, "Something went wrong")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"updated": updated})
}
