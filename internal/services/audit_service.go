package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/utils"
)

// Audit action names
const (
	ActionOTPRequested      = "otp_requested"
	ActionOTPVerified       = "otp_verified"
	ActionOTPFailed         = "otp_failed"
	ActionLogin             = "login"
	ActionLogout            = "logout"
	ActionTokenRefreshed    = "token_refreshed"
	ActionVisitorRegistered = "visitor_registered"
	ActionVisitorApproved   = "visitor_approved"
	ActionVisitorRejected   = "visitor_rejected"
	ActionVisitorForwarded  = "visitor_forwarded"
	ActionVisitorCheckedIn  = "visitor_checked_in"
	ActionVisitorExitMarked = "visitor_exit_marked"
	ActionUserCreated       = "user_created"
	ActionUserStatusChanged = "user_status_changed"
	ActionPropertyCreated   = "property_created"
	ActionPropertyUpdated   = "property_updated"
)

// Entity types for audit records
const (
	EntityVisitor  = "visitor"
	EntityUser     = "user"
	EntityProperty = "property"
	EntityAuth     = "auth"
)

// AuditService writes security and workflow events to the audit_logs table.
// Logging failures are reported but never propagated to callers; an audit
// write must not fail the operation it describes.
type AuditService struct {
	db     database.DB
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// LogOTPRequest records an OTP request for a phone number
func (s *AuditService) LogOTPRequest(phone, ipAddress, userAgent string) {
	s.logEvent(nil, ActionOTPRequested, EntityAuth, "", ipAddress, userAgent, map[string]interface{}{
		"phone":  phone,
		"device": utils.ParseUserAgent(userAgent),
	})
}

// LogOTPVerified records a successful OTP verification
func (s *AuditService) LogOTPVerified(userID uuid.UUID, phone, ipAddress, userAgent string) {
	s.logEvent(&userID, ActionOTPVerified, EntityAuth, "", ipAddress, userAgent, map[string]interface{}{
		"phone":  phone,
		"device": utils.ParseUserAgent(userAgent),
	})
}

// LogOTPFailed records a failed OTP verification attempt
func (s *AuditService) LogOTPFailed(phone, reason, ipAddress, userAgent string) {
	s.logEvent(nil, ActionOTPFailed, EntityAuth, "", ipAddress, userAgent, map[string]interface{}{
		"phone":  phone,
		"reason": reason,
	})
}

// LogLogin records a successful login
func (s *AuditService) LogLogin(userID uuid.UUID, role, ipAddress, userAgent string) {
	s.logEvent(&userID, ActionLogin, EntityAuth, "", ipAddress, userAgent, map[string]interface{}{
		"role":   role,
		"device": utils.ParseUserAgent(userAgent),
	})
}

// LogLogout records a logout
func (s *AuditService) LogLogout(userID uuid.UUID, ipAddress, userAgent string) {
	s.logEvent(&userID, ActionLogout, EntityAuth, "", ipAddress, userAgent, nil)
}

// LogTokenRefreshed records a refresh token exchange
func (s *AuditService) LogTokenRefreshed(userID uuid.UUID, ipAddress, userAgent string) {
	s.logEvent(&userID, ActionTokenRefreshed, EntityAuth, "", ipAddress, userAgent, nil)
}

// LogVisitorRegistered records a new visitor registration
func (s *AuditService) LogVisitorRegistered(createdBy *uuid.UUID, visitorID, hostResidentID, ipAddress, userAgent string) {
	s.logEvent(createdBy, ActionVisitorRegistered, EntityVisitor, visitorID, ipAddress, userAgent, map[string]interface{}{
		"host_resident_id": hostResidentID,
	})
}

// LogVisitorTransition records a visitor status transition or workflow action
func (s *AuditService) LogVisitorTransition(userID uuid.UUID, action, visitorID, ipAddress, userAgent string, details map[string]interface{}) {
	s.logEvent(&userID, action, EntityVisitor, visitorID, ipAddress, userAgent, details)
}

// LogUserCreated records a new user account created by a super admin
func (s *AuditService) LogUserCreated(adminID uuid.UUID, newUserID, role, ipAddress, userAgent string) {
	s.logEvent(&adminID, ActionUserCreated, EntityUser, newUserID, ipAddress, userAgent, map[string]interface{}{
		"role": role,
	})
}

// LogUserStatusChanged records an account activation or suspension
func (s *AuditService) LogUserStatusChanged(adminID uuid.UUID, targetUserID, status, ipAddress, userAgent string) {
	s.logEvent(&adminID, ActionUserStatusChanged, EntityUser, targetUserID, ipAddress, userAgent, map[string]interface{}{
		"status": status,
	})
}

// LogPropertyEvent records property creation or updates
func (s *AuditService) LogPropertyEvent(adminID uuid.UUID, action, propertyID, ipAddress, userAgent string) {
	s.logEvent(&adminID, action, EntityProperty, propertyID, ipAddress, userAgent, nil)
}

// logEvent writes one audit record
func (s *AuditService) logEvent(userID *uuid.UUID, action, entityType, entityID, ipAddress, userAgent string, details map[string]interface{}) {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`

	var detailsJSON interface{}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.WithError(err).WithField("action", action).Warn("failed to marshal audit details")
		} else {
			detailsJSON = string(raw)
		}
	}

	var entityIDVal, ipVal, userAgentVal interface{}
	if entityID != "" {
		entityIDVal = entityID
	}
	if ipAddress != "" {
		ipVal = ipAddress
	}
	if userAgent != "" {
		userAgentVal = userAgent
	}

	_, err := s.db.Exec(query, userID, action, entityType, entityIDVal, ipVal, userAgentVal, detailsJSON)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Error(fmt.Sprintf("failed to write audit log for %s", action))
	}
}
