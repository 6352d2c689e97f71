package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gatepass/visitor-gate-backend/internal/database"
	"github.com/gatepass/visitor-gate-backend/internal/models"
	"github.com/gatepass/visitor-gate-backend/pkg/messaging"
)

// dispatchTimeout bounds each outbound gateway call
const dispatchTimeout = 15 * time.Second

// NotificationService fans workflow events out to in-app notifications and
// the messaging gateway. Delivery is best effort: failures are logged and
// never propagated, so a dead SMS provider cannot fail an approval.
type NotificationService struct {
	notifications *database.NotificationRepository
	users         *database.UserRepository
	gateway       messaging.Gateway
	logger        *logrus.Logger
}

// NewNotificationService creates a new notification service
func NewNotificationService(
	notifications *database.NotificationRepository,
	users *database.UserRepository,
	gateway messaging.Gateway,
	logger *logrus.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		gateway:       gateway,
		logger:        logger,
	}
}

// NotifyHostOfRequest tells the host resident a visitor is waiting for a
// decision. Called on registration and again when a request is forwarded.
func (s *NotificationService) NotifyHostOfRequest(ctx context.Context, visitor *models.Visitor, host *models.Resident) {
	title := "New visitor request"
	message := fmt.Sprintf("%s is requesting to visit you", visitor.Name)
	if visitor.Purpose != "" {
		message = fmt.Sprintf("%s is requesting to visit you. Purpose: %s", visitor.Name, visitor.Purpose)
	}

	s.persist(&models.Notification{
		UserID:     host.UserID,
		PropertyID: visitor.PropertyID,
		Type:       models.NotificationVisitorRequest,
		Title:      title,
		Message:    message,
		VisitorID:  &visitor.ID,
		Priority:   models.NotificationPriorityHigh,
	})

	s.sendWhatsAppWithSMSFallback(ctx, host.Phone, message+". Open the app to approve or reject.")
}

// NotifyVisitorOfDecision tells the visitor their request was approved or
// rejected. Visitors without a phone number get no message.
func (s *NotificationService) NotifyVisitorOfDecision(ctx context.Context, visitor *models.Visitor) {
	if visitor.Phone == nil || *visitor.Phone == "" {
		return
	}

	var message string
	switch visitor.Status {
	case models.VisitorStatusApproved:
		message = fmt.Sprintf("Hi %s, your visit has been approved. Please proceed to the gate.", visitor.Name)
	case models.VisitorStatusRejected:
		message = fmt.Sprintf("Hi %s, your visit request was not approved.", visitor.Name)
	default:
		return
	}

	s.sendWhatsAppWithSMSFallback(ctx, *visitor.Phone, message)
}

// NotifyGuardsOfApproval tells every guard at the property that a visitor
// is cleared for check-in.
func (s *NotificationService) NotifyGuardsOfApproval(ctx context.Context, visitor *models.Visitor, host *models.Resident) {
	title := "Visitor approved"
	message := fmt.Sprintf("%s approved for unit %s", visitor.Name, host.UnitNumber)

	s.notifyPropertyGuards(visitor, title, message, models.NotificationVisitorApproved)
}

// NotifyHostOfCheckIn tells the host their visitor has entered the property
func (s *NotificationService) NotifyHostOfCheckIn(ctx context.Context, visitor *models.Visitor, host *models.Resident) {
	title := "Visitor checked in"
	message := fmt.Sprintf("%s has checked in at the gate", visitor.Name)

	s.persist(&models.Notification{
		UserID:     host.UserID,
		PropertyID: visitor.PropertyID,
		Type:       models.NotificationVisitorCheckedIn,
		Title:      title,
		Message:    message,
		VisitorID:  &visitor.ID,
		Priority:   models.NotificationPriorityNormal,
	})

	s.sendWhatsAppWithSMSFallback(ctx, host.Phone, message)
}

// NotifyGuardsOfExitMark tells guards the host expects the visitor to be
// leaving, so the gate can watch for them.
func (s *NotificationService) NotifyGuardsOfExitMark(ctx context.Context, visitor *models.Visitor, host *models.Resident) {
	title := "Visitor leaving"
	message := fmt.Sprintf("%s (unit %s) has been marked as leaving", visitor.Name, host.UnitNumber)

	s.notifyPropertyGuards(visitor, title, message, models.NotificationVisitorExitMarked)
}

// notifyPropertyGuards persists one notification per guard at the
// visitor's property.
func (s *NotificationService) notifyPropertyGuards(visitor *models.Visitor, title, message string, notifType models.NotificationType) {
	guards, err := s.users.GetUsersByPropertyAndRole(visitor.PropertyID, models.RoleGuard)
	if err != nil {
		s.logger.WithError(err).WithField("property_id", visitor.PropertyID).
			Error("failed to load guards for notification fan-out")
		return
	}

	for _, guard := range guards {
		s.persist(&models.Notification{
			UserID:     guard.ID.String(),
			PropertyID: visitor.PropertyID,
			Type:       notifType,
			Title:      title,
			Message:    message,
			VisitorID:  &visitor.ID,
			Priority:   models.NotificationPriorityNormal,
		})
	}
}

// persist stores an in-app notification, logging on failure
func (s *NotificationService) persist(notification *models.Notification) {
	if err := s.notifications.Create(notification); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": notification.UserID,
			"type":    notification.Type,
		}).Error("failed to persist notification")
	}
}

// sendWhatsAppWithSMSFallback tries WhatsApp first and falls back to SMS.
// Both failures together are logged and swallowed.
func (s *NotificationService) sendWhatsAppWithSMSFallback(ctx context.Context, phone, message string) {
	if phone == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	waErr := s.gateway.SendWhatsApp(sendCtx, phone, message)
	if waErr == nil {
		return
	}

	s.logger.WithError(waErr).WithFields(logrus.Fields{
		"gateway": s.gateway.Name(),
		"phone":   phone,
	}).Warn("WhatsApp delivery failed, falling back to SMS")

	if smsErr := s.gateway.SendSMS(sendCtx, phone, message); smsErr != nil {
		s.logger.WithError(smsErr).WithFields(logrus.Fields{
			"gateway": s.gateway.Name(),
			"phone":   phone,
		}).Error("SMS delivery failed")
	}
}

// SendVisitorOTP sends a phone verification code to a visitor
func (s *NotificationService) SendVisitorOTP(ctx context.Context, phone, otpCode string) error {
	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	message := fmt.Sprintf("Your visitor verification code is %s. Valid for 5 minutes. Do not share this code.", otpCode)
	return s.gateway.SendSMS(sendCtx, phone, message)
}

// SendLoginOTP sends a login code to a registered user's phone
func (s *NotificationService) SendLoginOTP(ctx context.Context, phone, otpCode string) error {
	sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	message := fmt.Sprintf("Your login code is %s. Valid for 5 minutes. Do not share this code.", otpCode)
	return s.gateway.SendSMS(sendCtx, phone, message)
}
