package messaging

import (
	"context"

	"github.com/sirupsen/logrus"
)

// DevGateway logs messages instead of delivering them. Used in development
// where no messaging credentials are configured.
type DevGateway struct {
	logger *logrus.Logger
}

// NewDevGateway creates a new development gateway
func NewDevGateway(logger *logrus.Logger) *DevGateway {
	return &DevGateway{logger: logger}
}

// SendSMS logs the SMS instead of sending it
func (d *DevGateway) SendSMS(ctx context.Context, phone, message string) error {
	d.logger.WithFields(logrus.Fields{
		"channel": "sms",
		"phone":   phone,
		"message": message,
	}).Info("dev gateway: message not delivered")
	return nil
}

// SendWhatsApp logs the WhatsApp message instead of sending it
func (d *DevGateway) SendWhatsApp(ctx context.Context, phone, message string) error {
	d.logger.WithFields(logrus.Fields{
		"channel": "whatsapp",
		"phone":   phone,
		"message": message,
	}).Info("dev gateway: message not delivered")
	return nil
}

// Name returns the gateway provider name
func (d *DevGateway) Name() string {
	return "Development Logging Gateway"
}
