// Package messaging provides SMS and WhatsApp delivery gateways for
// visitor workflow notifications.
package messaging

import "context"

// Gateway is the interface implemented by message delivery providers
type Gateway interface {
	// SendSMS sends a plain text SMS to the given phone number
	SendSMS(ctx context.Context, phone, message string) error

	// SendWhatsApp sends a WhatsApp text message to the given phone number
	SendWhatsApp(ctx context.Context, phone, message string) error

	// Name returns the gateway provider name for logging
	Name() string
}
