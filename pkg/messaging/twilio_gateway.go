package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TwilioGateway implements message delivery via the Twilio Messages API
type TwilioGateway struct {
	apiURL       string
	accountSID   string
	authToken    string
	smsFrom      string
	whatsAppFrom string
	client       *http.Client
}

// TwilioConfig holds configuration for the Twilio gateway
type TwilioConfig struct {
	APIURL       string
	AccountSID   string
	AuthToken    string
	SMSFrom      string
	WhatsAppFrom string
}

// twilioMessageResponse is the subset of Twilio's response we care about
type twilioMessageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// NewTwilioGateway creates a new Twilio gateway client
func NewTwilioGateway(config TwilioConfig) *TwilioGateway {
	return &TwilioGateway{
		apiURL:       strings.TrimRight(config.APIURL, "/"),
		accountSID:   config.AccountSID,
		authToken:    config.AuthToken,
		smsFrom:      config.SMSFrom,
		whatsAppFrom: config.WhatsAppFrom,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendSMS sends a plain text SMS
func (t *TwilioGateway) SendSMS(ctx context.Context, phone, message string) error {
	return t.sendMessage(ctx, t.smsFrom, phone, message)
}

// SendWhatsApp sends a WhatsApp text message. Twilio addresses WhatsApp
// endpoints with a "whatsapp:" prefix on both sides.
func (t *TwilioGateway) SendWhatsApp(ctx context.Context, phone, message string) error {
	from := "whatsapp:" + t.whatsAppFrom
	to := "whatsapp:" + phone
	return t.sendMessage(ctx, from, to, message)
}

// Name returns the gateway provider name
func (t *TwilioGateway) Name() string {
	return "Twilio Messages API"
}

// sendMessage posts one message to the Twilio Messages endpoint
func (t *TwilioGateway) sendMessage(ctx context.Context, from, to, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.apiURL, t.accountSID)

	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create message request: %w", err)
	}

	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read message response: %w", err)
	}

	var msgResp twilioMessageResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return fmt.Errorf("failed to parse message response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msgResp.ErrorMessage != "" {
			return fmt.Errorf("message sending failed: %s (status %d)", msgResp.ErrorMessage, resp.StatusCode)
		}
		return fmt.Errorf("message sending failed with status %d", resp.StatusCode)
	}

	if msgResp.Status == "failed" || msgResp.Status == "undelivered" {
		return fmt.Errorf("message %s reported status %q", msgResp.SID, msgResp.Status)
	}

	return nil
}
