package services

import (
	"fmt"
	"time"

	"github.com/gatepass/visitor-gate-backend/internal/database"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// MaxOTPRequestsPerPhone is the maximum OTP requests per phone in the window
	MaxOTPRequestsPerPhone int

	// PhoneWindowDuration is the rate limiting window for phone numbers
	PhoneWindowDuration time.Duration

	// MaxOTPRequestsPerIP is the maximum OTP requests per IP in the window
	MaxOTPRequestsPerIP int

	// IPWindowDuration is the rate limiting window for IP addresses
	IPWindowDuration time.Duration
}

// DefaultRateLimitConfig returns the default rate limiting configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxOTPRequestsPerPhone: 3,
		PhoneWindowDuration:    10 * time.Minute,
		MaxOTPRequestsPerIP:    10,
		IPWindowDuration:       1 * time.Hour,
	}
}

// RateLimitError represents a rate limit violation
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
	Type       string // "phone" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// RateLimitService handles rate limiting for OTP requests
type RateLimitService struct {
	db     database.DB
	config RateLimitConfig
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		db:     db,
		config: config,
	}
}

// CheckOTPRateLimit checks whether an OTP request is allowed for the given
// phone and IP. Returns a RateLimitError when either limit is exceeded.
func (s *RateLimitService) CheckOTPRateLimit(phone, ipAddress string) error {
	if err := s.checkLimit(phone, "phone", s.config.MaxOTPRequestsPerPhone, s.config.PhoneWindowDuration); err != nil {
		return err
	}

	if ipAddress != "" {
		if err := s.checkLimit(ipAddress, "ip", s.config.MaxOTPRequestsPerIP, s.config.IPWindowDuration); err != nil {
			return err
		}
	}

	return nil
}

// RecordOTPRequest records an OTP request for both the phone and IP counters
func (s *RateLimitService) RecordOTPRequest(phone, ipAddress string) error {
	if err := s.recordRequest(phone, "phone", s.config.PhoneWindowDuration); err != nil {
		return fmt.Errorf("failed to record phone request: %w", err)
	}

	if ipAddress != "" {
		if err := s.recordRequest(ipAddress, "ip", s.config.IPWindowDuration); err != nil {
			return fmt.Errorf("failed to record IP request: %w", err)
		}
	}

	return nil
}

// checkLimit checks the counter for one identifier within its window
func (s *RateLimitService) checkLimit(identifier, identifierType string, maxRequests int, window time.Duration) error {
	query := `
		SELECT request_count, window_start
		FROM otp_rate_limits
		WHERE identifier = $1 AND identifier_type = $2 AND window_start > $3
	`

	windowStart := time.Now().Add(-window)

	var requestCount int
	var recordWindowStart time.Time

	err := s.db.QueryRow(query, identifier, identifierType, windowStart).Scan(&requestCount, &recordWindowStart)
	if err != nil {
		// No record within the window means the request is allowed
		return nil
	}

	if requestCount >= maxRequests {
		retryAfter := time.Until(recordWindowStart.Add(window))
		if retryAfter < 0 {
			retryAfter = 0
		}

		return &RateLimitError{
			Message:    fmt.Sprintf("too many OTP requests, try again in %s", formatRetryAfter(retryAfter)),
			RetryAfter: retryAfter,
			Type:       identifierType,
		}
	}

	return nil
}

// recordRequest upserts the counter row for one identifier. Rows whose
// window has lapsed are reset rather than incremented.
func (s *RateLimitService) recordRequest(identifier, identifierType string, window time.Duration) error {
	windowStart := time.Now().Add(-window)

	query := `
		INSERT INTO otp_rate_limits (identifier, identifier_type, request_count, window_start, expires_at)
		VALUES ($1, $2, 1, NOW(), NOW() + $3::interval)
		ON CONFLICT (identifier, identifier_type)
		DO UPDATE SET
			request_count = CASE
				WHEN otp_rate_limits.window_start > $4 THEN otp_rate_limits.request_count + 1
				ELSE 1
			END,
			window_start = CASE
				WHEN otp_rate_limits.window_start > $4 THEN otp_rate_limits.window_start
				ELSE NOW()
			END,
			expires_at = NOW() + $3::interval
	`

	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))

	_, err := s.db.Exec(query, identifier, identifierType, interval, windowStart)
	if err != nil {
		return fmt.Errorf("failed to record rate limit request: %w", err)
	}

	return nil
}

// CleanupExpiredRateLimits removes rate limit records past their expiry
func (s *RateLimitService) CleanupExpiredRateLimits() (int64, error) {
	query := `DELETE FROM otp_rate_limits WHERE expires_at < NOW()`

	result, err := s.db.Exec(query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limits: %w", err)
	}

	return result.RowsAffected()
}

// formatRetryAfter formats a retry-after duration for error messages
func formatRetryAfter(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds())+1)
	}
	return fmt.Sprintf("%d minutes", int(d.Minutes())+1)
}
