package models

import "time"

// NotificationType enumerates in-app notification event types
type NotificationType string

const (
	NotificationVisitorRequest    NotificationType = "visitor_request"
	NotificationVisitorApproved   NotificationType = "visitor_approved"
	NotificationVisitorRejected   NotificationType = "visitor_rejected"
	NotificationVisitorCheckedIn  NotificationType = "visitor_checked_in"
	NotificationVisitorExitMarked NotificationType = "visitor_exit_marked"
	NotificationVisitorAtGate     NotificationType = "visitor_at_gate"
	NotificationSystem            NotificationType = "system"
)

// NotificationPriority indicates urgency in the client UI
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// NotificationRetention is how long notifications are kept before the
// purge job removes them
const NotificationRetention = 30 * 24 * time.Hour

// Notification represents one in-app notification row per (user, event)
type Notification struct {
	ID         string               `json:"id" db:"id"`
	UserID     string               `json:"user_id" db:"user_id"`
	PropertyID string               `json:"property_id" db:"property_id"`
	Type       NotificationType     `json:"type" db:"type"`
	Title      string               `json:"title" db:"title"`
	Message    string               `json:"message" db:"message"`
	VisitorID  *string              `json:"visitor_id,omitempty" db:"visitor_id"`
	IsRead     bool                 `json:"is_read" db:"is_read"`
	ReadAt     *time.Time           `json:"read_at,omitempty" db:"read_at"`
	Priority   NotificationPriority `json:"priority" db:"priority"`
	ExpiresAt  time.Time            `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time            `json:"created_at" db:"created_at"`
}

// MarkRead marks the notification as read
func (n *Notification) MarkRead() {
	if n.IsRead {
		return
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
}

// IsExpired checks if the notification has passed its retention window
func (n *Notification) IsExpired() bool {
	return time.Now().After(n.ExpiresAt)
}
