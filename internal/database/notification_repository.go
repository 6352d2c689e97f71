package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/visitor-gate-backend/internal/models"
)

// NotificationRepository handles database operations for the notifications table
type NotificationRepository struct {
	db DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, property_id, type, title, message, visitor_id,
	is_read, read_at, priority, expires_at, created_at
`

// Create inserts a notification row
func (r *NotificationRepository) Create(notification *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, property_id, type, title, message, visitor_id, priority, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.Priority == "" {
		notification.Priority = models.NotificationPriorityNormal
	}
	if notification.ExpiresAt.IsZero() {
		notification.ExpiresAt = time.Now().Add(models.NotificationRetention)
	}

	return r.db.QueryRow(
		query,
		notification.ID, notification.UserID, notification.PropertyID,
		notification.Type, notification.Title, notification.Message,
		notification.VisitorID, notification.Priority, notification.ExpiresAt,
	).Scan(&notification.CreatedAt)
}

// GetByUser lists a user's non-expired notifications, newest first
func (r *NotificationRepository) GetByUser(userID string, limit int) ([]models.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		  AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var visitorID sql.NullString
		var readAt sql.NullTime

		err := rows.Scan(
			&n.ID, &n.UserID, &n.PropertyID, &n.Type, &n.Title, &n.Message,
			&visitorID, &n.IsRead, &readAt, &n.Priority, &n.ExpiresAt, &n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if visitorID.Valid {
			n.VisitorID = &visitorID.String
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}

		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// CountUnread returns the number of unread, non-expired notifications
func (r *NotificationRepository) CountUnread(userID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1
		  AND is_read = FALSE
		  AND expires_at > NOW()
	`

	var count int
	err := r.db.QueryRow(query, userID).Scan(&count)
	return count, err
}

// MarkRead marks one notification as read. The user guard keeps one user
// from acknowledging another user's notifications.
func (r *NotificationRepository) MarkRead(notificationID, userID string) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1
		  AND user_id = $2
		  AND is_read = FALSE
	`

	result, err := r.db.Exec(query, notificationID, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAllRead marks all of a user's notifications as read
func (r *NotificationRepository) MarkAllRead(userID string) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE user_id = $1
		  AND is_read = FALSE
	`

	result, err := r.db.Exec(query, userID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// PurgeExpired removes notifications past their retention window
func (r *NotificationRepository) PurgeExpired() (int64, error) {
	query := `DELETE FROM notifications WHERE expires_at < NOW()`

	result, err := r.db.Exec(query)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
