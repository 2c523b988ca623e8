package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/internal/model"
)

// The listing scans nullable columns into plain value fields, so every
// nullable column except the timestamp is coalesced.
const notificationListColumns = `id, user_id, type, title, message,
       COALESCE(reference_id, 0), COALESCE(reference_type, ''),
       COALESCE(phone_number, ''), is_read,
       COALESCE(whatsapp_status, ''), COALESCE(whatsapp_message_id, ''), sent_at, created_at`

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// InsertInTx writes the in-app notification row inside the caller's
// transaction, so the row and its outbox event commit together.
func (r *NotificationRepository) InsertInTx(ctx context.Context, tx pgx.Tx, n *model.Notification) error {
	query := `
        INSERT INTO notifications (user_id, type, title, message, reference_id, reference_type, phone_number)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	return tx.QueryRow(ctx, query,
		n.UserID,
		n.Kind,
		n.Title,
		n.Message,
		n.ReferenceID,
		n.ReferenceType,
		n.PhoneNumber,
	).Scan(&n.ID, &n.CreatedAt)
}

// MarkWhatsAppStatus records the delivery outcome reported by the
// notifier worker.
func (r *NotificationRepository) MarkWhatsAppStatus(ctx context.Context, notificationID int, status, messageID string, sentAt *time.Time) error {
	query := `
        UPDATE notifications
        SET whatsapp_status = $2, whatsapp_message_id = $3, sent_at = $4
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, notificationID, status, messageID, sentAt)
	if err != nil {
		r.logger.Error("Failed to update WhatsApp status",
			zap.Int("notification_id", notificationID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
	return err
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT ` + notificationListColumns + `
        FROM notifications
        WHERE user_id = $1
          AND ($2 = FALSE OR is_read = FALSE)
        ORDER BY created_at DESC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Kind,
			&n.Title,
			&n.Message,
			&n.ReferenceID,
			&n.ReferenceType,
			&n.PhoneNumber,
			&n.IsRead,
			&n.WhatsAppStatus,
			&n.WhatsAppMessageID,
			&n.SentAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkAsRead marks a notification read.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, notificationID int) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1`
	_, err := r.db.Exec(ctx, query, notificationID)
	return err
}
