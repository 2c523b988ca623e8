package notify

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fundportal/contracts/mq"
	"fundportal/internal/model"
	"fundportal/internal/repository"
	"fundportal/internal/service/escalation"
	"fundportal/pkg/metrics"
	"fundportal/pkg/outbox"
	"fundportal/pkg/trace"
)

const routingKeyNotificationCreated = "notification.created"

// Dispatcher persists notifications and queues their delivery through
// the transactional outbox, so a notification row and its outbox event
// either both commit or neither does.
type Dispatcher struct {
	db            *pgxpool.Pool
	notifications *repository.NotificationRepository
	outboxRepo    *outbox.Repository
	logger        *zap.Logger
}

func NewDispatcher(db *pgxpool.Pool, notifications *repository.NotificationRepository, outboxRepo *outbox.Repository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		db:            db,
		notifications: notifications,
		outboxRepo:    outboxRepo,
		logger:        logger,
	}
}

var _ escalation.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) Notify(ctx context.Context, notice escalation.Notice) error {
	tx, err := d.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	n := &model.Notification{
		UserID:        notice.UserID,
		Kind:          notice.Kind,
		Title:         notice.Title,
		Message:       notice.Message,
		ReferenceID:   notice.ReferenceID,
		ReferenceType: notice.ReferenceType,
		PhoneNumber:   notice.PhoneNumber,
	}
	if err := d.notifications.InsertInTx(ctx, tx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	payload := mq.NotificationCreatedPayload{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Kind:           n.Kind,
		Title:          n.Title,
		Message:        n.Message,
		ReferenceID:    n.ReferenceID,
		ReferenceType:  n.ReferenceType,
		PhoneNumber:    n.PhoneNumber,
		TraceID:        trace.FromContext(ctx),
	}
	aggregateID := int64(n.ID)
	if err := outbox.InsertEventInTx(ctx, tx, d.outboxRepo, "notification", &aggregateID, routingKeyNotificationCreated, payload); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	metrics.NotificationsDispatched.WithLabelValues("queued").Inc()
	d.logger.Info("Notification queued",
		zap.Int("notification_id", n.ID),
		zap.Int("user_id", n.UserID),
		zap.String("type", n.Kind),
	)
	return nil
}
