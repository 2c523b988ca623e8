package delivery

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "fundportal/contracts/mq"
	"fundportal/internal/model"
	"fundportal/internal/repository"
	"fundportal/internal/service/wati"
	"fundportal/pkg/metrics"
	"fundportal/pkg/outbox"
)

// Sender performs the WhatsApp delivery for a queued notification and
// writes the outcome back to the notification row. Delivery results are
// also published as outbox events so other services can follow them.
type Sender struct {
	db         *pgxpool.Pool
	repo       *repository.NotificationRepository
	wati       *wati.Client
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewSender(
	db *pgxpool.Pool,
	repo *repository.NotificationRepository,
	watiClient *wati.Client,
	logger *zap.Logger,
) *Sender {
	return &Sender{
		db:         db,
		repo:       repo,
		wati:       watiClient,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

// Deliver sends the notification over WhatsApp. A notification without
// a phone number is in-app only and needs no delivery.
func (s *Sender) Deliver(ctx context.Context, p mqcontracts.NotificationCreatedPayload) error {
	if p.PhoneNumber == "" {
		s.logger.Info("Notification has no phone number, in-app only",
			zap.Int("notification_id", p.NotificationID),
		)
		return nil
	}

	message := p.Title + "\n\n" + p.Message
	result, sendErr := s.wati.SendTextMessage(ctx, p.PhoneNumber, message)
	if sendErr != nil {
		s.logger.Error("Failed to deliver WhatsApp notification",
			zap.Int("notification_id", p.NotificationID),
			zap.Error(sendErr),
		)
		metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		if err := s.recordFailure(ctx, p, sendErr); err != nil {
			return err
		}
		return sendErr
	}

	metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
	return s.recordSuccess(ctx, p, result.MessageID)
}

func (s *Sender) recordSuccess(ctx context.Context, p mqcontracts.NotificationCreatedPayload, messageID string) error {
	sentAt := time.Now()
	if err := s.repo.MarkWhatsAppStatus(ctx, p.NotificationID, model.WhatsAppSent, messageID, &sentAt); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	payload := mqcontracts.NotificationSentPayload{
		NotificationID: p.NotificationID,
		UserID:         p.UserID,
		MessageID:      messageID,
		SentAt:         sentAt,
	}
	notiID := int64(p.NotificationID)
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "notification", &notiID, "notification.sent", payload); err != nil {
		s.logger.Error("Failed to insert notification.sent to outbox", zap.Error(err))
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.logger.Info("WhatsApp notification delivered",
		zap.Int("notification_id", p.NotificationID),
		zap.String("message_id", messageID),
	)
	return nil
}

func (s *Sender) recordFailure(ctx context.Context, p mqcontracts.NotificationCreatedPayload, sendErr error) error {
	if err := s.repo.MarkWhatsAppStatus(ctx, p.NotificationID, model.WhatsAppFailed, "", nil); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	payload := mqcontracts.NotificationFailedPayload{
		NotificationID: p.NotificationID,
		UserID:         p.UserID,
		Error:          sendErr.Error(),
	}
	notiID := int64(p.NotificationID)
	if err := outbox.InsertEventInTx(ctx, tx, s.outboxRepo, "notification", &notiID, "notification.failed", payload); err != nil {
		s.logger.Error("Failed to insert notification.failed to outbox", zap.Error(err))
		return err
	}
	return tx.Commit(ctx)
}
