package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	mqcontracts "fundportal/contracts/mq"
	"fundportal/internal/service/delivery"
	"fundportal/pkg/mq"
	"fundportal/pkg/trace"
)

const (
	routingKeyNotificationCreated = "notification.created"
	maxDeliveryAttempts           = 5
	retryCounterTTL               = 24 * time.Hour
)

// NotificationCreatedHandler consumes notification.created events and
// drives the WhatsApp delivery. Delivery failures are retried by
// requeueing; after maxDeliveryAttempts the message goes to the DLQ.
type NotificationCreatedHandler struct {
	sender    *delivery.Sender
	publisher *mq.Publisher
	rdb       *redis.Client
	logger    *zap.Logger
}

func NewNotificationCreatedHandler(
	sender *delivery.Sender,
	publisher *mq.Publisher,
	rdb *redis.Client,
	logger *zap.Logger,
) *NotificationCreatedHandler {
	return &NotificationCreatedHandler{
		sender:    sender,
		publisher: publisher,
		rdb:       rdb,
		logger:    logger,
	}
}

func (h *NotificationCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal NotificationCreatedPayload", zap.Error(err))
		// Poison message, requeueing cannot fix it.
		return h.deadLetter(raw, err)
	}

	if p.TraceID != "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}

	h.logger.Info("Handling notification.created event",
		zap.Int("notification_id", p.NotificationID),
		zap.Int("user_id", p.UserID),
		zap.String("type", p.Kind),
		zap.String("trace_id", p.TraceID),
	)

	if err := h.sender.Deliver(ctx, p); err != nil {
		attempts := h.countAttempt(ctx, p.NotificationID)
		if attempts >= maxDeliveryAttempts {
			h.logger.Error("Delivery attempts exhausted, dead-lettering",
				zap.Int("notification_id", p.NotificationID),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			return h.deadLetter(raw, err)
		}
		return err
	}

	return nil
}

// countAttempt increments the per-notification retry counter in Redis.
// A Redis outage fails open to attempt 1, so the message keeps getting
// requeued rather than dead-lettered on a counter glitch.
func (h *NotificationCreatedHandler) countAttempt(ctx context.Context, notificationID int) int {
	key := fmt.Sprintf("notify:attempts:%d", notificationID)
	attempts, err := h.rdb.Incr(ctx, key).Result()
	if err != nil {
		h.logger.Warn("Failed to count delivery attempt, assuming first",
			zap.Int("notification_id", notificationID),
			zap.Error(err),
		)
		return 1
	}
	h.rdb.Expire(ctx, key, retryCounterTTL)
	return int(attempts)
}

// deadLetter parks the raw message on the DLQ and acks it.
func (h *NotificationCreatedHandler) deadLetter(raw json.RawMessage, cause error) error {
	if err := h.publisher.PublishToDLQ(routingKeyNotificationCreated, raw, cause.Error()); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
		return err
	}
	return nil
}
