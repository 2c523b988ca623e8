package mq

import "time"

// NotificationCreatedPayload is emitted through the outbox whenever the
// engine records a notification. The notifier worker consumes it and
// performs the WhatsApp delivery.
type NotificationCreatedPayload struct {
	NotificationID int    `json:"notification_id"`
	UserID         int    `json:"user_id"`
	Kind           string `json:"kind"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	ReferenceID    int    `json:"reference_id"`
	ReferenceType  string `json:"reference_type"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	TraceID        string `json:"trace_id,omitempty"`
}

// NotificationSentPayload reports a successful WhatsApp delivery.
type NotificationSentPayload struct {
	NotificationID int       `json:"notification_id"`
	UserID         int       `json:"user_id"`
	MessageID      string    `json:"message_id,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

// NotificationFailedPayload reports a failed WhatsApp delivery.
type NotificationFailedPayload struct {
	NotificationID int    `json:"notification_id"`
	UserID         int    `json:"user_id"`
	Error          string `json:"error"`
	RetryCount     int    `json:"retry_count"`
}
