package model

import "time"

// Notification kinds.
const (
	NotificationEscalation         = "escalation"
	NotificationCriticalEscalation = "critical_escalation"
)

// WhatsApp delivery statuses recorded by the notifier worker.
const (
	WhatsAppPending = "pending"
	WhatsAppSent    = "sent"
	WhatsAppFailed  = "failed"
)

type Notification struct {
	ID                int        `json:"id"`
	UserID            int        `json:"user_id"`
	Kind              string     `json:"type"`
	Title             string     `json:"title"`
	Message           string     `json:"message"`
	ReferenceID       int        `json:"reference_id"`
	ReferenceType     string     `json:"reference_type"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	IsRead            bool       `json:"is_read"`
	WhatsAppStatus    string     `json:"whatsapp_status,omitempty"`
	WhatsAppMessageID string     `json:"whatsapp_message_id,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
