package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// reference_id, reference_type and the WhatsApp columns are nullable but
// scanned into plain value fields; the listing must coalesce each one.
func TestNotificationListingCoalescesNullableColumns(t *testing.T) {
	for _, col := range []string{
		"COALESCE(reference_id, 0)",
		"COALESCE(reference_type, '')",
		"COALESCE(phone_number, '')",
		"COALESCE(whatsapp_status, '')",
		"COALESCE(whatsapp_message_id, '')",
	} {
		assert.Contains(t, notificationListColumns, col)
	}
}
