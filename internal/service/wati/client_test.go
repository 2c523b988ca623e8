package wati

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fundportal/pkg/circuitbreaker"
	"fundportal/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.WatiConfig{
		APIURL: srv.URL,
		APIKey: "test-key",
	}, zap.NewNop())
	return c, srv
}

func TestSendTextMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody sessionMessageRequest

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"messageId": "msg-123"})
	})

	result, err := c.SendTextMessage(context.Background(), "+91 90000-00001", "Escalation Alert")
	require.NoError(t, err)

	assert.Equal(t, "msg-123", result.MessageID)
	assert.Equal(t, "/sendSessionMessage/919000000001", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "919000000001", gotBody.Phone)
	assert.Equal(t, "Escalation Alert", gotBody.Message)
}

func TestSendTextMessageFallsBackToID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "fallback-id"})
	})

	result, err := c.SendTextMessage(context.Background(), "919000000001", "hi")
	require.NoError(t, err)
	assert.Equal(t, "fallback-id", result.MessageID)
}

func TestSendTextMessageRejectsEmptyPhone(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected call")
	})

	_, err := c.SendTextMessage(context.Background(), "+- ", "hi")
	assert.Error(t, err)
}

func TestSendSurfacesProviderError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid api key"})
	})

	_, err := c.SendTextMessage(context.Background(), "919000000001", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestSendTemplateMessage(t *testing.T) {
	var gotBody templateMessageRequest

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sendTemplateMessages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]string{"messageId": "tpl-1"})
	})

	result, err := c.SendTemplateMessage(context.Background(), "91 9000000001", "escalation_alert",
		[]TemplateParameter{{Name: "project", Value: "KA-MYS-0042"}})
	require.NoError(t, err)

	assert.Equal(t, "tpl-1", result.MessageID)
	assert.Equal(t, "escalation_alert", gotBody.TemplateName)
	require.Len(t, gotBody.Receivers, 1)
	assert.Equal(t, "919000000001", gotBody.Receivers[0].WhatsAppNumber)
	require.Len(t, gotBody.Parameters, 1)
	assert.Equal(t, "project", gotBody.Parameters[0].Name)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		_, err := c.SendTextMessage(context.Background(), "919000000001", "hi")
		require.Error(t, err)
	}

	_, err := c.SendTextMessage(context.Background(), "919000000001", "hi")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitBreakerOpen)
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())
}

func TestUnconfiguredClientFailsFast(t *testing.T) {
	c := NewClient(config.WatiConfig{}, zap.NewNop())

	_, err := c.SendTextMessage(context.Background(), "919000000001", "hi")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "919000000001", formatPhone("+91 9000000001"))
	assert.Equal(t, "919000000001", formatPhone("91-90000-00001"))
	assert.Equal(t, "", formatPhone("abc"))
}
