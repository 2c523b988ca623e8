package wati

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fundportal/pkg/circuitbreaker"
	"fundportal/pkg/config"
	"fundportal/pkg/metrics"
)

var ErrNotConfigured = errors.New("wati: api url or key not configured")

// Client talks to the WATI WhatsApp API. Calls go through a circuit
// breaker so a broken provider fails fast instead of piling up.
type Client struct {
	apiURL  string
	apiKey  string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewClient(cfg config.WatiConfig, logger *zap.Logger) *Client {
	return &Client{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey: cfg.APIKey,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

// SendResult is the provider's answer to a send call.
type SendResult struct {
	MessageID string
}

type sessionMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type templateMessageRequest struct {
	TemplateName  string              `json:"template_name"`
	BroadcastName string              `json:"broadcast_name"`
	Parameters    []TemplateParameter `json:"parameters"`
	Receivers     []receiver          `json:"receivers"`
}

type TemplateParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type receiver struct {
	WhatsAppNumber string `json:"whatsappNumber"`
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	ID        string `json:"id"`
	Message   string `json:"message"`
}

// SendTextMessage sends a plain session message to a WhatsApp number.
func (c *Client) SendTextMessage(ctx context.Context, phoneNumber, message string) (*SendResult, error) {
	phone := formatPhone(phoneNumber)
	if phone == "" {
		return nil, fmt.Errorf("wati: invalid phone number %q", phoneNumber)
	}

	body := sessionMessageRequest{
		Phone:   phone,
		Message: message,
	}
	return c.send(ctx, "sendSessionMessage", fmt.Sprintf("%s/sendSessionMessage/%s", c.apiURL, phone), body)
}

// SendTemplateMessage sends a pre-approved template message.
func (c *Client) SendTemplateMessage(ctx context.Context, phoneNumber, templateName string, parameters []TemplateParameter) (*SendResult, error) {
	phone := formatPhone(phoneNumber)
	if phone == "" {
		return nil, fmt.Errorf("wati: invalid phone number %q", phoneNumber)
	}

	body := templateMessageRequest{
		TemplateName:  templateName,
		BroadcastName: fmt.Sprintf("notification_%d", time.Now().UnixMilli()),
		Parameters:    parameters,
		Receivers:     []receiver{{WhatsAppNumber: phone}},
	}
	return c.send(ctx, "sendTemplateMessages", c.apiURL+"/sendTemplateMessages", body)
}

func (c *Client) send(ctx context.Context, endpoint, url string, body interface{}) (*SendResult, error) {
	if c.apiURL == "" || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	var result *SendResult
	start := time.Now()
	err := c.breaker.Execute(func() error {
		resp, err := c.doPost(ctx, url, body)
		if err != nil {
			return err
		}
		result = resp
		return nil
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordWhatsAppCall(endpoint, status, time.Since(start))

	if err != nil {
		c.logger.Warn("WhatsApp send failed",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (c *Client) doPost(ctx context.Context, url string, body interface{}) (*SendResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr sendResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("wati: %s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("wati: unexpected status %d", resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("wati: decode response: %w", err)
	}

	messageID := parsed.MessageID
	if messageID == "" {
		messageID = parsed.ID
	}
	return &SendResult{MessageID: messageID}, nil
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}

// formatPhone strips everything but digits, matching what the provider
// expects as a whatsappNumber.
func formatPhone(phoneNumber string) string {
	var b strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
