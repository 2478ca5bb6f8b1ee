package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/internal/model"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

// Credentials identify the tenant phone number used for one send.
type Credentials struct {
	PhoneNumberID string
	AccessToken   string
}

// APIError is a non-2xx response from the Cloud API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Client talks to the WhatsApp Cloud API messages endpoint.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a Cloud API client. baseURL is the Graph API root
// (https://graph.facebook.com in production, an httptest server in tests).
func NewClient(baseURL, apiVersion string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// sendResponse is the Cloud API reply to a message send.
type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// templateLanguage is the language block of a template send.
type templateLanguage struct {
	Code string `json:"code"`
}

// templateParameter is one positional body substitution.
type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// templateComponent is one component block of a template send.
type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

// templatePayload is the template block of a template send.
type templatePayload struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

// SendText sends a plain text message and returns the WhatsApp message ID.
func (c *Client) SendText(ctx context.Context, creds Credentials, to, body string) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]interface{}{
			"body": body,
		},
	}
	return c.send(ctx, creds, payload)
}

// SendTemplate sends a pre-approved template message by name and returns the
// WhatsApp message ID. params fill the template body placeholders in order.
func (c *Client) SendTemplate(ctx context.Context, creds Credentials, to, name, language string, params []string) (string, error) {
	if language == "" {
		language = "en"
	}

	template := templatePayload{
		Name:     name,
		Language: templateLanguage{Code: language},
	}
	if len(params) > 0 {
		component := templateComponent{Type: "body"}
		for _, p := range params {
			component.Parameters = append(component.Parameters, templateParameter{Type: "text", Text: p})
		}
		template.Components = []templateComponent{component}
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template":          template,
	}
	return c.send(ctx, creds, payload)
}

// SendInteractive sends an interactive message (buttons or list). The
// interactive block is passed through as-is; its shape is validated upstream.
func (c *Client) SendInteractive(ctx context.Context, creds Credentials, to string, interactive json.RawMessage) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive":       interactive,
	}
	return c.send(ctx, creds, payload)
}

func (c *Client) send(ctx context.Context, creds Credentials, payload map[string]interface{}) (string, error) {
	if creds.PhoneNumberID == "" || creds.AccessToken == "" {
		return "", fmt.Errorf("%w: whatsapp credentials missing phone number ID or access token", apperrors.ErrUnconfigured)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, creds.PhoneNumberID)

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal send payload: %w", apperrors.ErrBadRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %w", apperrors.ErrExternalCall, err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.FromContext(ctx).Warn("WhatsApp API request failed",
			zap.String("phone_number_id", creds.PhoneNumberID),
			zap.Error(err))
		return "", fmt.Errorf("%w: %w", apperrors.ErrExternalCall, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		logger.FromContext(ctx).Warn("WhatsApp API rejected message",
			zap.String("phone_number_id", creds.PhoneNumberID),
			zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: %w", apperrors.ErrExternalCall, apiErr)
	}

	var decoded sendResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("%w: failed to decode send response: %w", apperrors.ErrExternalCall, err)
	}
	if len(decoded.Messages) == 0 || decoded.Messages[0].ID == "" {
		return "", fmt.Errorf("%w: send response contained no message ID", apperrors.ErrExternalCall)
	}
	return decoded.Messages[0].ID, nil
}

// ReceiptEntry is one status update inside an inbound webhook payload.
// PhoneNumberID identifies which registered number the receipt arrived on, so
// the receiver can resolve the tenant before applying it.
type ReceiptEntry struct {
	WaMessageID   string
	Status        string
	PhoneNumberID string
}

// ParseReceipts extracts message status updates from a webhook payload. Events
// that are not status updates (inbound messages, errors) are skipped; unknown
// statuses are dropped so the state machine never sees them.
func ParseReceipts(body []byte) ([]ReceiptEntry, error) {
	var payload struct {
		Entry []struct {
			Changes []struct {
				Value struct {
					Metadata struct {
						PhoneNumberID string `json:"phone_number_id"`
					} `json:"metadata"`
					Statuses []struct {
						ID     string `json:"id"`
						Status string `json:"status"`
					} `json:"statuses"`
				} `json:"value"`
			} `json:"changes"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload: %w", apperrors.ErrBadRequest, err)
	}

	var receipts []ReceiptEntry
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				switch status.Status {
				case model.MessageStatusSent, model.MessageStatusDelivered, model.MessageStatusRead, model.MessageStatusFailed:
					receipts = append(receipts, ReceiptEntry{
						WaMessageID:   status.ID,
						Status:        status.Status,
						PhoneNumberID: change.Value.Metadata.PhoneNumberID,
					})
				}
			}
		}
	}
	return receipts, nil
}
