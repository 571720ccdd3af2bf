package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/cenkalti/backoff/v5"
)

const (
	SignatureHeader = "X-Signature"
	EventIDHeader   = "X-Event-Id"
	EventTypeHeader = "X-Event-Type"
)

// WebhookPayload is the JSON body posted for each event.
type WebhookPayload struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	SessionID  string         `json:"session_id"`
	ProjectID  string         `json:"project_id,omitempty"`
	Recipients []string       `json:"recipients,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// WebhookPublisher POSTs events to a URL, signing the raw body with
// HMAC-SHA256 in the X-Signature header.
type WebhookPublisher struct {
	url      string
	secret   string
	client   *http.Client
	maxTries uint
}

type WebhookOption func(*WebhookPublisher)

func WithHTTPClient(c *http.Client) WebhookOption {
	return func(p *WebhookPublisher) { p.client = c }
}

func WithMaxTries(n uint) WebhookOption {
	return func(p *WebhookPublisher) { p.maxTries = n }
}

func NewWebhookPublisher(url, secret string, opts ...WebhookOption) (*WebhookPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("webhook url is empty")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("webhook secret is empty")
	}
	p := &WebhookPublisher{
		url:      url,
		secret:   secret,
		client:   &http.Client{Timeout: 5 * time.Second},
		maxTries: 3,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *WebhookPublisher) Publish(ctx context.Context, e domain.Event) error {
	body, err := json.Marshal(WebhookPayload{
		ID:         e.ID,
		Type:       string(e.Type),
		SessionID:  e.SessionID,
		ProjectID:  e.ProjectID,
		Recipients: e.Recipients,
		Data:       e.Data,
		OccurredAt: e.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}
	signature := Sign(p.secret, body)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.post(ctx, e, body, signature)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.maxTries))
	if err != nil {
		return fmt.Errorf("delivering %s webhook: %w", e.Type, err)
	}
	return nil
}

func (p *WebhookPublisher) post(ctx context.Context, e domain.Event, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("building webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(EventIDHeader, e.ID)
	req.Header.Set(EventTypeHeader, string(e.Type))

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook endpoint returned %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("webhook endpoint returned %d", resp.StatusCode))
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a hex signature against body in constant time.
func Verify(secret string, body []byte, signatureHex string) bool {
	provided, err := hex.DecodeString(strings.TrimSpace(signatureHex))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
