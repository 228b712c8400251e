// Package notify delivers in-app notification payloads to an external
// transport. Payloads are fully resolved; the sink never looks anything up.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Message is one outbound notification with recipient context embedded.
type Message struct {
	TenantID    string `json:"tenant_id"`
	RecipientID string `json:"recipient_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	EntityType  string `json:"entity_type,omitempty"`
	EntityID    string `json:"entity_id,omitempty"`
}

// Sink accepts a message and may fail; the caller owns retries.
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
}

// WebhookSink posts messages to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func NewWebhookSink(url string, timeout time.Duration, logger zerolog.Logger) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

func (s *WebhookSink) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// LogSink logs notifications instead of delivering them. Used when the
// transport is disabled.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "notify").Logger()}
}

func (s *LogSink) Deliver(_ context.Context, msg Message) error {
	s.logger.Info().
		Str("tenant_id", msg.TenantID).
		Str("recipient_id", msg.RecipientID).
		Str("title", msg.Title).
		Msg("notification transport disabled, skipping delivery")
	return nil
}

// MemorySink records delivered messages for tests.
type MemorySink struct {
	mu       sync.Mutex
	messages []Message
	fail     error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes subsequent deliveries return err until cleared with nil.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *MemorySink) Deliver(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *MemorySink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
