// Package email sends fully-resolved messages through the Resend API. The
// payload carries everything needed for delivery; no lookups happen here.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/sponsorhub/server/internal/config"
)

// Message is one outbound email with recipient context embedded.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender is the transport contract job workers depend on.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Service sends email via Resend. With email disabled it logs and reports
// success so the rest of the pipeline behaves identically in development.
type Service struct {
	config config.EmailConfig
	client *resend.Client
	logger zerolog.Logger
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) *Service {
	s := &Service{
		config: cfg,
		logger: logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	}
	return s
}

func (s *Service) Send(ctx context.Context, msg Message) error {
	if err := validateEmailAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("email subject is required")
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("email service disabled, skipping send")
		return nil
	}

	return s.sendViaResend(ctx, msg)
}

// sendViaResend sends an email using the Resend API. Rate limit errors are
// reported without retrying here; the job dispatcher owns the backoff.
func (s *Service) sendViaResend(ctx context.Context, msg Message) error {
	if s.client == nil {
		return fmt.Errorf("resend client not initialized")
	}

	params := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			s.logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("remaining", rateLimitErr.Remaining).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("email rate limit exceeded (limit: %s, resets in: %s seconds): %w",
				rateLimitErr.Limit, rateLimitErr.Reset, err)
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().
		Str("email_id", sent.Id).
		Str("to", msg.To).
		Msg("email sent via Resend")
	return nil
}

// validateEmailAddress validates format and rejects header injection attempts.
func validateEmailAddress(address string) error {
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
