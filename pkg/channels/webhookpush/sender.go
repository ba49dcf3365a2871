// Package webhookpush delivers push payloads by POSTing them to each
// subscription's endpoint through a push relay. Credentials are injected at
// construction; nothing here reads ambient environment.
package webhookpush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pumba68/qatering-sub001/pkg/models"
	"github.com/pumba68/qatering-sub001/pkg/protocol"
)

type Config struct {
	// AuthToken is sent as a bearer token to the relay, when set.
	AuthToken string
	Timeout   time.Duration
	// Attempts per subscription; client errors (4xx) are not retried.
	Attempts int
	Delay    time.Duration
}

type Sender struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

func NewSender(config Config, logger *slog.Logger) *Sender {
	if config.Attempts <= 0 {
		config.Attempts = 1
	}

	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Sender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

func (s *Sender) Send(ctx context.Context, subscriptions []models.PushSubscription, payload protocol.PushPayload) (protocol.PushResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return protocol.PushResult{}, fmt.Errorf("failed to marshal push payload: %w", err)
	}

	result := protocol.PushResult{}

	for _, subscription := range subscriptions {
		if err := s.deliver(ctx, subscription, body); err != nil {
			s.logger.WarnContext(ctx, "push delivery failed",
				"endpoint", subscription.Endpoint, "error", err)

			result.FailedCount++

			continue
		}

		result.SentCount++
	}

	return result, nil
}

// httpError marks a response the relay rejected; those are not retried.
type httpError struct {
	statusCode int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d", e.statusCode)
}

func (s *Sender) deliver(ctx context.Context, subscription models.PushSubscription, body []byte) error {
	var lastErr error

	for attempt := 1; attempt <= s.config.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.config.Delay):
			}
		}

		lastErr = s.post(ctx, subscription, body)
		if lastErr == nil {
			return nil
		}

		clientErr := &httpError{}
		if errors.As(lastErr, &clientErr) && clientErr.statusCode < http.StatusInternalServerError {
			return lastErr
		}
	}

	return lastErr
}

func (s *Sender) post(ctx context.Context, subscription models.PushSubscription, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscription.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Push-P256dh", subscription.P256dh)
	req.Header.Set("X-Push-Auth", subscription.Auth)

	if s.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &httpError{statusCode: resp.StatusCode}
	}

	return nil
}
