// Package notify delivers outbound messages to end users.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var ErrDeliveryRejected = errors.New("delivery rejected by endpoint")

// Sender pushes a message to a single user.
type Sender interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendImage(ctx context.Context, userID int64, imageRef, caption string) error
}

type deliveryRequest struct {
	UserID   int64  `json:"user_id"`
	Text     string `json:"text,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker
	MaxFailures uint32
	OpenFor     time.Duration
}

// WebhookSender posts messages as JSON to a delivery endpoint, guarded by a
// circuit breaker so that a dead endpoint fails fast.
type WebhookSender struct {
	url     string
	timeout time.Duration
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[struct{}]
	log     *zap.Logger
}

func NewWebhookSender(cfg WebhookConfig, log *zap.Logger) *WebhookSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        "delivery-webhook",
		MaxRequests: 1,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &WebhookSender{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		cb:      gobreaker.NewCircuitBreaker[struct{}](settings),
		log:     log,
	}
}

func (s *WebhookSender) SendText(ctx context.Context, userID int64, text string) error {
	return s.deliver(ctx, deliveryRequest{UserID: userID, Text: text})
}

func (s *WebhookSender) SendImage(ctx context.Context, userID int64, imageRef, caption string) error {
	return s.deliver(ctx, deliveryRequest{UserID: userID, ImageRef: imageRef, Caption: TruncateCaption(caption)})
}

func (s *WebhookSender) deliver(ctx context.Context, req deliveryRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}

	_, err = s.cb.Execute(func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(httpReq)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= http.StatusMultipleChoices {
			return struct{}{}, fmt.Errorf("%w: status %d", ErrDeliveryRejected, resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("deliver to user %d: %w", req.UserID, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used when
// no delivery endpoint is configured.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) SendText(_ context.Context, userID int64, text string) error {
	s.log.Info("outbound text", zap.Int64("user_id", userID), zap.String("text", text))
	return nil
}

func (s *LogSender) SendImage(_ context.Context, userID int64, imageRef, caption string) error {
	s.log.Info("outbound image", zap.Int64("user_id", userID), zap.String("image_ref", imageRef), zap.String("caption", caption))
	return nil
}
