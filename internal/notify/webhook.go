package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

var errCircuitOpen = errors.New("circuit_open")

type WebhookConfig struct {
	URL     string
	Secret  string
	Timeout time.Duration

	FailureThreshold    int
	CircuitOpenDuration time.Duration
}

// WebhookSink POSTs each envelope as JSON. With a secret set, the body is signed with
// HMAC-SHA256 in X-Pool-Signature. After FailureThreshold consecutive failures the sink
// fails fast for CircuitOpenDuration, leaving the dispatcher's retries to carry the event.
type WebhookSink struct {
	cfg    WebhookConfig
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

func NewWebhookSink(cfg WebhookConfig) *WebhookSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	return &WebhookSink{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, env Envelope) error {
	if err := s.beforeSend(); err != nil {
		metricDropped.WithLabelValues(s.Name(), "circuit_open").Inc()
		return err
	}
	if err := s.post(ctx, env); err != nil {
		s.afterFailure()
		return err
	}
	s.afterSuccess()
	return nil
}

func (s *WebhookSink) post(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pool-Event", string(env.Event))
	req.Header.Set("X-Pool-Event-Id", env.EventID)
	if s.cfg.Secret != "" {
		req.Header.Set("X-Pool-Signature", Sign(s.cfg.Secret, raw))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret, prefixed with "sha256=".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (s *WebhookSink) beforeSend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.openUntil.IsZero() && s.now().Before(s.openUntil) {
		return errCircuitOpen
	}
	return nil
}

func (s *WebhookSink) afterFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	if s.failures >= s.cfg.FailureThreshold {
		s.openUntil = s.now().Add(s.cfg.CircuitOpenDuration)
		s.failures = 0
	}
}

func (s *WebhookSink) afterSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
	s.openUntil = time.Time{}
}
