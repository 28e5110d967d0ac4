package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types.
const (
	EventExtractCompleted = "extract.completed"
	EventExtractFailed    = "extract.failed"
)

// SignatureHeader carries "sha256=<hex>" when a secret is configured.
const SignatureHeader = "X-Blockcrawl-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, jobID string, data any) *Event {
	return &Event{Type: eventType, JobID: jobID, Timestamp: time.Now().Unix(), Data: data}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Sender delivers events over HTTP.
type Sender struct {
	Client *http.Client

	// Delays is the wait before each delivery attempt; its length is the
	// attempt count.
	Delays []time.Duration
}

// NewSender returns a Sender that tries four times: immediately, then after
// 1s, 5s and 30s.
func NewSender() *Sender {
	return &Sender{
		Client: &http.Client{Timeout: 10 * time.Second},
		Delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver sends event once. Any status >= 400 is a failure.
func (s *Sender) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Blockcrawl-Webhook/1.0")
	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync retries Deliver in the background following s.Delays. The
// returned channel receives the final outcome and is then closed.
func (s *Sender) DeliverAsync(url, secret string, event *Event) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		var err error
		for attempt, delay := range s.Delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = s.Deliver(ctx, url, secret, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", url,
					"event", event.Type,
					"job_id", event.JobID,
					"attempt", attempt+1,
				)
				done <- nil
				return
			}
			slog.Warn("webhook delivery failed",
				"url", url,
				"event", event.Type,
				"job_id", event.JobID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", url,
			"event", event.Type,
			"job_id", event.JobID,
		)
		done <- err
	}()
	return done
}
