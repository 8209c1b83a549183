package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"spines/internal/config"
)

const userAgent = "spines/0.1"

// Event names a notification kind.
type Event string

const (
	EventReviewNeeded      Event = "review_needed"
	EventOCRBatchCompleted Event = "ocr_batch_completed"
	EventJobFailed         Event = "job_failed"
	EventTest              Event = "test"
)

// Payload carries event fields. Keys depend on the event.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notifier backed by ntfy when a topic is configured.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	return &ntfyService{
		endpoint:     strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:       &http.Client{Timeout: cfg.NotificationTimeout()},
		reviewNeeded: cfg.Notifications.ReviewNeeded,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	reviewNeeded bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// format renders event. It reports false for suppressed events.
func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventReviewNeeded:
		if !n.reviewNeeded {
			return message{}, false
		}
		body := fmt.Sprintf("Needs review: %s", text(payload, "filename"))
		if reason := text(payload, "reason"); reason != "" {
			body += "\nReason: " + reason
		}
		return message{
			title: "spines - Review Needed",
			body:  body,
			tags:  []string{"spines", "review"},
		}, true
	case EventOCRBatchCompleted:
		processed := number(payload, "processed")
		if processed == 0 {
			return message{}, false
		}
		body := fmt.Sprintf("OCR batch: %d catalogued, %d failed of %d", number(payload, "completed"),
			number(payload, "failed")+number(payload, "missing")+number(payload, "errors"), processed)
		return message{
			title: "spines - OCR Batch Complete",
			body:  body,
			tags:  []string{"spines", "ocr", "completed"},
		}, true
	case EventJobFailed:
		return message{
			title:    "spines - Job Failed",
			body:     fmt.Sprintf("Job %s failed: %s", text(payload, "job"), text(payload, "error")),
			tags:     []string{"spines", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "spines - Test",
			body:     "Notification system test",
			tags:     []string{"spines", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func text(p Payload, key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func number(p Payload, key string) int {
	v, _ := p[key].(int)
	return v
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
