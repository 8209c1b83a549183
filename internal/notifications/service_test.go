package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"spines/internal/config"
	"spines/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "review needed",
			event:         notifications.EventReviewNeeded,
			payload:       notifications.Payload{"filename": "notes.pdf", "reason": "moderate_confidence_0.55_no_isbn"},
			expectTitle:   "spines - Review Needed",
			expectMessage: "Needs review: notes.pdf\nReason: moderate_confidence_0.55_no_isbn",
			expectTags:    "spines,review",
		},
		{
			name:          "ocr batch",
			event:         notifications.EventOCRBatchCompleted,
			payload:       notifications.Payload{"processed": 4, "completed": 2, "failed": 1, "missing": 1},
			expectTitle:   "spines - OCR Batch Complete",
			expectMessage: "OCR batch: 2 catalogued, 2 failed of 4",
			expectTags:    "spines,ocr,completed",
		},
		{
			name:           "job failed",
			event:          notifications.EventJobFailed,
			payload:        notifications.Payload{"job": "temp_cleanup", "error": "permission denied"},
			expectTitle:    "spines - Job Failed",
			expectMessage:  "Job temp_cleanup failed: permission denied",
			expectTags:     "spines,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeoutSeconds = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceIgnoresSuppressedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ReviewNeeded = false

	svc := notifications.NewService(&cfg)
	suppressed := map[notifications.Event]notifications.Payload{
		notifications.EventReviewNeeded:      {"filename": "x.pdf"},
		notifications.EventOCRBatchCompleted: {"processed": 0},
		notifications.Event("unknown"):       nil,
	}
	for event, payload := range suppressed {
		if err := svc.Publish(context.Background(), event, payload); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic locked", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
