package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"spines/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extraction", "ebook-meta", "failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extraction", "ebook-meta", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"timeout", services.Wrap(services.ErrTimeout, "enrichment", "lookup", "", nil), true},
		{"transient", services.Wrap(services.ErrTransient, "enrichment", "lookup", "", nil), true},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"not found", services.Wrap(services.ErrNotFound, "enrichment", "lookup", "", nil), false},
		{"validation", services.Wrap(services.ErrValidation, "enrichment", "lookup", "", nil), false},
		{"canceled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Retryable(tt.err); got != tt.want {
				t.Fatalf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureReason(t *testing.T) {
	if got := services.FailureReason(services.Wrap(services.ErrExternalTool, "x", "y", "", nil)); got != "external_tool_failed" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := services.FailureReason(errors.New("disk full")); got != "processing_failed" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := services.FailureReason(nil); got != "" {
		t.Fatalf("expected empty reason, got %q", got)
	}
}
