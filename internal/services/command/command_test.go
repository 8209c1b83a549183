package command_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spines/internal/services"
	"spines/internal/services/command"
)

func TestSystemOutputCapturesStdout(t *testing.T) {
	out, err := command.System{}.Output(context.Background(), "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("Output returned error: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSystemOutputTagsExitFailures(t *testing.T) {
	_, err := command.System{}.Output(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestSystemOutputMissingBinary(t *testing.T) {
	_, err := command.System{}.Output(context.Background(), "spines-no-such-binary")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSystemOutputTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := command.System{}.Output(ctx, "sleep", "2")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	if got := command.Describe("pdftotext", "-f", "1", "a.pdf"); got != "pdftotext -f 1 a.pdf" {
		t.Fatalf("unexpected description %q", got)
	}
}
