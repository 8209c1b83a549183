// Package command runs external binaries behind an interface that tests can
// replace with canned output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"spines/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args ...string) ([]byte, error)
}

// System executes binaries on the host.
type System struct{}

// stderrLimit bounds how much stderr text is carried into error messages.
const stderrLimit = 512

// Output runs binary with args and returns stdout. Non-zero exits are tagged
// ErrExternalTool, context deadlines ErrTimeout.
func (System) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return stdout.Bytes(), services.Wrap(services.ErrTimeout, binary, "run", "deadline exceeded", ctxErr)
		}
		return stdout.Bytes(), ctxErr
	}
	var notFound *exec.Error
	if errors.As(err, &notFound) {
		return nil, services.Wrap(services.ErrConfiguration, binary, "run", "binary not available", err)
	}
	detail := strings.TrimSpace(stderr.String())
	if len(detail) > stderrLimit {
		detail = detail[:stderrLimit]
	}
	return stdout.Bytes(), services.Wrap(services.ErrExternalTool, binary, "run", detail, err)
}

// Func adapts a function into an Executor.
type Func func(ctx context.Context, binary string, args ...string) ([]byte, error)

func (f Func) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return f(ctx, binary, args...)
}

// Describe formats a command line for logs.
func Describe(binary string, args ...string) string {
	if len(args) == 0 {
		return binary
	}
	return fmt.Sprintf("%s %s", binary, strings.Join(args, " "))
}
