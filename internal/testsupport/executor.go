package testsupport

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"spines/internal/services"
	"spines/internal/services/command"
)

// Call records one executor invocation.
type Call struct {
	Binary string
	Args   []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return command.Describe(c.Binary, c.Args...)
}

// Handler produces the stdout of a scripted binary.
type Handler func(args []string) ([]byte, error)

// Executor is a scripted command.Executor. Binaries without a handler fail as
// if they were not installed.
type Executor struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

var _ command.Executor = (*Executor)(nil)

// NewExecutor returns an executor with no scripted binaries.
func NewExecutor() *Executor {
	return &Executor{handlers: make(map[string]Handler)}
}

// Handle scripts binary with fn.
func (e *Executor) Handle(binary string, fn Handler) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[binary] = fn
	return e
}

// Reply scripts binary to print output.
func (e *Executor) Reply(binary, output string) *Executor {
	return e.Handle(binary, func([]string) ([]byte, error) { return []byte(output), nil })
}

// Fail scripts binary to exit non-zero.
func (e *Executor) Fail(binary, stderr string) *Executor {
	return e.Handle(binary, func([]string) ([]byte, error) {
		return nil, services.Wrap(services.ErrExternalTool, binary, "exit status 1", stderr, nil)
	})
}

// Output implements command.Executor.
func (e *Executor) Output(ctx context.Context, binary string, args ...string) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Call{Binary: binary, Args: slices.Clone(args)})
	handler, ok := e.handlers[binary]
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTimeout, binary, "run", "context done", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, binary, "lookup", fmt.Sprintf("%s not scripted", binary), nil)
	}
	return handler(args)
}

// Calls returns every recorded invocation in order.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// Binaries returns the invoked binaries in order with consecutive repeats
// collapsed.
func (e *Executor) Binaries() []string {
	var out []string
	for _, c := range e.Calls() {
		if len(out) == 0 || out[len(out)-1] != c.Binary {
			out = append(out, c.Binary)
		}
	}
	return out
}

// Invoked reports whether binary ran at least once.
func (e *Executor) Invoked(binary string) bool {
	return slices.ContainsFunc(e.Calls(), func(c Call) bool { return c.Binary == binary })
}

// CallsTo returns the invocations of binary rendered as command lines.
func (e *Executor) CallsTo(binary string) []string {
	var out []string
	for _, c := range e.Calls() {
		if c.Binary == binary {
			out = append(out, strings.TrimSpace(c.String()))
		}
	}
	return out
}
