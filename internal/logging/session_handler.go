package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// runIDHandler wraps another handler to inject a run_id attribute into all records.
type runIDHandler struct {
	base  slog.Handler
	runID string
}

// WithRunID tags every record produced by logger with a run identifier. An
// empty id is replaced with a fresh UUID. The id in use is returned.
func WithRunID(logger *slog.Logger, runID string) (*slog.Logger, string) {
	if logger == nil {
		logger = NewNop()
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	return slog.New(&runIDHandler{base: logger.Handler(), runID: runID}), runID
}

func (h *runIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *runIDHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(slog.String(FieldRunID, h.runID))
	return h.base.Handle(ctx, record)
}

func (h *runIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runIDHandler{base: h.base.WithAttrs(attrs), runID: h.runID}
}

func (h *runIDHandler) WithGroup(name string) slog.Handler {
	return &runIDHandler{base: h.base.WithGroup(name), runID: h.runID}
}
