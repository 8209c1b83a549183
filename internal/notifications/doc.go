// Package notifications publishes catalog events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers publish unconditionally. Events cover documents waiting for review,
// finished OCR batches and failed daemon jobs.
package notifications
