// Package services defines shared utilities consumed by the ingestion pipeline
// and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp document IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     for retries and queue reasons.
//
// Subpackages wrap the command-line tools (calibre, poppler, tesseract) behind
// a shared command executor so they can be stubbed in tests.
package services
