// Package extraction runs the metadata escalation for a single document.
//
// The Engine tries a fixed ordered list of extractors (basic, ebook_meta,
// ebook_convert) and stops as soon as one draft reaches the auto-accept
// threshold. The OCR extractor is never part of the automatic escalation; it
// only runs when the OCR queue asks for it through ExtractOCR.
//
// Every extractor returns a Draft, never an error. Tool failures, timeouts and
// missing binaries become failed drafts at the floor confidence so the engine
// can fall through to the next method.
package extraction
