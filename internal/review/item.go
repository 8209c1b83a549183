package review

import (
	_ "embed"
	"time"

	"spines/internal/extraction"
	"spines/internal/jsonfile"
)

// Status is the lifecycle state of a queued item.
type Status string

const (
	StatusPending     Status = "pending_review"
	StatusFileMissing Status = "file_missing"
	StatusFailed      Status = "processing_failed"
)

// Item is one document awaiting review.
type Item struct {
	ID                   string              `json:"id"`
	Path                 string              `json:"path"`
	Filename             string              `json:"filename"`
	Contributor          string              `json:"contributor"`
	Reason               string              `json:"reason"`
	Status               Status              `json:"status"`
	AddedAt              time.Time           `json:"added_date"`
	ExtractionMethod     string              `json:"extraction_method"`
	ExtractionConfidence float64             `json:"extraction_confidence"`
	IdentifierFound      bool                `json:"isbn_found"`
	Draft                extraction.Draft    `json:"draft"`
	Attempts             []extraction.Method `json:"attempts,omitempty"`
	CorrelationID        string              `json:"correlation_id,omitempty"`
	DuplicateOf          string              `json:"duplicate_of,omitempty"`
	PotentialMulticopyOf string              `json:"potential_multicopy_of,omitempty"`
	Error                string              `json:"error,omitempty"`
}

// Request describes a document to queue.
type Request struct {
	Path                 string
	Contributor          string
	Reason               string
	Result               extraction.Result
	CorrelationID        string
	DuplicateOf          string
	PotentialMulticopyOf string
}

// Summary counts items per status.
type Summary struct {
	Total       int `json:"total"`
	Pending     int `json:"pending_review"`
	FileMissing int `json:"file_missing"`
	Failed      int `json:"processing_failed"`
}

//go:embed item.schema.json
var itemSchemaJSON []byte

var itemSchema = jsonfile.MustCompileSchema("review_item.json", itemSchemaJSON)
