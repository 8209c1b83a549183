package catalog

import (
	"fmt"
	"strings"

	"spines/internal/services"
)

// CopyAction tells the finalizer what to do when an incoming document matches
// an existing entry.
type CopyAction string

const (
	CopyAuto          CopyAction = "auto"
	CopySeparate      CopyAction = "separate_copy"
	CopyAddToExisting CopyAction = "add_to_existing"
	// CopyNewEntry never merges into a similar entry; it only records
	// related copies. Unattended commits use it.
	CopyNewEntry CopyAction = "new_entry"
)

// ParseCopyAction validates an operator-supplied action. Empty means auto.
func ParseCopyAction(value string) (CopyAction, error) {
	switch action := CopyAction(strings.ToLower(strings.TrimSpace(value))); action {
	case "", CopyAuto:
		return CopyAuto, nil
	case CopySeparate, CopyAddToExisting, CopyNewEntry:
		return action, nil
	default:
		return "", services.Wrap(services.ErrValidation, "catalog", "copy action",
			fmt.Sprintf("unknown copy action %q (want auto, separate_copy, add_to_existing or new_entry)", value), nil)
	}
}

// Submission is everything the finalizer needs to commit one document.
type Submission struct {
	SourcePath  string
	Fields      Metadata
	Method      string
	Confidence  float64
	TextPath    string
	Contributor string
	Action      CopyAction
	Edits       Edits
}
