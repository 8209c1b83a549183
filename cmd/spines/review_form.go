package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"spines/internal/catalog"
	"spines/internal/review"
)

// approvalForm collects metadata corrections for a queued document. Fields
// start from the draft, or from flag overrides when given.
type approvalForm struct {
	form *huh.Form

	draft     catalog.Metadata
	title     string
	author    string
	year      string
	isbn      string
	publisher string
	action    string
}

func newApprovalForm(item review.Item, seed review.Approval) *approvalForm {
	draft := item.Draft.Fields
	seed.Edits.ApplyMetadata(&draft)
	f := &approvalForm{
		draft:     item.Draft.Fields,
		title:     draft.Title,
		author:    draft.Author,
		year:      intOrBlank(draft.Year),
		isbn:      draft.ISBN,
		publisher: draft.Publisher,
		action:    string(seed.Action),
	}
	if f.action == "" {
		f.action = string(catalog.CopyAuto)
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(item.Filename).
				Description(fmt.Sprintf("%s, confidence %s\n%s", item.ExtractionMethod, formatConfidence(item.ExtractionConfidence), item.Reason)),
			huh.NewInput().
				Title("Title").
				Value(&f.title).
				Validate(required("title")),
			huh.NewInput().
				Title("Author").
				Value(&f.author).
				Validate(required("author")),
			huh.NewInput().
				Title("Year").
				Placeholder("e.g. 1965").
				Value(&f.year).
				Validate(validYear),
			huh.NewInput().
				Title("ISBN").
				Value(&f.isbn),
			huh.NewInput().
				Title("Publisher").
				Value(&f.publisher),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("If another contributor already has this file").
				Options(
					huh.NewOption("Decide automatically", string(catalog.CopyAuto)),
					huh.NewOption("Keep a separate copy", string(catalog.CopySeparate)),
					huh.NewOption("Add contributor to existing entry", string(catalog.CopyAddToExisting)),
				).
				Value(&f.action),
		),
	)
	return f
}

// result turns the answers into edits. Fields equal to the draft are left
// out so they are not recorded as manual edits.
func (f *approvalForm) result() (review.Approval, error) {
	action, err := catalog.ParseCopyAction(f.action)
	if err != nil {
		return review.Approval{}, err
	}
	var edits catalog.Edits
	if v := strings.TrimSpace(f.title); v != f.draft.Title {
		edits.Title = &v
	}
	if v := strings.TrimSpace(f.author); v != f.draft.Author {
		edits.Author = &v
	}
	if year, _ := strconv.Atoi(strings.TrimSpace(f.year)); year != f.draft.Year {
		edits.Year = &year
	}
	if v := strings.TrimSpace(f.isbn); v != f.draft.ISBN {
		edits.ISBN = &v
	}
	if v := strings.TrimSpace(f.publisher); v != f.draft.Publisher {
		edits.Publisher = &v
	}
	return review.Approval{Action: action, Edits: edits}, nil
}

func runApprovalForm(item review.Item, seed review.Approval) (review.Approval, error) {
	f := newApprovalForm(item, seed)
	if err := f.form.Run(); err != nil {
		return review.Approval{}, err
	}
	return f.result()
}

func required(field string) func(string) error {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validYear(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1000 || year > 2100 {
		return fmt.Errorf("year must be a four digit number")
	}
	return nil
}

func intOrBlank(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
