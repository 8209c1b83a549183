// Package pdfinfo reads page counts and document info from PDF files with
// pdfcpu.
package pdfinfo

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"spines/internal/services"
)

// Info holds the structural facts the Basic method scores.
type Info struct {
	Pages  int
	Title  string
	Author string
	// Year comes from the CreationDate entry; zero when absent or unparsable.
	Year int
}

// Reader inspects PDF files.
type Reader struct {
	conf *model.Configuration
}

// New returns a Reader using relaxed validation so slightly malformed scans
// still yield their info dictionary.
func New() *Reader {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Reader{conf: conf}
}

// Inspect opens path and reads its page count and info dictionary.
func (r *Reader) Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, services.Wrap(services.ErrNotFound, "pdfinfo", "open", path, err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, r.conf)
	if err != nil {
		return Info{}, services.Wrap(services.ErrCorrupt, "pdfinfo", "read", path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return Info{}, services.Wrap(services.ErrCorrupt, "pdfinfo", "validate", path, err)
	}

	return Info{
		Pages:  ctx.PageCount,
		Title:  strings.TrimSpace(ctx.XRefTable.Title),
		Author: strings.TrimSpace(ctx.XRefTable.Author),
		Year:   CreationYear(ctx.XRefTable.CreationDate),
	}, nil
}

var pdfDatePattern = regexp.MustCompile(`^(?:D:)?(\d{4})`)

// CreationYear extracts the year from a PDF date string such as
// "D:19990101000000Z".
func CreationYear(value string) int {
	m := pdfDatePattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}
