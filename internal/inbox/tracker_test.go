package inbox

import (
	"slices"
	"testing"
)

func TestTrackerNeedsTwoEqualMeasurements(t *testing.T) {
	sizes := map[string]int64{"/in/a.pdf": 10, "/in/b.pdf": 0}
	measure := func(path string) (int64, bool) {
		size, ok := sizes[path]
		return size, ok
	}
	tr := newTracker()
	tr.watch("/in/a.pdf")
	tr.watch("/in/b.pdf")
	tr.watch("/in/gone.pdf")

	if got := tr.settled(measure); len(got) != 0 {
		t.Fatalf("first poll must only measure, got %v", got)
	}
	sizes["/in/a.pdf"] = 20
	if got := tr.settled(measure); len(got) != 0 {
		t.Fatalf("growing file must not settle, got %v", got)
	}
	if got := tr.settled(measure); !slices.Equal(got, []string{"/in/a.pdf"}) {
		t.Fatalf("expected a.pdf settled, got %v", got)
	}
	if got := tr.settled(measure); len(got) != 0 {
		t.Fatalf("settled files are returned once, got %v", got)
	}
	if _, ok := tr.sizes["/in/gone.pdf"]; ok {
		t.Fatal("vanished file should stop being tracked")
	}
	if _, ok := tr.sizes["/in/b.pdf"]; !ok {
		t.Fatal("empty file should stay tracked until it has content")
	}
}
