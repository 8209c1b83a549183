package extraction

import "sort"

// BasicPages selects the 1-based pages the basic method scans: the first and
// last few, plus the middle page and its successor for documents over twenty
// pages. The result is sorted, deduplicated and capped at max.
func BasicPages(total, first, last, max int) []int {
	if total <= 0 {
		return nil
	}
	set := make(map[int]struct{})
	for i := 0; i < first && i < total; i++ {
		set[i] = struct{}{}
	}
	for i := total - last; i < total; i++ {
		if i >= 0 {
			set[i] = struct{}{}
		}
	}
	if total > 20 {
		middle := total / 2
		set[middle] = struct{}{}
		if middle+1 < total {
			set[middle+1] = struct{}{}
		}
	}
	pages := sortedPages(set)
	if max > 0 && len(pages) > max {
		pages = pages[:max]
	}
	return pages
}

// OCRPages selects the first and last pages to rasterize.
func OCRPages(total, first, last int) []int {
	if total <= 0 {
		total = first
	}
	set := make(map[int]struct{})
	for i := 0; i < first && i < total; i++ {
		set[i] = struct{}{}
	}
	for i := total - last; i < total; i++ {
		if i >= 0 {
			set[i] = struct{}{}
		}
	}
	return sortedPages(set)
}

func sortedPages(set map[int]struct{}) []int {
	pages := make([]int, 0, len(set))
	for i := range set {
		pages = append(pages, i+1)
	}
	sort.Ints(pages)
	return pages
}
