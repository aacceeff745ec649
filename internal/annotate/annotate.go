// Package annotate turns source text plus extracted entities into an
// ordered, non-overlapping segment cover that is safe to render: the
// segment texts concatenate back to exactly the original source.
package annotate

import (
	"sort"

	"github.com/langbridge/extractd/internal/job"
)

type Kind string

const (
	KindPlain  Kind = "plain"
	KindEntity Kind = "entity"
)

// Segment is one contiguous slice of the source text. Start and End are
// rune offsets. ExtractionIndex points back into the input extraction list
// for entity segments and is nil for plain ones.
type Segment struct {
	Kind            Kind   `json:"kind"`
	Text            string `json:"text"`
	Start           int    `json:"start"`
	End             int    `json:"end"`
	ExtractionIndex *int   `json:"extraction_index,omitempty"`
}

type placement struct {
	index      int
	start, end int
}

// Annotate produces the segment cover for source. Extractions with valid
// explicit offsets are placed there; the rest are located by scanning
// forward for their literal text from the end of the previously resolved
// match. Unplaceable extractions (text not found, or empty text) are left
// out of the cover; overlapping placements keep the earliest start, with
// list order breaking ties.
func Annotate(source string, extractions []job.Extraction) []Segment {
	src := []rune(source)
	if len(src) == 0 {
		return nil
	}

	var placed []placement
	searchFrom := 0
	for i, ext := range extractions {
		start, end, ok := resolve(src, ext, searchFrom)
		if !ok {
			continue
		}
		placed = append(placed, placement{index: i, start: start, end: end})
		if end > searchFrom {
			searchFrom = end
		}
	}

	sort.SliceStable(placed, func(i, k int) bool {
		return placed[i].start < placed[k].start
	})

	var segments []Segment
	cursor := 0
	for _, p := range placed {
		if p.start < cursor {
			// Overlaps an already emitted entity; skipped rather than
			// re-sliced.
			continue
		}
		if p.start > cursor {
			segments = append(segments, plainSegment(src, cursor, p.start))
		}
		idx := p.index
		segments = append(segments, Segment{
			Kind:            KindEntity,
			Text:            string(src[p.start:p.end]),
			Start:           p.start,
			End:             p.end,
			ExtractionIndex: &idx,
		})
		cursor = p.end
	}
	if cursor < len(src) {
		segments = append(segments, plainSegment(src, cursor, len(src)))
	}
	return segments
}

func plainSegment(src []rune, start, end int) Segment {
	return Segment{Kind: KindPlain, Text: string(src[start:end]), Start: start, End: end}
}

// resolve finds the [start, end) rune span for one extraction. Explicit
// offsets are used when they are sane; out-of-range or inverted offsets are
// treated as absent rather than trusted. Text search tries forward from
// searchFrom first, then from the beginning, so an out-of-order list still
// places every occurrence it can.
func resolve(src []rune, ext job.Extraction, searchFrom int) (int, int, bool) {
	if ext.PositionStart != nil && ext.PositionEnd != nil {
		start, end := *ext.PositionStart, *ext.PositionEnd
		if start >= 0 && start < end && end <= len(src) {
			return start, end, true
		}
	}

	needle := []rune(ext.ExtractionText)
	if len(needle) == 0 {
		return 0, 0, false
	}
	if at := runeIndex(src, needle, searchFrom); at >= 0 {
		return at, at + len(needle), true
	}
	if at := runeIndex(src, needle, 0); at >= 0 {
		return at, at + len(needle), true
	}
	return 0, 0, false
}

func runeIndex(haystack, needle []rune, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true
		for k := range needle {
			if haystack[i+k] != needle[k] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
