package annotate

import (
	"strings"
	"testing"

	"github.com/langbridge/extractd/internal/job"
)

func intp(v int) *int { return &v }

func ext(class, text string) job.Extraction {
	return job.Extraction{ExtractionClass: class, ExtractionText: text}
}

func extAt(class, text string, start, end int) job.Extraction {
	return job.Extraction{ExtractionClass: class, ExtractionText: text, PositionStart: intp(start), PositionEnd: intp(end)}
}

// Every annotation must be a lossless partition of the source.
func checkCover(t *testing.T, source string, segments []Segment) {
	t.Helper()
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Text)
	}
	if b.String() != source {
		t.Fatalf("segments do not reconstruct the source:\n got %q\nwant %q", b.String(), source)
	}
	for i := 1; i < len(segments); i++ {
		if segments[i-1].End != segments[i].Start {
			t.Fatalf("segments %d and %d are not contiguous: %+v %+v", i-1, i, segments[i-1], segments[i])
		}
	}
}

func TestAnnotateWithExplicitOffsets(t *testing.T) {
	source := "Dr. Chen works at MIT."
	segments := Annotate(source, []job.Extraction{
		extAt("person", "Dr. Chen", 0, 8),
		extAt("organization", "MIT", 18, 21),
	})
	checkCover(t, source, segments)

	want := []struct {
		kind Kind
		text string
	}{
		{KindEntity, "Dr. Chen"},
		{KindPlain, " works at "},
		{KindEntity, "MIT"},
		{KindPlain, "."},
	}
	if len(segments) != len(want) {
		t.Fatalf("segment count: got %d, want %d: %+v", len(segments), len(want), segments)
	}
	for i, w := range want {
		if segments[i].Kind != w.kind || segments[i].Text != w.text {
			t.Fatalf("segment %d: got (%s, %q), want (%s, %q)", i, segments[i].Kind, segments[i].Text, w.kind, w.text)
		}
	}
	if segments[0].ExtractionIndex == nil || *segments[0].ExtractionIndex != 0 {
		t.Fatalf("first entity must reference extraction 0: %+v", segments[0])
	}
	if segments[2].ExtractionIndex == nil || *segments[2].ExtractionIndex != 1 {
		t.Fatalf("second entity must reference extraction 1: %+v", segments[2])
	}
}

func TestAnnotateOverlapKeepsFirst(t *testing.T) {
	source := "abcdefghij"
	segments := Annotate(source, []job.Extraction{
		extAt("a", "abcde", 0, 5),
		extAt("b", "cdefg", 2, 7),
	})
	checkCover(t, source, segments)

	entities := 0
	for _, s := range segments {
		if s.Kind == KindEntity {
			entities++
			if *s.ExtractionIndex != 0 {
				t.Fatalf("overlap must keep the first-listed extraction, kept %d", *s.ExtractionIndex)
			}
		}
	}
	if entities != 1 {
		t.Fatalf("expected exactly one entity segment, got %d", entities)
	}
}

func TestAnnotateTiedStartsKeepListOrder(t *testing.T) {
	source := "abcdef"
	segments := Annotate(source, []job.Extraction{
		extAt("a", "abc", 0, 3),
		extAt("b", "abcd", 0, 4),
	})
	checkCover(t, source, segments)
	for _, s := range segments {
		if s.Kind == KindEntity && *s.ExtractionIndex != 0 {
			t.Fatalf("tied starts must keep the earlier-listed extraction, kept %d", *s.ExtractionIndex)
		}
	}
}

func TestAnnotateLocatesByTextSearch(t *testing.T) {
	source := "Alice met Bob. Alice left."
	segments := Annotate(source, []job.Extraction{
		ext("person", "Alice"),
		ext("person", "Bob"),
		ext("person", "Alice"),
	})
	checkCover(t, source, segments)

	var starts []int
	for _, s := range segments {
		if s.Kind == KindEntity {
			starts = append(starts, s.Start)
		}
	}
	// Forward scanning binds the second "Alice" to its second occurrence.
	if len(starts) != 3 || starts[0] != 0 || starts[1] != 10 || starts[2] != 15 {
		t.Fatalf("unexpected entity starts: %v", starts)
	}
}

func TestAnnotateEntitySegmentsNeverOverlap(t *testing.T) {
	source := "one two three four five"
	segments := Annotate(source, []job.Extraction{
		ext("n", "one two"),
		ext("n", "two three"),
		ext("n", "four"),
		extAt("n", "three four", 8, 18),
	})
	checkCover(t, source, segments)

	prevEnd := -1
	for _, s := range segments {
		if s.Kind != KindEntity {
			continue
		}
		if s.Start < prevEnd {
			t.Fatalf("entity segments overlap at %d (previous end %d)", s.Start, prevEnd)
		}
		prevEnd = s.End
	}
}

func TestAnnotateUnplaceableExcluded(t *testing.T) {
	source := "nothing to see here"
	segments := Annotate(source, []job.Extraction{
		ext("person", "Zelda"),
		ext("junk", ""),
	})
	checkCover(t, source, segments)
	if len(segments) != 1 || segments[0].Kind != KindPlain || segments[0].Text != source {
		t.Fatalf("expected a single plain segment, got %+v", segments)
	}
}

func TestAnnotateBogusOffsetsFallBackToSearch(t *testing.T) {
	source := "Dr. Chen works at MIT."
	segments := Annotate(source, []job.Extraction{
		extAt("organization", "MIT", 500, 900),
		extAt("person", "Dr. Chen", 5, 3),
	})
	checkCover(t, source, segments)

	found := map[string]bool{}
	for _, s := range segments {
		if s.Kind == KindEntity {
			found[s.Text] = true
		}
	}
	if !found["MIT"] || !found["Dr. Chen"] {
		t.Fatalf("bogus offsets must fall back to text search: %+v", segments)
	}
}

func TestAnnotateEmptyInputs(t *testing.T) {
	if got := Annotate("", []job.Extraction{ext("a", "x")}); got != nil {
		t.Fatalf("empty source must yield no segments, got %+v", got)
	}

	source := "plain old text"
	segments := Annotate(source, nil)
	if len(segments) != 1 || segments[0].Kind != KindPlain || segments[0].Text != source {
		t.Fatalf("empty extraction list must yield one plain segment, got %+v", segments)
	}
}

func TestAnnotateMultibyteText(t *testing.T) {
	source := "Cafe владелец: Алёна работает в Café Müller."
	segments := Annotate(source, []job.Extraction{
		ext("person", "Алёна"),
		ext("organization", "Café Müller"),
	})
	checkCover(t, source, segments)

	entities := 0
	for _, s := range segments {
		if s.Kind == KindEntity {
			entities++
		}
	}
	if entities != 2 {
		t.Fatalf("expected 2 entities in multibyte text, got %d", entities)
	}
}
