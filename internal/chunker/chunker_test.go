package chunker

import (
	"strings"
	"testing"
)

func TestSplitEmptyInput(t *testing.T) {
	c := New(1000, 30, 100)
	if got := c.Split(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := c.Split("   \n\t "); got != nil {
		t.Fatalf("expected nil for blank input, got %v", got)
	}
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	c := New(1000, 30, 100)
	text := "Scope 1 emissions are direct emissions from owned sources."
	got := c.Split(text)
	if len(got) != 1 || got[0] != text {
		t.Fatalf("expected single chunk, got %v", got)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	// Sentences of varying length so period snapping triggers on most cuts.
	var sb strings.Builder
	for i := 0; i < 120; i++ {
		sb.WriteString("The company reports annually on its greenhouse gas emissions and reduction targets. ")
	}
	text := strings.TrimSpace(sb.String())

	const size, overlap = 200, 25
	c := New(size, overlap, 100)
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	reconstructed := chunks[0]
	for i := 1; i < len(chunks); i++ {
		if !strings.HasSuffix(reconstructed, chunks[i][:overlap]) {
			t.Fatalf("chunk %d does not overlap its predecessor", i)
		}
		reconstructed += chunks[i][overlap:]
	}
	if reconstructed != text {
		t.Fatalf("round trip mismatch: got %d chars, want %d", len(reconstructed), len(text))
	}
}

func TestSplitOverlapShared(t *testing.T) {
	text := strings.Repeat("emissions data entry for the reporting period. ", 60)
	text = strings.TrimSpace(text)
	const size, overlap = 150, 20
	chunks := New(size, overlap, 100).Split(text)
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if prev[len(prev)-overlap:] != cur[:overlap] {
			t.Fatalf("chunks %d and %d do not share %d characters", i-1, i, overlap)
		}
	}
}

func TestSplitSnapsToPeriod(t *testing.T) {
	// A period sits 10 characters past the nominal boundary: the cut should
	// land just after it.
	text := strings.Repeat("a", 95) + " ends here." + strings.Repeat("b", 200)
	chunks := New(100, 10, 100).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "ends here.") {
		t.Fatalf("first chunk should end at the period, got %q", chunks[0][len(chunks[0])-20:])
	}
}

func TestSplitCutsAtBoundaryWithoutPeriod(t *testing.T) {
	text := strings.Repeat("x", 500)
	chunks := New(100, 10, 100).Split(text)
	if len(chunks[0]) != 100 {
		t.Fatalf("expected hard cut at 100 chars, got %d", len(chunks[0]))
	}
}

func TestSplitFinalChunkMayBeShort(t *testing.T) {
	text := strings.Repeat("y", 250)
	chunks := New(100, 10, 0).Split(text)
	last := chunks[len(chunks)-1]
	if len(last) >= 100 {
		t.Fatalf("expected short final chunk, got %d chars", len(last))
	}
}
