package chunking

import (
	"strings"
	"testing"
)

func TestSplitMergesParagraphsUnderBudget(t *testing.T) {
	s := NewSplitter(100)
	text := "Erster Absatz.\n\nZweiter Absatz.\n\nDritter Absatz."
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("short paragraphs must merge into one chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "Erster Absatz.") || !strings.Contains(chunks[0], "Dritter Absatz.") {
		t.Fatalf("merged chunk missing paragraphs: %q", chunks[0])
	}
}

func TestSplitStartsNewChunkWhenBudgetExceeded(t *testing.T) {
	s := NewSplitter(40)
	a := strings.Repeat("a", 30)
	b := strings.Repeat("b", 30)
	chunks := s.Split(a + "\n\n" + b)
	if len(chunks) != 2 {
		t.Fatalf("expected two chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != a || chunks[1] != b {
		t.Fatalf("paragraph boundaries must be preserved, got %v", chunks)
	}
}

func TestSplitHardSplitsOversizedParagraph(t *testing.T) {
	s := NewSplitter(50)
	long := strings.Repeat("x", 120)
	chunks := s.Split(long)
	if len(chunks) != 3 {
		t.Fatalf("expected three segments, got %d", len(chunks))
	}
	for _, c := range chunks {
		if len(c) > 50 {
			t.Fatalf("segment over budget: %d chars", len(c))
		}
	}
}

func TestSplitHardSplitKeepsRunesIntact(t *testing.T) {
	s := NewSplitter(10)
	long := strings.Repeat("ä", 25)
	for _, c := range s.Split(long) {
		if !strings.HasPrefix(c, "ä") {
			t.Fatalf("rune boundary broken in %q", c)
		}
		for _, r := range c {
			if r != 'ä' {
				t.Fatalf("unexpected rune %q", r)
			}
		}
	}
}

func TestSplitTextWithoutParagraphBreaks(t *testing.T) {
	s := NewSplitter(15)
	chunks := s.Split("zeile eins\nzeile zwei\nzeile drei")
	if len(chunks) == 0 {
		t.Fatalf("expected chunks from single-newline text")
	}
	for _, c := range chunks {
		if len(c) > 15 {
			t.Fatalf("chunk over budget: %q", c)
		}
	}
}

func TestSplitEmptyTextYieldsNothing(t *testing.T) {
	s := NewSplitter(100)
	if got := s.Split("   \n \n  "); len(got) != 0 {
		t.Fatalf("expected no chunks for blank text, got %v", got)
	}
}
