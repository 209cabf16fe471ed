package chunker

import (
	"strings"
	"testing"
)

func TestSplitOverlap(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	windows := Split(text, Options{MaxWords: 4, Overlap: 1})
	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	if !strings.HasPrefix(windows[1].Text, "four") {
		t.Fatalf("expected second window to start at the overlapping word, got %q", windows[1].Text)
	}
	if windows[0].WordCount != 4 {
		t.Fatalf("expected word count 4, got %d", windows[0].WordCount)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	windows := Split("  \n ", Options{MaxWords: 10})
	if len(windows) != 0 {
		t.Errorf("expected 0 windows for blank input, got %d", len(windows))
	}
}

func TestSplitSingleWindow(t *testing.T) {
	windows := Split("glucose 150 mg/dL", Options{})
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Text != "glucose 150 mg/dL" {
		t.Errorf("unexpected text %q", windows[0].Text)
	}
}

func TestSplitDefaults(t *testing.T) {
	text := strings.Repeat("test ", 6000)
	windows := Split(text, Options{})

	if len(windows) != 3 {
		t.Fatalf("expected 3 windows with default size, got %d", len(windows))
	}
	for _, w := range windows {
		if w.WordCount > defaultMaxWords {
			t.Errorf("window exceeded default max words (%d): got %d", defaultMaxWords, w.WordCount)
		}
	}
}
