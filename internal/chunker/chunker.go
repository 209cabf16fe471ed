package chunker

import (
	"strings"
)

// Options controls how text is split into windows.
type Options struct {
	MaxWords int
	Overlap  int
}

// Window is a slice of the source text that fits one model request.
type Window struct {
	Index     int
	Text      string
	WordCount int
}

const defaultMaxWords = 2500

// Split performs a whitespace-word sliding window with optional overlap.
// Words stand in for tokens; chat models here budget roughly 1.3 tokens per word.
func Split(text string, opts Options) []Window {
	if opts.MaxWords <= 0 {
		opts.MaxWords = defaultMaxWords
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	words := strings.Fields(text)
	var windows []Window
	if len(words) == 0 {
		return windows
	}

	step := opts.MaxWords - opts.Overlap
	if step <= 0 {
		step = opts.MaxWords
	}

	for start := 0; start < len(words); start += step {
		end := start + opts.MaxWords
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, Window{
			Index:     len(windows),
			Text:      strings.Join(words[start:end], " "),
			WordCount: end - start,
		})
		if end == len(words) {
			break
		}
	}
	return windows
}
