package conversation

import (
	"fmt"
	"strings"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	User      Speaker = "user"
	Assistant Speaker = "assistant"
)

// DisplayName is the label shown in rendered transcripts.
func (s Speaker) DisplayName() string {
	if s == User {
		return "You"
	}
	return "MedicalBot"
}

func (s Speaker) icon() string {
	if s == User {
		return "🧑"
	}
	return "🤖"
}

// Turn is one message in a conversation. Turns are never edited after being appended.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// NewTurn stamps a turn with the current time.
func NewTurn(speaker Speaker, text string) Turn {
	return Turn{Speaker: speaker, Text: text, At: time.Now().UTC()}
}

// Log is an append-only, insertion-ordered list of turns.
type Log struct {
	turns []Turn
}

// NewLog wraps existing turns, e.g. ones read back from a session store.
func NewLog(turns []Turn) *Log {
	return &Log{turns: append([]Turn(nil), turns...)}
}

// Append adds turns at the end.
func (l *Log) Append(turns ...Turn) {
	l.turns = append(l.turns, turns...)
}

// Turns returns a copy so callers cannot rewrite history.
func (l *Log) Turns() []Turn {
	if l == nil {
		return nil
	}
	return append([]Turn(nil), l.turns...)
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.turns)
}

// Render formats turns as a chronological markdown transcript.
func Render(turns []Turn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**%s %s:** %s", t.Speaker.icon(), t.Speaker.DisplayName(), t.Text)
	}
	return b.String()
}
