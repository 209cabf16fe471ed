package conversation

import (
	"fmt"
	"testing"
)

func TestLogPreservesInsertionOrder(t *testing.T) {
	log := NewLog(nil)
	for i := 0; i < 50; i++ {
		log.Append(NewTurn(User, fmt.Sprintf("q%d", i)), NewTurn(Assistant, fmt.Sprintf("a%d", i)))
	}

	turns := log.Turns()
	if len(turns) != 100 || log.Len() != 100 {
		t.Fatalf("expected 100 turns, got %d", len(turns))
	}
	for i := 0; i < 50; i++ {
		if turns[2*i].Speaker != User || turns[2*i].Text != fmt.Sprintf("q%d", i) {
			t.Fatalf("turn %d out of order: %+v", 2*i, turns[2*i])
		}
		if turns[2*i+1].Speaker != Assistant || turns[2*i+1].Text != fmt.Sprintf("a%d", i) {
			t.Fatalf("turn %d out of order: %+v", 2*i+1, turns[2*i+1])
		}
	}
}

func TestLogTurnsIsACopy(t *testing.T) {
	log := NewLog([]Turn{NewTurn(User, "original")})
	turns := log.Turns()
	turns[0].Text = "rewritten"

	if got := log.Turns()[0].Text; got != "original" {
		t.Errorf("log was mutated through returned slice: %q", got)
	}
}

func TestNilLog(t *testing.T) {
	var log *Log
	if log.Len() != 0 || log.Turns() != nil {
		t.Error("nil log should behave as empty")
	}
}

func TestRender(t *testing.T) {
	turns := []Turn{
		{Speaker: User, Text: "I have a headache and fever"},
		{Speaker: Assistant, Text: "Rest and stay hydrated."},
	}
	want := "**🧑 You:** I have a headache and fever\n\n**🤖 MedicalBot:** Rest and stay hydrated."
	if got := Render(turns); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := Render(nil); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}
