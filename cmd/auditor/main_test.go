package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"med-assistant/internal/app"
	"med-assistant/internal/logger"
	"med-assistant/internal/metrics"
	"med-assistant/internal/queue"
)

func newTestDeps(log *slog.Logger) app.AuditorDeps {
	return app.AuditorDeps{
		Log:     log,
		Queue:   new(queue.MockQueue),
		Metrics: metrics.NewCollector("test"),
	}
}

func TestHandleTurnEvent(t *testing.T) {
	var buf bytes.Buffer
	deps := newTestDeps(logger.NewWithWriter(&buf, "info"))
	sessionID := uuid.New()

	for _, outcome := range []string{"ok", "ok", "degraded"} {
		task, err := queue.NewTurnTask(queue.TurnEvent{SessionID: sessionID, Kind: "message", Outcome: outcome, DurationMS: 12})
		if err != nil {
			t.Fatalf("new task: %v", err)
		}
		if err := handleTurnEvent(context.Background(), deps, task); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := testutil.ToFloat64(deps.Metrics.Turns.WithLabelValues("message", "ok")); got != 2 {
		t.Errorf("ok turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(deps.Metrics.Turns.WithLabelValues("message", "degraded")); got != 1 {
		t.Errorf("degraded turns = %v, want 1", got)
	}
	if !strings.Contains(buf.String(), sessionID.String()) {
		t.Errorf("log missing session id: %s", buf.String())
	}
}

func TestHandleTurnEventDropsMalformed(t *testing.T) {
	deps := newTestDeps(logger.Discard())

	tests := []queue.Task{
		{Type: queue.TaskTypeTurnCompleted, Payload: []byte("{not json")},
		{Type: "other", Payload: []byte(`{}`)},
	}
	for _, task := range tests {
		if err := handleTurnEvent(context.Background(), deps, task); err != nil {
			t.Errorf("malformed events must not be redelivered, got %v", err)
		}
	}
}
