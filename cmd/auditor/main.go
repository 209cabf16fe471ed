package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"med-assistant/internal/app"
	"med-assistant/internal/httputil"
	"med-assistant/internal/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeQueue, err := app.BuildAuditor()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeQueue(); err != nil {
			deps.Log.Error("failed to close queue", "err", err)
		}
	}()
	deps.Log.Info("auditor starting")

	g, ctx := errgroup.WithContext(ctx)

	// Run queue worker
	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeTurnCompleted, func(ctx context.Context, task queue.Task) error {
			return handleTurnEvent(ctx, deps, task)
		})
	})

	// Run health check and metrics server
	g.Go(func() error {
		return httputil.ServeHealth(ctx, deps.Log, deps.Config.Port, deps.Metrics)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("auditor stopped", "err", err)
	}
}

// handleTurnEvent records one completed turn. Malformed events are logged and dropped rather than redelivered.
func handleTurnEvent(_ context.Context, deps app.AuditorDeps, task queue.Task) error {
	ev, err := queue.DecodeTurnEvent(task)
	if err != nil {
		deps.Log.Error("dropping malformed turn event", "task_id", task.ID, "err", err)
		return nil
	}
	deps.Metrics.ObserveTurn(ev.Kind, ev.Outcome)
	deps.Log.Info("turn completed",
		"session_id", ev.SessionID,
		"kind", ev.Kind,
		"outcome", ev.Outcome,
		"duration_ms", ev.DurationMS,
		"at", ev.At,
	)
	return nil
}
