package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"med-assistant/internal/app"
	"med-assistant/internal/httputil"
	"med-assistant/internal/session"
)

const sweepInterval = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Error("failed to close dependencies", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httputil.Serve(ctx, deps.Log, srv)
	})
	if sw, ok := deps.Sessions.(session.Sweeper); ok {
		g.Go(func() error {
			sweepSessions(ctx, deps.Log, sw, sweepInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		deps.Log.Error("assistant stopped", "err", err)
	}
}

func newRouter(deps app.Deps) chi.Router {
	r := httputil.NewRouter(deps.Log, deps.Config.TurnTimeout())
	r.Use(httputil.Instrument(deps.Metrics))

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", createSessionHandler(deps))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getSessionHandler(deps))
			r.Get("/transcript", transcriptHandler(deps))
			r.Delete("/", deleteSessionHandler(deps))
			r.Post("/messages", messageHandler(deps))
			r.Post("/uploads", uploadHandler(deps))
		})
	})
	r.Post("/api/predictions/diabetes", predictHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Handle("/metrics", deps.Metrics.Handler())
	return r
}

// sweepSessions purges expired sessions until ctx is done.
func sweepSessions(ctx context.Context, log *slog.Logger, sw session.Sweeper, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sw.Sweep(ctx)
			if err != nil {
				log.Warn("session sweep failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info("expired sessions removed", "count", n)
			}
		}
	}
}
