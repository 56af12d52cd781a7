package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"netmon/internal/config"
	"netmon/internal/lib/sl"
	"netmon/internal/records"
	"netmon/internal/store"

	"golang.org/x/sync/errgroup"
)

// Runner is the daemon's long-running probe loop. Every interval it
// probes all targets over HTTP and ICMP, appends the completed checks
// in arrival order and saves the store once per round.
type Runner struct {
	store *store.Store
	cfg   config.ProbeConfig
}

func NewRunner(st *store.Store, cfg config.ProbeConfig) *Runner {
	return &Runner{store: st, cfg: cfg}
}

// Run probes until the context is cancelled. A failed round is logged
// and the loop keeps going; probing must survive transient I/O
// problems.
func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.cfg.Interval)
	defer t.Stop()

	for {
		if err := r.round(ctx); err != nil {
			slog.Error("probe round failed", sl.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *Runner) round(ctx context.Context) error {
	results := make(chan records.Check, len(r.cfg.Targets)*2)

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range r.cfg.Targets {
		target := target
		g.Go(func() error {
			results <- HTTP(gctx, target, r.cfg.Timeout)
			return nil
		})
		g.Go(func() error {
			results <- ICMP(gctx, target, r.cfg.Timeout, r.cfg.Privileged)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("probe fan-out: %w", err)
	}
	close(results)

	for check := range results {
		slog.Info("probe finished", sl.Check(check))
		r.store.AddCheck(check)
	}

	if err := r.store.Save(); err != nil {
		return fmt.Errorf("save check store: %w", err)
	}
	return nil
}
