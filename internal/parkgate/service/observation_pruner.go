package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
	"github.com/BrandonDHaskell/Parkgate/server/internal/parkgate/store"
)

// ObservationPruner deletes plate observations older than a whole-day
// retention window. Cutoffs fall on UTC midnight so a day's observations
// are kept or dropped together. A retention of 0 disables pruning.
type ObservationPruner struct {
	store    store.ObservationStore
	days     int
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time

	pruned atomic.Int64
	cancel context.CancelFunc
	done   chan struct{}
}

type PrunerConfig struct {
	// RetentionDays of observation history to keep. 0 keeps everything.
	RetentionDays int

	// IntervalHours between runs. Defaults to 6.
	IntervalHours int
}

func NewObservationPruner(s store.ObservationStore, cfg PrunerConfig, logger logging.Logger) *ObservationPruner {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if logger == nil {
		logger = logging.Discard()
	}

	return &ObservationPruner{
		store:    s,
		days:     cfg.RetentionDays,
		interval: interval,
		logger:   logger.With("component", "observation_pruner"),
		now:      func() time.Time { return time.Now().UTC() },
		done:     make(chan struct{}),
	}
}

// Start prunes once immediately, then on every interval until ctx is
// cancelled or Stop is called.
func (p *ObservationPruner) Start(ctx context.Context) {
	if p.days <= 0 {
		p.logger.Info(ctx, "plate observations kept forever, pruner idle")
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)

	p.logger.Info(ctx, "observation pruner started",
		"retention_days", p.days, "interval", p.interval.String())
}

// Stop signals the pruner to exit and waits for it to finish.
func (p *ObservationPruner) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	<-p.done
}

// Pruned returns the number of observations removed since construction.
func (p *ObservationPruner) Pruned() int64 { return p.pruned.Load() }

// Cutoff is the start of the oldest UTC day still retained.
func (p *ObservationPruner) Cutoff() time.Time {
	return p.now().AddDate(0, 0, -p.days).Truncate(24 * time.Hour)
}

func (p *ObservationPruner) loop(ctx context.Context) {
	defer close(p.done)

	t := time.NewTimer(0)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.PruneOnce(ctx)
			t.Reset(p.interval)
		}
	}
}

// PruneOnce runs a single pass and returns the number of observations
// removed in it.
func (p *ObservationPruner) PruneOnce(ctx context.Context) int64 {
	if p.days <= 0 {
		return 0
	}
	cutoff := p.Cutoff()
	deleted, err := p.store.PruneObservationsOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error(ctx, "observation prune failed", "cutoff", cutoff.Format(time.DateOnly), "error", err)
		return 0
	}
	total := p.pruned.Add(deleted)
	if deleted > 0 {
		p.logger.Info(ctx, "plate observations pruned",
			"deleted", deleted,
			"kept_from", cutoff.Format(time.DateOnly),
			"retention_days", p.days,
			"total_pruned", total)
	}
	return deleted
}
