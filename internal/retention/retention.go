// Package retention periodically prunes old events from the calendar
// writer on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "famcal/internal/log"
)

// Pruner removes events that ended before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Scheduler runs a Pruner on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	pruner Pruner
	keep   time.Duration
	now    func() time.Time
}

// New validates spec (standard 5-field cron) and registers the prune job.
// The schedule is evaluated in loc.
func New(spec string, keepDays int, pruner Pruner, loc *time.Location) (*Scheduler, error) {
	if pruner == nil {
		return nil, errors.New("retention: pruner is nil")
	}
	if keepDays <= 0 {
		return nil, fmt.Errorf("retention: keep_days must be positive, got %d", keepDays)
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		pruner: pruner,
		keep:   time.Duration(keepDays) * 24 * time.Hour,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("retention: invalid cron %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		appLog.Info("retention scheduled", "next", e.Next.Format(time.RFC3339), "keep", s.keep.String())
	}
}

// Stop stops the schedule and waits for a running prune to finish or ctx
// to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce prunes immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.keep)
	n, err := s.pruner.Prune(ctx, cutoff)
	if err != nil {
		return n, err
	}
	appLog.Info("retention prune completed", "removed", n, "cutoff", cutoff.Format(time.RFC3339))
	return n, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		appLog.Error("retention prune failed", err)
	}
}
