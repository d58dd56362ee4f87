package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/elonfeng/xpulse/pkg/alert"
	"github.com/elonfeng/xpulse/pkg/engage"
)

// Scheduler re-runs comparisons for configured handle groups on an interval
// and broadcasts each summary to the alert destinations.
type Scheduler struct {
	engine   *engage.Engine
	alertMgr *alert.Manager
	groups   [][]string
	interval time.Duration
}

// New creates a new scheduler.
func New(engine *engage.Engine, alertMgr *alert.Manager, groups [][]string, interval time.Duration) *Scheduler {
	if interval == 0 {
		interval = 30 * time.Minute
	}
	return &Scheduler{
		engine:   engine,
		alertMgr: alertMgr,
		groups:   groups,
		interval: interval,
	}
}

// Run starts the watch loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.groups) == 0 {
		return fmt.Errorf("no watch groups configured")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "watch: initial comparison...")
	s.compareAll(ctx)

	fmt.Fprintf(os.Stderr, "watch: running (every %s, %d groups)\n", s.interval, len(s.groups))

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "watch: stopped")
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprintln(os.Stderr, "watch: comparing...")
			s.compareAll(ctx)
		}
	}
}

func (s *Scheduler) compareAll(ctx context.Context) {
	for _, group := range s.groups {
		label := strings.Join(group, " vs ")

		cmp, err := s.engine.Compare(ctx, group)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s error: %v\n", label, err)
			continue
		}

		if cmp.Winner != nil {
			fmt.Fprintf(os.Stderr, "  %s: @%s wins at %.2f%%\n",
				label, cmp.Winner.Handle, cmp.Winner.EngagementRate)
		}

		if s.alertMgr == nil || !s.alertMgr.HasNotifiers() {
			continue
		}
		if err := s.alertMgr.Broadcast(ctx, alert.NewNotification(cmp)); err != nil {
			fmt.Fprintf(os.Stderr, "  alert error for %s: %v\n", label, err)
		}
	}
}
