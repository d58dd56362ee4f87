package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/xpulse/pkg/engage"
)

// Notification is the data sent to alert destinations after a comparison.
type Notification struct {
	Title      string             `json:"title"`
	Body       string             `json:"body"`
	Comparison *engage.Comparison `json:"comparison"`
}

// NewNotification builds a notification summarizing a comparison run.
func NewNotification(cmp *engage.Comparison) *Notification {
	n := &Notification{Comparison: cmp}
	if cmp.Winner != nil {
		n.Title = fmt.Sprintf("@%s wins on engagement", cmp.Winner.Handle)
		n.Body = fmt.Sprintf("%.2f%% engagement rate over %d tweets (%d followers)",
			cmp.Winner.EngagementRate, cmp.Winner.TweetsAnalyzed, cmp.Winner.Followers)
	} else {
		n.Title = "Engagement comparison produced no results"
	}
	if cmp.Synthetic {
		n.Body += "\n" + cmp.Disclaimer
	}
	return n
}

// Notifier delivers notifications to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
