// Package notify signals downstream consumers that a user's derived
// portfolio data is stale. Delivery is fire-and-forget: the core never waits
// on or fails because of a notification.
package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Notifier receives change signals. One method per event kind so tests can
// assert exactly which notifications fired.
type Notifier interface {
	// PortfolioChanged marks every portfolio-derived value for the user as
	// stale. Implementations must not block the caller.
	PortfolioChanged(ctx context.Context, userID string)
}

// LogNotifier writes each signal to the log. It stands in for a real event
// bus in single-instance deployments.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a notifier that only logs.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) PortfolioChanged(ctx context.Context, userID string) {
	n.log.Info().Str("user_id", userID).Msg("Portfolio changed")
}

// Recorder captures signals for assertions in tests.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PortfolioChanged(ctx context.Context, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, userID)
}

// Events returns the user ids notified so far, in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Recorder)(nil)
)
