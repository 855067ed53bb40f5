package application

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessionsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "waveai_sessions_swept_total",
	Help: "Expired session records deleted by the sweep.",
})

// RunSweeper calls SessionManager.Sweep every period until ctx is done.
// Failures are logged and the loop keeps going.
func RunSweeper(ctx context.Context, m *SessionManager, period time.Duration) {
	if period <= 0 {
		return
	}
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			SweepOnce(ctx, m)
		}
	}
}

// SweepOnce runs a single sweep and records the deletions.
func SweepOnce(ctx context.Context, m *SessionManager) (int, error) {
	n, err := m.Sweep(ctx)
	if n > 0 {
		sessionsSweptTotal.Add(float64(n))
	}
	if err != nil && m.Logger != nil {
		m.Logger.WithError(err).Warn("session sweep failed")
	}
	return n, err
}
