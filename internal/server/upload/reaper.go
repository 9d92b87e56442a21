package upload

import (
	"context"
	"log/slog"
	"time"
)

// Run expires idle sessions and purges old terminal records every reap interval
// until ctx is cancelled.
func (m *SessionManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()

	slog.Info("upload reaper start", "interval", m.config.ReapInterval, "timeout", m.config.SessionTimeout)
	for {
		select {
		case <-ctx.Done():
			slog.Info("upload reaper stop")
			return nil
		case <-ticker.C:
			if _, _, err := m.Reap(ctx); err != nil {
				slog.Error("upload reaper", "error", err)
			}
		}
	}
}

// Reap runs one expiry pass and returns the number of sessions expired and records purged.
// A session that is receiving a chunk or completing is skipped, its state lock is
// never held across a request.
func (m *SessionManager) Reap(ctx context.Context) (int, int64, error) {
	m.mu.Lock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	expired := 0
	for _, e := range entries {
		e.mu.Lock()
		if !e.closed && m.expireIfIdleLocked(ctx, e) {
			expired++
		}
		e.mu.Unlock()
	}

	purged, err := m.index.PurgeTerminal(ctx, m.now().Add(-m.config.Retention))
	if err != nil {
		return expired, 0, err
	}

	if expired > 0 || purged > 0 {
		slog.Info("upload reaper pass", "expired", expired, "purged", purged)
	}
	return expired, purged, nil
}
