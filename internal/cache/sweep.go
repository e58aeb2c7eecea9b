package cache

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is the daily cadence generations are validated on.
const DefaultSweepInterval = 24 * time.Hour

// StartSweeper runs a background goroutine that periodically deletes
// generations whose embedded date is no longer today. This is a secondary
// safety net beyond activation cleanup, covering a process that stays
// alive across a day boundary without a new install/activate cycle.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("cache sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				if _, err := m.Sweep(); err != nil {
					slog.Error("cache sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("cache sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// Sweep deletes every generation whose embedded date is not the current
// calendar date and reports how many were deleted. A tick arriving while a
// previous sweep is still running is skipped.
func (m *Manager) Sweep() (int, error) {
	if !m.sweeping.CompareAndSwap(false, true) {
		slog.Debug("cache sweep still running, skipping tick")
		return 0, nil
	}
	defer m.sweeping.Store(false)

	today := m.cache.now()
	generations, err := m.cache.Generations()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range generations {
		if !stale(m.cache.prefix, name, today) {
			continue
		}
		if err := m.cache.DropGeneration(name); err != nil {
			return deleted, err
		}
		slog.Info("swept stale cache generation", "generation", name)
		deleted++
	}
	return deleted, nil
}
