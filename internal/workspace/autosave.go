package workspace

import (
	"context"
	"log/slog"
	"time"
)

// DefaultAutosaveInterval applies when the settings give no usable interval.
const DefaultAutosaveInterval = 5 * time.Second

// AutosaveSettings returns the current autosave preference. It is consulted
// on every tick so changes take effect without a restart.
type AutosaveSettings func() (enabled bool, interval time.Duration)

// Autosaver periodically saves the active note while it is dirty.
type Autosaver struct {
	store    *Store
	settings AutosaveSettings
	logger   *slog.Logger
}

// NewAutosaver creates an Autosaver for store.
func NewAutosaver(store *Store, settings AutosaveSettings, logger *slog.Logger) *Autosaver {
	return &Autosaver{store: store, settings: settings, logger: logger}
}

// Run ticks until ctx is cancelled.
func (a *Autosaver) Run(ctx context.Context) error {
	_, interval := a.read()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			enabled, next := a.read()
			if next != interval {
				interval = next
				ticker.Reset(interval)
				a.logger.Debug("autosave: interval changed", slog.Duration("interval", interval))
			}
			if !enabled {
				continue
			}
			// Errors are logged by the store; a dirty note is retried next tick.
			_ = a.store.SaveActiveNote(ctx)
		}
	}
}

func (a *Autosaver) read() (bool, time.Duration) {
	enabled, interval := a.settings()
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return enabled, interval
}
