package config

import (
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/wagiedev/voice-tool-router/internal/flags"
)

// Apply pushes the pinned migration settings into engine. Only fields set in
// the file are applied. When enabled_categories is present it becomes the
// exact enabled set, except that transport is never disabled from config.
func (m MigrationConfig) Apply(engine *flags.Engine) error {
	if m.State != "" {
		st, err := flags.ParseMigrationState(m.State)
		if err != nil {
			return err
		}

		if err := engine.SetMigrationState(st); err != nil {
			return err
		}
	}

	if m.EnabledCategories != nil {
		want := make(map[flags.Category]struct{}, len(m.EnabledCategories))
		for _, name := range m.EnabledCategories {
			want[flags.Category(name)] = struct{}{}
		}

		for _, c := range flags.AllCategories() {
			var err error

			_, ok := want[c]

			switch {
			case ok:
				err = engine.EnableCategory(c)
			case c == flags.CategoryTransport:
				// Transport stays on until an operator disables it at runtime.
				continue
			default:
				err = engine.DisableCategory(c)
			}

			if err != nil {
				return err
			}
		}
	}

	if m.PerformanceMonitoring != nil {
		engine.SetPerformanceMonitoring(*m.PerformanceMonitoring)
	}

	if m.DebugLogging != nil {
		engine.SetDebugLogging(*m.DebugLogging)
	}

	return nil
}

// Changes returns the fields of m that differ from prev. Fields removed from
// the file are left unset, so they never touch the engine.
func (m MigrationConfig) Changes(prev MigrationConfig) MigrationConfig {
	var out MigrationConfig

	if m.State != "" && m.State != prev.State {
		out.State = m.State
	}

	if m.EnabledCategories != nil && (prev.EnabledCategories == nil || !sameSet(m.EnabledCategories, prev.EnabledCategories)) {
		out.EnabledCategories = m.EnabledCategories
	}

	if m.PerformanceMonitoring != nil && !sameBool(m.PerformanceMonitoring, prev.PerformanceMonitoring) {
		out.PerformanceMonitoring = m.PerformanceMonitoring
	}

	if m.DebugLogging != nil && !sameBool(m.DebugLogging, prev.DebugLogging) {
		out.DebugLogging = m.DebugLogging
	}

	return out
}

// IsZero reports whether no migration field is set.
func (m MigrationConfig) IsZero() bool {
	return m.State == "" && m.EnabledCategories == nil &&
		m.PerformanceMonitoring == nil && m.DebugLogging == nil
}

func sameSet(a, b []string) bool {
	x := slices.Clone(a)
	y := slices.Clone(b)

	slices.Sort(x)
	slices.Sort(y)

	return slices.Equal(slices.Compact(x), slices.Compact(y))
}

func sameBool(a, b *bool) bool {
	return b != nil && *a == *b
}

// MigrationReloader applies reloaded [migration] blocks to an engine. Only
// fields edited since the previous load reach the engine, so runtime changes
// such as an emergency rollback survive a reload that does not touch them.
type MigrationReloader struct {
	log    *slog.Logger
	engine *flags.Engine

	mu      sync.Mutex
	applied MigrationConfig
}

// NewMigrationReloader returns a reloader that treats initial as already applied.
func NewMigrationReloader(log *slog.Logger, engine *flags.Engine, initial MigrationConfig) *MigrationReloader {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &MigrationReloader{
		log:     log.With("component", "migration_reloader"),
		engine:  engine,
		applied: initial,
	}
}

// Reload applies the fields of next that changed since the last load.
func (r *MigrationReloader) Reload(next MigrationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changes := next.Changes(r.applied)
	r.applied = next

	if changes.IsZero() {
		r.log.Debug("Migration config unchanged")

		return nil
	}

	r.log.Info("Applying migration config changes",
		"state", changes.State,
		"enabled_categories", changes.EnabledCategories,
	)

	return changes.Apply(r.engine)
}
