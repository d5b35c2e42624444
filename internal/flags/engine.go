package flags

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/voice-tool-router/internal/observability"
	"github.com/wagiedev/voice-tool-router/internal/ringbuf"
	"github.com/wagiedev/voice-tool-router/internal/store"
)

const (
	// BufferCapacity bounds each path's execution history.
	BufferCapacity = 100

	// SlowExecutionThreshold is the new-path duration above which an
	// execution counts as slow.
	SlowExecutionThreshold = 5 * time.Second

	// SlowWarningCount is the cumulative slow-execution count at which
	// every further slow execution is logged as a warning.
	SlowWarningCount = 3

	// ErrorWarningCount is the new-path error count past which fallback is
	// still allowed but logged as a warning.
	ErrorWarningCount = 3
)

// Engine decides per tool call whether to use the new or the legacy path,
// aggregates execution telemetry and implements emergency rollback.
//
// Decision methods never fail. Mutations are persisted synchronously; a store
// failure is logged and the in-memory value still takes effect.
type Engine struct {
	log   *slog.Logger
	store store.Store
	now   func() time.Time

	mu         sync.RWMutex
	state      MigrationState
	enabled    map[Category]struct{}
	monitoring bool
	debug      bool

	newPath    *ringbuf.Buffer[ToolExecution]
	legacyPath *ringbuf.Buffer[ToolExecution]

	// counterMu serializes read-modify-write of persisted counters.
	counterMu sync.Mutex

	subMu   sync.RWMutex
	subs    map[int]Subscriber
	nextSub int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New loads the engine from st. Missing or unknown persisted values fall back
// to the hybrid state with the location category enabled; the transport
// category is always enabled at startup and the result is persisted.
// A nil logger disables logging.
func New(log *slog.Logger, st store.Store, opts ...Option) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := &Engine{
		log:        log.With("component", "migration_engine"),
		store:      st,
		now:        time.Now,
		enabled:    make(map[Category]struct{}, len(allCategories)),
		newPath:    ringbuf.New[ToolExecution](BufferCapacity),
		legacyPath: ringbuf.New[ToolExecution](BufferCapacity),
		subs:       make(map[int]Subscriber, 4),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.load()

	return e
}

func (e *Engine) load() {
	e.state = DefaultState

	if raw, ok, err := e.store.Get(KeyState); err != nil {
		e.log.Warn("Failed to load migration state", "error", err)
	} else if ok {
		if st, err := ParseMigrationState(raw); err == nil {
			e.state = st
		} else {
			e.log.Warn("Ignoring persisted migration state", "value", raw)
		}
	}

	var names []string

	found, err := store.GetJSON(e.store, KeyEnabledCategories, &names)
	switch {
	case err != nil:
		e.log.Warn("Ignoring persisted categories", "error", err)
		e.enabled[DefaultCategory] = struct{}{}
	case !found:
		e.enabled[DefaultCategory] = struct{}{}
	default:
		for _, name := range names {
			if c := Category(name); c.Valid() {
				e.enabled[c] = struct{}{}
			} else {
				e.log.Warn("Dropping unknown persisted category", "category", name)
			}
		}
	}

	e.enabled[CategoryTransport] = struct{}{}

	if e.monitoring, err = store.GetBool(e.store, KeyPerformanceMonitoring, true); err != nil {
		e.log.Warn("Failed to load performance monitoring toggle", "error", err)
	}

	if e.debug, err = store.GetBool(e.store, KeyDebugLogging, false); err != nil {
		e.log.Warn("Failed to load debug logging toggle", "error", err)
	}

	e.persistStateLocked()
	e.persistCategoriesLocked()
	e.publishGaugesLocked()

	e.log.Info("Migration engine loaded",
		"state", e.state,
		"categories", e.enabledLocked(),
		"performance_monitoring", e.monitoring,
	)
}

// State returns the current migration state.
func (e *Engine) State() MigrationState {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.state
}

// EnabledCategories returns the categories enabled for the new path in
// canonical order.
func (e *Engine) EnabledCategories() []Category {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.enabledLocked()
}

func (e *Engine) enabledLocked() []Category {
	out := make([]Category, 0, len(e.enabled))
	for c := range e.enabled {
		out = append(out, c)
	}

	sortCategories(out)

	return out
}

// IsCategoryEnabled reports whether c is enabled for the new path.
func (e *Engine) IsCategoryEnabled(c Category) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, ok := e.enabled[c]

	return ok
}

// CategoryFor returns the category of tool. Unmapped tools are assigned
// DefaultCategory and a warning is logged.
func (e *Engine) CategoryFor(tool string) Category {
	if c, ok := LookupCategory(tool); ok {
		return c
	}

	e.log.Warn("Tool has no category mapping, using default", "tool", tool, "category", DefaultCategory)

	return DefaultCategory
}

// ShouldUseNewPath reports whether a call to tool should go through the new
// path.
func (e *Engine) ShouldUseNewPath(tool string) bool {
	e.mu.RLock()
	state := e.state
	debug := e.debug
	e.mu.RUnlock()

	var decision bool

	switch state {
	case StateHybrid:
		decision = e.IsCategoryEnabled(e.CategoryFor(tool))
	case StateNewWithFallback, StateNewOnly:
		decision = true
	default:
		decision = false
	}

	if debug {
		e.log.Info("Routing decision", "tool", tool, "state", state, "new_path", decision)
	}

	return decision
}

// ShouldFallbackToLegacy reports whether a failed new-path call to tool may
// be retried on the legacy path. Only the newOnly state forbids fallback.
// In newWithFallback, tools at or past ErrorWarningCount persisted errors are
// logged but still fall back.
func (e *Engine) ShouldFallbackToLegacy(tool string, cause error) bool {
	e.mu.RLock()
	state := e.state
	e.mu.RUnlock()

	switch state {
	case StateNewOnly:
		return false
	case StateNewWithFallback:
		if n := e.ErrorCount(tool); n >= ErrorWarningCount {
			e.log.Warn("Tool keeps failing on the new path, falling back anyway",
				"tool", tool,
				"error_count", n,
				"error", cause,
			)
		}

		return true
	default:
		return true
	}
}

// SetMigrationState changes and persists the migration state.
func (e *Engine) SetMigrationState(st MigrationState) error {
	if _, err := ParseMigrationState(string(st)); err != nil {
		return err
	}

	e.mu.Lock()
	prev := e.state
	e.state = st
	e.persistStateLocked()
	e.publishGaugesLocked()
	e.mu.Unlock()

	if prev == st {
		return nil
	}

	e.log.Info("Migration state changed", "from", prev, "to", st)
	e.emit(Event{Type: EventStateChanged, State: st, PreviousState: prev})

	return nil
}

// EnableCategory enables c for the new path.
func (e *Engine) EnableCategory(c Category) error {
	return e.setCategories(true, c)
}

// DisableCategory disables c for the new path.
func (e *Engine) DisableCategory(c Category) error {
	return e.setCategories(false, c)
}

// EnableAll enables every category.
func (e *Engine) EnableAll() {
	_ = e.setCategories(true, allCategories...)
}

// DisableAll disables every category.
func (e *Engine) DisableAll() {
	_ = e.setCategories(false, allCategories...)
}

func (e *Engine) setCategories(enable bool, cats ...Category) error {
	for _, c := range cats {
		if !c.Valid() {
			return fmt.Errorf("unknown category %q", c)
		}
	}

	e.mu.Lock()

	changed := make([]Category, 0, len(cats))

	for _, c := range cats {
		_, on := e.enabled[c]

		switch {
		case enable && !on:
			e.enabled[c] = struct{}{}
			changed = append(changed, c)
		case !enable && on:
			delete(e.enabled, c)
			changed = append(changed, c)
		}
	}

	e.persistCategoriesLocked()
	e.publishGaugesLocked()
	e.mu.Unlock()

	typ := EventCategoryDisabled
	if enable {
		typ = EventCategoryEnabled
	}

	for _, c := range changed {
		e.log.Info("Category toggled", "category", c, "enabled", enable)
		e.emit(Event{Type: typ, Category: c})
	}

	return nil
}

// RecordExecution appends an execution to the path's buffer and updates the
// persisted per-tool counters. It does nothing while performance monitoring
// is off.
func (e *Engine) RecordExecution(tool string, usedNewPath bool, duration time.Duration, success bool, cause error) {
	if !e.PerformanceMonitoring() {
		return
	}

	exec := ToolExecution{
		ID:              ulid.Make().String(),
		ToolName:        tool,
		Timestamp:       e.now(),
		DurationSeconds: duration.Seconds(),
		Success:         success,
	}

	if cause != nil {
		exec.ErrorMessage = cause.Error()
	}

	path := PathLegacy
	buf := e.legacyPath

	if usedNewPath {
		path = PathNew
		buf = e.newPath
	}

	buf.Push(exec)

	outcome := "success"
	if !success {
		outcome = "failure"
	}

	observability.ToolExecutionsTotal.WithLabelValues(string(path), outcome).Inc()
	observability.ToolExecutionSeconds.WithLabelValues(string(path)).Observe(exec.DurationSeconds)

	if usedNewPath && duration > SlowExecutionThreshold {
		observability.SlowExecutionsTotal.Inc()

		if n := e.incrementCounter(SlowCountKey(tool)); n >= SlowWarningCount {
			e.log.Warn("Tool is repeatedly slow on the new path",
				"tool", tool,
				"duration", duration,
				"slow_count", n,
			)
		}
	}

	if usedNewPath && !success && cause != nil {
		n := e.incrementCounter(ErrorCountKey(tool))
		e.log.Warn("Tool failed on the new path", "tool", tool, "error_count", n, "error", cause)
	}
}

func (e *Engine) incrementCounter(key string) int64 {
	e.counterMu.Lock()
	defer e.counterMu.Unlock()

	n, err := store.GetInt(e.store, key, 0)
	if err != nil {
		e.log.Warn("Failed to read counter", "key", key, "error", err)
	}

	n++

	if err := store.SetInt(e.store, key, n); err != nil {
		e.log.Warn("Failed to persist counter", "key", key, "error", err)
	}

	return n
}

// ErrorCount returns tool's persisted new-path error count.
func (e *Engine) ErrorCount(tool string) int64 {
	return e.readCounter(ErrorCountKey(tool))
}

// SlowCount returns tool's persisted slow-execution count.
func (e *Engine) SlowCount(tool string) int64 {
	return e.readCounter(SlowCountKey(tool))
}

func (e *Engine) readCounter(key string) int64 {
	n, err := store.GetInt(e.store, key, 0)
	if err != nil {
		e.log.Warn("Failed to read counter", "key", key, "error", err)
	}

	return n
}

// ResetCounters clears tool's persisted error and slow counters.
// Counters are never reset automatically.
func (e *Engine) ResetCounters(tool string) {
	e.counterMu.Lock()
	defer e.counterMu.Unlock()

	for _, key := range []string{ErrorCountKey(tool), SlowCountKey(tool)} {
		if err := e.store.Delete(key); err != nil {
			e.log.Warn("Failed to reset counter", "key", key, "error", err)
		}
	}

	e.log.Info("Counters reset", "tool", tool)
}

// EmergencyRollback forces the legacy state and disables every category.
// The rollback stays in effect until the state is changed explicitly.
func (e *Engine) EmergencyRollback(reason string) {
	e.mu.Lock()

	record := RollbackRecord{
		Reason:        reason,
		Timestamp:     e.now(),
		PreviousState: e.state,
	}

	e.state = StateLegacy
	clear(e.enabled)

	e.persistStateLocked()
	e.persistCategoriesLocked()
	e.publishGaugesLocked()

	if err := store.SetJSON(e.store, KeyLastRollback, record); err != nil {
		e.log.Error("Failed to persist rollback record", "error", err)
	}

	e.mu.Unlock()

	observability.RollbacksTotal.Inc()
	e.log.Error("Emergency rollback to legacy path", "reason", reason, "previous_state", record.PreviousState)
	e.emit(Event{
		Type:          EventEmergencyRollback,
		State:         StateLegacy,
		PreviousState: record.PreviousState,
		Reason:        reason,
	})
}

// LastRollback returns the persisted record of the most recent rollback.
func (e *Engine) LastRollback() (RollbackRecord, bool) {
	var record RollbackRecord

	found, err := store.GetJSON(e.store, KeyLastRollback, &record)
	if err != nil {
		e.log.Warn("Failed to load rollback record", "error", err)

		return RollbackRecord{}, false
	}

	return record, found
}

// PerformanceMonitoring reports whether executions are being recorded.
func (e *Engine) PerformanceMonitoring() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.monitoring
}

// SetPerformanceMonitoring turns execution recording on or off.
func (e *Engine) SetPerformanceMonitoring(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.monitoring = on
	e.persistBoolLocked(KeyPerformanceMonitoring, on)
}

// DebugLogging reports whether routing decisions are logged.
func (e *Engine) DebugLogging() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.debug
}

// SetDebugLogging turns logging of every routing decision on or off.
func (e *Engine) SetDebugLogging(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.debug = on
	e.persistBoolLocked(KeyDebugLogging, on)
}

func (e *Engine) buffer(path Path) *ringbuf.Buffer[ToolExecution] {
	if path == PathNew {
		return e.newPath
	}

	return e.legacyPath
}

// Executions returns a copy of path's execution buffer, oldest first.
func (e *Engine) Executions(path Path) []ToolExecution {
	return e.buffer(path).Items()
}

// ExecutionsSince returns path's executions recorded at or after position
// pos and the position to resume from.
func (e *Engine) ExecutionsSince(path Path, pos int64) ([]ToolExecution, int64) {
	return e.buffer(path).Since(pos)
}

// AverageLatency returns the mean duration in seconds over path's buffer,
// or 0 when it is empty.
func (e *Engine) AverageLatency(path Path) float64 {
	items := e.Executions(path)
	if len(items) == 0 {
		return 0
	}

	var sum float64
	for _, it := range items {
		sum += it.DurationSeconds
	}

	return sum / float64(len(items))
}

// SuccessRate returns the fraction of successful executions in path's
// buffer. An empty buffer yields 1.
func (e *Engine) SuccessRate(path Path) float64 {
	items := e.Executions(path)
	if len(items) == 0 {
		return 1
	}

	ok := 0

	for _, it := range items {
		if it.Success {
			ok++
		}
	}

	return float64(ok) / float64(len(items))
}

// Snapshot returns the engine's current status.
func (e *Engine) Snapshot() Status {
	e.mu.RLock()
	st := Status{
		State:                 e.state,
		EnabledCategories:     e.enabledLocked(),
		PerformanceMonitoring: e.monitoring,
		DebugLogging:          e.debug,
	}
	e.mu.RUnlock()

	st.NewPath = e.pathStats(PathNew)
	st.LegacyPath = e.pathStats(PathLegacy)
	st.ErrorCounts = e.counters(errorCountPrefix)
	st.SlowCounts = e.counters(slowCountPrefix)

	if record, ok := e.LastRollback(); ok {
		st.LastRollback = &record
	}

	return st
}

func (e *Engine) pathStats(path Path) PathStats {
	return PathStats{
		Executions:            e.buffer(path).Len(),
		AverageLatencySeconds: e.AverageLatency(path),
		SuccessRate:           e.SuccessRate(path),
	}
}

func (e *Engine) counters(prefix string) map[string]int64 {
	out := make(map[string]int64)

	values, err := e.store.List(prefix)
	if err != nil {
		e.log.Warn("Failed to list counters", "prefix", prefix, "error", err)

		return out
	}

	for key, raw := range values {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}

		out[strings.TrimPrefix(key, prefix)] = n
	}

	return out
}

// Subscribe registers fn for engine events and returns a function that
// removes it. Subscribers run synchronously in registration order.
func (e *Engine) Subscribe(fn Subscriber) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn

	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()

		delete(e.subs, id)
	}
}

func (e *Engine) emit(ev Event) {
	ev.ID = ulid.Make().String()
	ev.Timestamp = e.now()

	e.subMu.RLock()
	ids := make([]int, 0, len(e.subs))

	for id := range e.subs {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	subs := make([]Subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, e.subs[id])
	}
	e.subMu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (e *Engine) persistStateLocked() {
	if err := e.store.Set(KeyState, string(e.state)); err != nil {
		e.log.Error("Failed to persist migration state", "error", err)
	}
}

func (e *Engine) persistCategoriesLocked() {
	names := make([]string, 0, len(e.enabled))
	for _, c := range e.enabledLocked() {
		names = append(names, string(c))
	}

	if err := store.SetJSON(e.store, KeyEnabledCategories, names); err != nil {
		e.log.Error("Failed to persist enabled categories", "error", err)
	}
}

func (e *Engine) persistBoolLocked(key string, v bool) {
	if err := store.SetBool(e.store, key, v); err != nil {
		e.log.Error("Failed to persist setting", "key", key, "error", err)
	}
}

func (e *Engine) publishGaugesLocked() {
	states := make([]string, len(allStates))
	for i, s := range allStates {
		states[i] = string(s)
	}

	observability.SetActive(observability.MigrationState, string(e.state), states...)

	for _, c := range allCategories {
		v := 0.0
		if _, ok := e.enabled[c]; ok {
			v = 1
		}

		observability.EnabledCategories.WithLabelValues(string(c)).Set(v)
	}
}
