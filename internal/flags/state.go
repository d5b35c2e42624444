package flags

import (
	"fmt"
	"time"
)

// MigrationState is the process-wide mode deciding between the new and the
// legacy execution path.
type MigrationState string

// Migration states.
const (
	StateLegacy          MigrationState = "legacy"
	StateHybrid          MigrationState = "hybrid"
	StateNewWithFallback MigrationState = "newWithFallback"
	StateNewOnly         MigrationState = "newOnly"
)

// DefaultState is used when no valid state was persisted.
const DefaultState = StateHybrid

var allStates = []MigrationState{StateLegacy, StateHybrid, StateNewWithFallback, StateNewOnly}

// AllStates returns every migration state.
func AllStates() []MigrationState {
	return append([]MigrationState(nil), allStates...)
}

// ParseMigrationState parses a persisted or user-supplied state name.
func ParseMigrationState(s string) (MigrationState, error) {
	for _, st := range allStates {
		if string(st) == s {
			return st, nil
		}
	}

	return "", fmt.Errorf("unknown migration state %q", s)
}

// Path identifies one of the two execution paths.
type Path string

// Execution paths.
const (
	PathNew    Path = "new"
	PathLegacy Path = "legacy"
)

// ParsePath parses a path name.
func ParsePath(s string) (Path, error) {
	switch Path(s) {
	case PathNew, PathLegacy:
		return Path(s), nil
	default:
		return "", fmt.Errorf("unknown execution path %q", s)
	}
}

// ToolExecution is one recorded tool call.
type ToolExecution struct {
	ID              string    `json:"id"`
	ToolName        string    `json:"toolName"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"durationSeconds"`
	Success         bool      `json:"success"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
}

// RollbackRecord describes the last emergency rollback.
type RollbackRecord struct {
	Reason        string         `json:"reason"`
	Timestamp     time.Time      `json:"timestamp"`
	PreviousState MigrationState `json:"previousState"`
}

// PathStats summarizes one execution path's buffer.
type PathStats struct {
	Executions            int     `json:"executions"`
	AverageLatencySeconds float64 `json:"averageLatencySeconds"`
	SuccessRate           float64 `json:"successRate"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	State                 MigrationState   `json:"state"`
	EnabledCategories     []Category       `json:"enabledCategories"`
	PerformanceMonitoring bool             `json:"performanceMonitoring"`
	DebugLogging          bool             `json:"debugLogging"`
	NewPath               PathStats        `json:"newPath"`
	LegacyPath            PathStats        `json:"legacyPath"`
	ErrorCounts           map[string]int64 `json:"errorCounts"`
	SlowCounts            map[string]int64 `json:"slowCounts"`
	LastRollback          *RollbackRecord  `json:"lastRollback,omitempty"`
}
