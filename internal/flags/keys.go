package flags

// Persisted settings keys.
const (
	KeyState                 = "migration.state"
	KeyEnabledCategories     = "migration.enabled_categories"
	KeyPerformanceMonitoring = "migration.performance_monitoring"
	KeyDebugLogging          = "migration.debug_logging"
	KeyLastRollback          = "migration.last_rollback"

	errorCountPrefix = "migration.error_count."
	slowCountPrefix  = "migration.slow_count."
)

// ErrorCountKey returns the key of tool's persisted new-path error counter.
func ErrorCountKey(tool string) string { return errorCountPrefix + tool }

// SlowCountKey returns the key of tool's persisted slow-execution counter.
func SlowCountKey(tool string) string { return slowCountPrefix + tool }
