// Package flags implements the migration engine: the single source of truth
// for whether a tool call takes the new protocol path or the legacy path.
//
// Routing by state:
//
//	legacy           never the new path
//	hybrid           the new path iff the tool's category is enabled
//	newWithFallback  the new path, falling back to legacy on failure
//	newOnly          the new path, no fallback
//
// The engine also keeps the last BufferCapacity executions per path, persists
// per-tool error and slow-execution counters, and offers an emergency
// rollback that forces the legacy state until it is explicitly changed.
package flags
