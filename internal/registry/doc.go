// Package registry implements the name-keyed tool dispatch table.
//
// The registry is the single dispatch point for tool calls: backends register
// handlers under a tool name instead of being switched over by name. It is
// safe for concurrent use; listing never blocks on a running handler.
package registry
