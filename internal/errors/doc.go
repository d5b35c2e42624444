// Package errors defines error types for the tool router.
//
// Structural failures (not connected, unknown tool, failed handshake) are
// typed so callers can branch with errors.Is and errors.As. The migration
// engine never returns errors; everything here originates in the registry,
// the protocol client, backends or the coordinator.
package errors
