// Package admin serves the router's HTTP control plane: status and tool
// inspection, migration controls, emergency rollback, a websocket stream of
// migration events and Prometheus metrics.
package admin
