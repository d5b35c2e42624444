// Package protocol implements the tool-calling client and its connection
// state machine.
//
// A Client moves through Disconnected -> Connecting -> [Connected ->]
// Initializing -> Ready. Any state may fall into Error, and Disconnect always
// returns to Disconnected. Observers registered with Observe see every
// transition synchronously, in order, before the triggering call returns,
// which keeps state sequences deterministic in tests.
//
// The handshake is pluggable. InProcessHandshaker completes it without any
// round-trip; SessionHandshaker runs the real MCP initialize exchange through
// the official SDK over any transport and captures the server's capabilities:
//
//	hs := protocol.NewSessionHandshaker(&mcp.Implementation{Name: "router"}, factory)
//	client := protocol.NewClient(log, protocol.WithHandshaker(hs))
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//
// Disconnect clears every registered tool; the owning application re-registers
// them after the next Connect.
package protocol
