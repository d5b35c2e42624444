// Package backend connects tool servers to the protocol client.
//
// A ToolServer is anything that can list and call tools: Local serves tools
// in-process from a registry, while Session talks to a real MCP server over
// any SDK transport (in-memory pipes, a child process, streamable HTTP or
// SSE). Mount discovers every server's tools concurrently and registers a
// forwarding handler per tool with a protocol client, so the client dispatches
// by name without knowing which server owns a tool.
package backend
