// Package mcp provides a Model Context Protocol server for the rover mission
// simulator.
//
// The server is a thin proxy: every tool call is turned into a request
// against the REST API and the JSON answer is rendered as text for the
// agent.
//
// MCP Tools:
//   - simulate: Run a mission description end to end
//   - create_session: Create a session from a preset or raw input
//   - execute_session: Execute a session's batch
//   - get_session: Get session details
//   - list_sessions: List sessions
//   - reset_session: Rebuild a session from its input
//   - session_history: Paginated step history
//   - list_missions: List mission presets
//   - rover_instructions: Input format and rules
//
// Transport Modes:
//
// The same server is reachable over stdio (rover mcp) and through the
// POST /mcp endpoint of rover serve.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
