// Package websocket provides WebSocket transport for the rover mission
// simulator.
//
// The websocket package implements:
//   - Session-scoped subscriptions (ws://host/ws?session=<id>)
//   - Broadcast of run results and session events
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// A central Hub owns every connection. Registration, unregistration and
// broadcasts are all funneled through channels into the Run goroutine, so the
// subscriber map needs no lock. Each client has a read pump (keepalive only)
// and a write pump.
//
// Message Protocol:
//
// Every frame is one JSON object:
//
//	{"session_id":"a1b2","event":"run_complete","result":{...}}
//	{"session_id":"a1b2","event":"reset","data":{...}}
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastRun(sessionID, result)
package websocket
