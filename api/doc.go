// Package api provides HTTP REST API handlers for the rover mission
// simulator.
//
// Endpoints:
//
// Stateless:
//   - POST /api/simulate - Ingest and execute a mission in one call
//
// Session Management:
//   - POST /api/sessions - Create a session from {"mission_id"} or {"input"}
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get one session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Mission Operations:
//   - POST /api/sessions/{id}/execute - Run the batch (once; repeats return the stored result)
//   - POST /api/sessions/{id}/reset - Rebuild the session from its input
//   - GET /api/sessions/{id}/history - Step history (?page=&limit=&order=)
//
// Presets:
//   - GET /api/missions - List mission presets
//   - POST /api/missions - Save a preset {"name", "input"}
//   - GET /api/missions/{name} - Get one preset
//
// Other:
//   - GET /api - Route index
//   - GET /health - Liveness
//   - GET /ws?session={id} - WebSocket subscription to a session
//
// Request/Response Format:
//
// /api/simulate accepts the mission description as a text/plain body or as
// {"input": "..."} JSON. Everything else speaks JSON.
//
// A run that stops on a collision or an out-of-bounds move is still a 200:
// the result has "success": false and a "failure" object naming the kind,
// the rover and the coordinate. Malformed input is a 400:
//
//	{
//	  "error": "line 3: \"LMX\" is not a valid sequence of rover instructions, ...",
//	  "failure": {"kind": "format", "line": 3, "text": "LMX", ...}
//	}
//
// Unknown sessions and presets are 404, everything else {"error": "..."}
// with a 500.
package api
