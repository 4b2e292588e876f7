// Package service provides the business logic layer for the rover mission
// simulator.
//
// The service package implements:
//   - Stateless one-shot simulation of a mission description
//   - Multi-session mission management (create, execute, reset, delete)
//   - Mission preset listing and loading
//   - Paginated step history
//
// Core Interfaces:
//
// MissionService is the main service interface used by the REST API, the
// WebSocket hub and the MCP tools. SessionManager stores sessions and
// MissionManager loads named mission presets.
//
// Architecture:
//
// The service sits between the transports and the controller. Each session
// owns its own controller; a session executes its batch at most once and
// keeps the result, so repeated Execute calls are cheap and deterministic.
// Safety violations (collision, out of bounds) are not service errors: they
// are reported inside RunResult.Failure. Malformed input is an error
// wrapping controller.ErrFormat.
//
// Usage:
//
//	svc := service.NewMissionService(session.NewManager(), missions)
//	info, err := svc.CreateSession(ctx, "", "5 5\n1 2 N\nLMLMLMLMM")
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := svc.Execute(ctx, info.ID)
//	fmt.Println(result.Reports) // [1 3 N]
package service
