// Package session provides session management for the rover mission
// simulator.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short random session IDs, matched case-insensitively
//   - Expiry of idle sessions
//   - Optional JSON file persistence
//
// Each session owns its own controller, built by ingesting the session's
// mission input at creation. Input that fails ingestion never becomes a
// session.
//
// Persistence:
//
// FilePersistence writes one <id>.json file per session holding the mission
// input, timestamps and the last run result. Controller state is not
// serialized: loading re-ingests the input and, if the batch had run,
// executes it again to reach the same final state.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Printf("Warning: %v", err)
//	}
//
//	sess, err := manager.Create("", "classic", input)
package session
