package session

import (
	"time"

	"github.com/wricardo/mars-rover/mission/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// Controller state is not stored: it is rebuilt from Input, and replayed when
// Executed is set, since a batch is deterministic.
type PersistedSessionData struct {
	ID             string             `json:"id"`
	MissionName    string             `json:"mission_name,omitempty"`
	Input          string             `json:"input"`
	Executed       bool               `json:"executed"`
	Result         *service.RunResult `json:"result,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
}
