package service

import (
	"time"

	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/rover"
)

// Failure kinds reported in RunResult.Failure
const (
	FailureFormat             = "format"
	FailureInvalidInstruction = "invalid_instruction"
	FailureOutOfBounds        = "out_of_bounds"
	FailureCollision          = "collision"
	FailureUnknown            = "unknown"
)

// SessionInfo provides information about a mission session
type SessionInfo struct {
	ID             string             `json:"id"`
	MissionName    string             `json:"mission_name,omitempty"`
	Input          string             `json:"input"`
	Plateau        controller.Plateau `json:"plateau"`
	Rovers         []RoverState       `json:"rovers"`
	Executed       bool               `json:"executed"`
	Result         *RunResult         `json:"result,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
}

// RoverState is a rover's current state plus its instruction string
type RoverState struct {
	Index        int            `json:"index"`
	Position     rover.Position `json:"position"`
	Heading      rover.Heading  `json:"heading"`
	Instructions string         `json:"instructions"`
	Report       string         `json:"report"`
}

// RunResult contains the outcome of executing a mission batch
type RunResult struct {
	RunID      string             `json:"run_id"`
	SessionID  string             `json:"session_id,omitempty"`
	Success    bool               `json:"success"`
	Plateau    controller.Plateau `json:"plateau"`
	Reports    []string           `json:"reports"`
	Rovers     []RoverState       `json:"rovers,omitempty"` // empty when ingestion failed
	Steps      []controller.Step  `json:"steps,omitempty"`
	TotalSteps int                `json:"total_steps"`
	Failure    *Failure           `json:"failure,omitempty"`
	ExecutedAt time.Time          `json:"executed_at"`
}

// Failure describes why a batch or an ingestion stopped
type Failure struct {
	Kind     string          `json:"kind"`
	Message  string          `json:"message"`
	Rover    int             `json:"rover"` // zero-based index, meaningful for safety failures
	Position *rover.Position `json:"position,omitempty"`
	Line     int             `json:"line,omitempty"`
	Text     string          `json:"text,omitempty"`
}

// HistoryOptions configures step history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated step history
type HistoryResponse struct {
	Steps       []controller.Step `json:"steps"`
	TotalSteps  int               `json:"total_steps"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	TotalPages  int               `json:"total_pages"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}

// MissionInfo provides information about a mission preset
type MissionInfo struct {
	Filename  string             `json:"filename"`
	MissionID string             `json:"mission_id"` // The identifier to use for session creation
	Plateau   controller.Plateau `json:"plateau"`
	Rovers    int                `json:"rovers"`
}
