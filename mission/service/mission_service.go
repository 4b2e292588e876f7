package service

import (
	"context"
	"time"

	"github.com/wricardo/mars-rover/mission/controller"
)

// MissionService defines all mission-related operations
type MissionService interface {
	// Stateless
	Simulate(ctx context.Context, input string) (*RunResult, error)

	// Session Management
	CreateSession(ctx context.Context, missionName, input string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Mission Operations
	Execute(ctx context.Context, sessionID string) (*RunResult, error)
	Reset(ctx context.Context, sessionID string) (*SessionInfo, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Presets
	ListMissions(ctx context.Context) ([]*MissionInfo, error)
	LoadMission(ctx context.Context, name string) (*Mission, error)
	SaveMission(ctx context.Context, name, input string) (*MissionInfo, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, missionName, input string) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// MissionManager handles mission preset loading
type MissionManager interface {
	LoadMission(name string) (*Mission, error)
	ListMissions() ([]*MissionInfo, error)
	GetDefault() *Mission
	SaveMission(name, input string) (*Mission, error)
}

// Session represents one mission batch held by the server
type Session struct {
	ID             string
	MissionName    string
	Input          string
	Controller     *controller.Controller
	Result         *RunResult
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Mission is a validated mission preset
type Mission struct {
	Name    string             `json:"name"`
	Input   string             `json:"input"`
	Plateau controller.Plateau `json:"plateau"`
	Rovers  int                `json:"rovers"`
}
