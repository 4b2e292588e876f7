package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/rover"
)

var (
	// ErrNoMission is returned when a session is requested with neither a
	// preset name nor inline input and no default preset exists.
	ErrNoMission = errors.New("no mission input or default mission available")
)

// missionServiceImpl implements the MissionService interface
type missionServiceImpl struct {
	sessions SessionManager
	missions MissionManager
	mu       sync.RWMutex
}

// NewMissionService creates a new mission service instance. missions may be
// nil when no preset directory is configured.
func NewMissionService(sessions SessionManager, missions MissionManager) MissionService {
	return &missionServiceImpl{
		sessions: sessions,
		missions: missions,
	}
}

// Simulate ingests and executes input without creating a session.
func (s *missionServiceImpl) Simulate(ctx context.Context, input string) (*RunResult, error) {
	c := controller.New()
	if err := c.IngestInput(input); err != nil {
		if errors.Is(err, controller.ErrFormat) {
			return nil, err
		}
		// Start coordinates that already violate safety still produce a
		// result. No rover was registered, but the declared plateau is known.
		result := NewRunResult(c, nil, err)
		if plateau, perr := controller.PlateauOf(input); perr == nil {
			result.Plateau = plateau
		}
		return result, nil
	}

	reports, err := c.ExecuteRoverInstructions()
	return NewRunResult(c, reports, err), nil
}

// CreateSession creates a session from inline input or, when input is empty,
// from the named preset (the default preset when the name is empty too).
func (s *missionServiceImpl) CreateSession(ctx context.Context, missionName, input string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input == "" {
		mission, err := s.resolveMission(missionName)
		if err != nil {
			return nil, err
		}
		missionName = mission.Name
		input = mission.Input
	}

	sess, err := s.sessions.Create("", missionName, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(sess), nil
}

func (s *missionServiceImpl) resolveMission(name string) (*Mission, error) {
	if s.missions == nil {
		return nil, ErrNoMission
	}
	if name == "" {
		if def := s.missions.GetDefault(); def != nil {
			return def, nil
		}
		return nil, ErrNoMission
	}

	mission, err := s.missions.LoadMission(name)
	if err != nil {
		available, listErr := s.missions.ListMissions()
		if listErr == nil && len(available) > 0 {
			ids := make([]string, 0, len(available))
			for _, m := range available {
				ids = append(ids, m.MissionID)
			}
			return nil, fmt.Errorf("mission '%s' not available (choose one of %v): %w", name, ids, err)
		}
		return nil, fmt.Errorf("failed to load mission %s: %w", name, err)
	}
	return mission, nil
}

// GetSession retrieves session information. It touches the session's
// access time, so it takes the write lock.
func (s *missionServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *missionServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *missionServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Execute runs the session's batch. A batch runs at most once; later calls
// return the stored result until the session is reset.
func (s *missionServiceImpl) Execute(ctx context.Context, sessionID string) (*RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	if sess.Result != nil {
		return sess.Result, nil
	}

	reports, runErr := sess.Controller.ExecuteRoverInstructions()
	if errors.Is(runErr, controller.ErrNotIngested) || errors.Is(runErr, controller.ErrAlreadyExecuted) {
		return nil, fmt.Errorf("session %s cannot execute: %w", sess.ID, runErr)
	}

	result := NewRunResult(sess.Controller, reports, runErr)
	result.SessionID = sess.ID
	sess.Result = result

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after execute: %v", sessionID, err)
	}

	return result, nil
}

// Reset rebuilds the session's controller from its stored input
func (s *missionServiceImpl) Reset(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)

	c := controller.New()
	if err := c.IngestInput(sess.Input); err != nil {
		return nil, fmt.Errorf("failed to re-ingest session %s: %w", sess.ID, err)
	}
	sess.Controller = c
	sess.Result = nil

	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after reset: %v", sessionID, err)
	}

	return sessionInfo(sess), nil
}

// GetHistory returns paginated step history
func (s *missionServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return paginate(sess.Controller.History(), opts), nil
}

func paginate(history []controller.Step, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var steps []controller.Step
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			steps = append(steps, history[i])
		}
	} else if start < total {
		steps = history[start:end]
	}

	if steps == nil {
		steps = []controller.Step{}
	}

	return &HistoryResponse{
		Steps:       steps,
		TotalSteps:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListMissions returns available mission presets
func (s *missionServiceImpl) ListMissions(ctx context.Context) ([]*MissionInfo, error) {
	if s.missions == nil {
		return []*MissionInfo{}, nil
	}
	return s.missions.ListMissions()
}

// LoadMission loads a specific mission preset
func (s *missionServiceImpl) LoadMission(ctx context.Context, name string) (*Mission, error) {
	if s.missions == nil {
		return nil, ErrNoMission
	}
	return s.missions.LoadMission(name)
}

// SaveMission validates input and stores it as a preset
func (s *missionServiceImpl) SaveMission(ctx context.Context, name, input string) (*MissionInfo, error) {
	if s.missions == nil {
		return nil, ErrNoMission
	}
	mission, err := s.missions.SaveMission(name, input)
	if err != nil {
		return nil, err
	}
	return &MissionInfo{
		Filename:  name + ".txt",
		MissionID: mission.Name,
		Plateau:   mission.Plateau,
		Rovers:    mission.Rovers,
	}, nil
}

// NewRunResult builds the result of one batch from the controller state, the
// reports of the rovers that finished, and the error that stopped the batch.
func NewRunResult(c *controller.Controller, reports []controller.Report, runErr error) *RunResult {
	steps := c.History()
	result := &RunResult{
		RunID:      uuid.NewString(),
		Success:    runErr == nil,
		Plateau:    c.Plateau(),
		Reports:    make([]string, 0, len(reports)),
		Rovers:     roverStates(c),
		Steps:      steps,
		TotalSteps: len(steps),
		Failure:    ClassifyFailure(runErr),
		ExecutedAt: time.Now(),
	}
	for _, r := range reports {
		result.Reports = append(result.Reports, r.String())
	}
	return result
}

// ClassifyFailure maps a controller error onto a Failure. It returns nil for
// a nil error.
func ClassifyFailure(err error) *Failure {
	if err == nil {
		return nil
	}

	f := &Failure{Kind: FailureUnknown, Message: err.Error()}

	var formatErr *controller.FormatError
	var oob *controller.OutOfBoundsError
	var collision *controller.CollisionError

	switch {
	case errors.As(err, &formatErr):
		f.Kind = FailureFormat
		f.Line = formatErr.Line
		f.Text = formatErr.Text
	case errors.As(err, &oob):
		pos := oob.Position
		f.Kind = FailureOutOfBounds
		f.Rover = oob.Rover
		f.Position = &pos
	case errors.As(err, &collision):
		pos := collision.Position
		f.Kind = FailureCollision
		f.Rover = collision.Rover
		f.Position = &pos
	case errors.Is(err, rover.ErrInvalidInstruction):
		f.Kind = FailureInvalidInstruction
	}

	return f
}

func roverStates(c *controller.Controller) []RoverState {
	managed := c.Rovers()
	states := make([]RoverState, 0, len(managed))
	for i, m := range managed {
		states = append(states, RoverState{
			Index:        i,
			Position:     m.Rover.Position,
			Heading:      m.Rover.Heading,
			Instructions: m.Instructions,
			Report:       m.Rover.ReportLocation(),
		})
	}
	return states
}

func sessionInfo(sess *Session) *SessionInfo {
	info := &SessionInfo{
		ID:             sess.ID,
		MissionName:    sess.MissionName,
		Input:          sess.Input,
		Rovers:         []RoverState{},
		Result:         sess.Result,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
	if sess.Controller != nil {
		info.Plateau = sess.Controller.Plateau()
		info.Rovers = roverStates(sess.Controller)
		info.Executed = sess.Controller.Executed()
	}
	return info
}
