package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/service"
)

var (
	ErrMissionNotFound = errors.New("mission not found")
	ErrInvalidMission  = errors.New("invalid mission")
)

const missionExt = ".txt"

// builtinMission is used as the default when the directory holds no valid
// mission.
const builtinMission = "5 5\n1 2 N\nLMLMLMLMM\n3 3 E\nMMRMMRMRRM\n"

// Manager handles mission preset loading and caching
type Manager struct {
	missionDir     string
	defaultMission *service.Mission
	missions       map[string]*service.Mission
	mu             sync.RWMutex
}

// NewManager creates a new mission manager
func NewManager(missionDir string) (*Manager, error) {
	if _, err := os.Stat(missionDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("mission directory does not exist: %s", missionDir)
	}

	m := &Manager{
		missionDir: missionDir,
		missions:   make(map[string]*service.Mission),
	}

	if err := m.loadDefaultMission(); err != nil {
		return nil, fmt.Errorf("failed to load default mission: %w", err)
	}

	return m, nil
}

// LoadMission loads a mission by name. The name may carry the .txt
// extension.
func (m *Manager) LoadMission(name string) (*service.Mission, error) {
	name = strings.TrimSuffix(name, missionExt)
	if err := validateName(name); err != nil {
		return nil, err
	}

	m.mu.RLock()
	if mission, exists := m.missions[name]; exists {
		m.mu.RUnlock()
		return mission, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if mission, exists := m.missions[name]; exists {
		return mission, nil
	}

	data, err := os.ReadFile(filepath.Join(m.missionDir, name+missionExt))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissionNotFound
		}
		return nil, fmt.Errorf("failed to read mission file: %w", err)
	}

	mission, err := parseMission(name, string(data))
	if err != nil {
		return nil, err
	}

	m.missions[name] = mission
	return mission, nil
}

// ListMissions returns information about all valid missions in the
// directory. Files that fail to ingest are skipped.
func (m *Manager) ListMissions() ([]*service.MissionInfo, error) {
	entries, err := os.ReadDir(m.missionDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mission directory: %w", err)
	}

	missions := []*service.MissionInfo{}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), missionExt) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), missionExt)

		mission, err := m.LoadMission(name)
		if err != nil {
			continue
		}

		missions = append(missions, &service.MissionInfo{
			Filename:  entry.Name(),
			MissionID: name,
			Plateau:   mission.Plateau,
			Rovers:    mission.Rovers,
		})
	}

	return missions, nil
}

// GetDefault returns the default mission
func (m *Manager) GetDefault() *service.Mission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultMission
}

// SetDefault sets the default mission by name
func (m *Manager) SetDefault(name string) error {
	mission, err := m.LoadMission(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultMission = mission
	return nil
}

// RefreshCache drops every cached mission and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.missions = make(map[string]*service.Mission)
	m.mu.Unlock()

	return m.loadDefaultMission()
}

// SaveMission validates input and writes it to <dir>/<name>.txt
func (m *Manager) SaveMission(name, input string) (*service.Mission, error) {
	name = strings.TrimSuffix(name, missionExt)
	if err := validateName(name); err != nil {
		return nil, err
	}

	mission, err := parseMission(name, input)
	if err != nil {
		return nil, err
	}

	data := input
	if !strings.HasSuffix(data, "\n") {
		data += "\n"
	}
	if err := os.WriteFile(filepath.Join(m.missionDir, name+missionExt), []byte(data), 0644); err != nil {
		return nil, fmt.Errorf("failed to write mission file: %w", err)
	}

	m.mu.Lock()
	m.missions[name] = mission
	m.mu.Unlock()

	return mission, nil
}

// loadDefaultMission prefers classic.txt, then the first valid mission, then
// the built-in one.
func (m *Manager) loadDefaultMission() error {
	mission, err := m.LoadMission("classic")
	if err != nil {
		missions, listErr := m.ListMissions()
		if listErr != nil || len(missions) == 0 {
			return m.useBuiltin()
		}

		mission, err = m.LoadMission(missions[0].MissionID)
		if err != nil {
			return m.useBuiltin()
		}
	}

	m.mu.Lock()
	m.defaultMission = mission
	m.mu.Unlock()
	return nil
}

func (m *Manager) useBuiltin() error {
	mission, err := parseMission("classic", builtinMission)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultMission = mission
	m.mu.Unlock()
	return nil
}

// parseMission ingests input into a scratch controller to validate it
func parseMission(name, input string) (*service.Mission, error) {
	c := controller.New()
	if err := c.IngestInput(input); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMission, name, err)
	}

	return &service.Mission{
		Name:    name,
		Input:   input,
		Plateau: c.Plateau(),
		Rovers:  len(c.Rovers()),
	}, nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: bad mission name %q", ErrInvalidMission, name)
	}
	return nil
}
