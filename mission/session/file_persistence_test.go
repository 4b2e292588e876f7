package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wricardo/mars-rover/mission/controller"
	"github.com/wricardo/mars-rover/mission/rover"
	"github.com/wricardo/mars-rover/mission/service"
)

func newTestSession(t *testing.T, id, input string) *service.Session {
	t.Helper()
	c := controller.New()
	if err := c.IngestInput(input); err != nil {
		t.Fatalf("IngestInput failed: %v", err)
	}
	now := time.Now().Truncate(time.Second)
	return &service.Session{
		ID:             id,
		MissionName:    "classic",
		Input:          input,
		Controller:     c,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

func TestFilePersistence_SaveAndLoad(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	sess := newTestSession(t, "test1", classicInput)
	if err := persistence.Save(sess); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}
	if !persistence.Exists("test1") {
		t.Error("Session file should exist after save")
	}

	loaded, err := persistence.Load("test1")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded.ID != sess.ID || loaded.MissionName != sess.MissionName || loaded.Input != sess.Input {
		t.Errorf("Loaded session differs: %+v", loaded)
	}
	if !loaded.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("Expected CreatedAt %v, got %v", sess.CreatedAt, loaded.CreatedAt)
	}
	if loaded.Controller.Executed() {
		t.Error("Unexecuted session must load unexecuted")
	}
	if got := loaded.Controller.Rovers()[0].Rover.ReportLocation(); got != "1 2 N" {
		t.Errorf("Expected start state, got %s", got)
	}
}

func TestFilePersistence_ExecutedSessionIsReplayed(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	sess := newTestSession(t, "run1", classicInput)
	reports, runErr := sess.Controller.ExecuteRoverInstructions()
	sess.Result = service.NewRunResult(sess.Controller, reports, runErr)

	if err := persistence.Save(sess); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := persistence.Load("run1")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if !loaded.Controller.Executed() {
		t.Fatal("Expected executed controller after load")
	}
	if loaded.Result == nil || loaded.Result.RunID != sess.Result.RunID {
		t.Errorf("Expected stored result, got %+v", loaded.Result)
	}
	got := loaded.Controller.Rovers()
	if got[0].Rover.ReportLocation() != "1 3 N" || got[1].Rover.ReportLocation() != "5 1 E" {
		t.Errorf("Unexpected replayed state %s / %s", got[0].Rover.ReportLocation(), got[1].Rover.ReportLocation())
	}
	if !loaded.Controller.IsOccupied(rover.Position{X: 5, Y: 1}) {
		t.Error("Replayed occupied set is wrong")
	}
}

func TestFilePersistence_FailedRunIsReplayed(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	sess := newTestSession(t, "crash", "5 5\n0 0 N\nM\n0 1 S\nM")
	reports, runErr := sess.Controller.ExecuteRoverInstructions()
	sess.Result = service.NewRunResult(sess.Controller, reports, runErr)
	if err := persistence.Save(sess); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := persistence.Load("crash")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded.Result.Failure == nil || loaded.Result.Failure.Kind != service.FailureCollision {
		t.Errorf("Expected collision failure, got %+v", loaded.Result.Failure)
	}
	if got := loaded.Controller.Rovers()[0].Rover.ReportLocation(); got != "0 0 N" {
		t.Errorf("Expected rover to stay put, got %s", got)
	}
}

func TestFilePersistence_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	if _, err := persistence.Load("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := persistence.Load("junk"); err == nil {
		t.Error("Expected error for corrupt file")
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"id":"bad","input":"5 5\n1 2 Q\nM"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := persistence.Load("bad"); !errors.Is(err, controller.ErrFormat) {
		t.Errorf("Expected re-ingest format error, got %v", err)
	}
}

func TestFilePersistence_DeleteAndList(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	for _, id := range []string{"a1", "b2"} {
		if err := persistence.Save(newTestSession(t, id, classicInput)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ids, err := persistence.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 session IDs, got %v", ids)
	}

	if err := persistence.Delete("a1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if persistence.Exists("a1") {
		t.Error("Deleted session should not exist")
	}
	if err := persistence.Delete("a1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerWithPersistence(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	manager := NewManagerWithPersistence(persistence)

	sess, err := manager.Create("auto1", "classic", classicInput)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !persistence.Exists(sess.ID) {
		t.Error("Session should be auto-saved on creation")
	}

	t.Run("get loads from persistence", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)
		loaded, err := manager2.Get("AUTO1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded.Input != classicInput {
			t.Errorf("Unexpected input %q", loaded.Input)
		}
		if manager2.Count() != 1 {
			t.Errorf("Expected session cached in memory, got %d", manager2.Count())
		}
	})

	t.Run("create refuses persisted id", func(t *testing.T) {
		manager2 := NewManagerWithPersistence(persistence)
		if _, err := manager2.Create("auto1", "", classicInput); !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("load persisted sessions", func(t *testing.T) {
		if _, err := manager.Create("auto2", "", classicInput); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		manager2 := NewManagerWithPersistence(persistence)
		if err := manager2.LoadPersistedSessions(); err != nil {
			t.Fatalf("LoadPersistedSessions failed: %v", err)
		}
		if manager2.Count() != 2 {
			t.Errorf("Expected 2 sessions, got %d", manager2.Count())
		}
	})

	t.Run("cleanup keeps persisted copy", func(t *testing.T) {
		sess.LastAccessedAt = time.Now().Add(-48 * time.Hour)
		if removed := manager.CleanupExpiredSessions(24 * time.Hour); removed != 1 {
			t.Errorf("Expected 1 removed session, got %d", removed)
		}
		if _, err := manager.Get("auto1"); err != nil {
			t.Errorf("Expected session to reload from disk: %v", err)
		}
	})

	t.Run("save all and delete", func(t *testing.T) {
		if err := manager.SaveAllSessions(); err != nil {
			t.Fatalf("SaveAllSessions failed: %v", err)
		}
		if err := manager.Delete("auto2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("auto2") {
			t.Error("Delete should remove the persisted file")
		}
	})
}
