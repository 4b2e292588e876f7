package controller

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wricardo/mars-rover/mission/rover"
)

const canonicalInput = "5 5\n1 2 N\nLMLMLMLMM\n3 3 E\nMMRMMRMRRM"

func mustIngest(t *testing.T, input string) *Controller {
	t.Helper()
	c := New()
	if err := c.IngestInput(input); err != nil {
		t.Fatalf("IngestInput(%q) failed: %v", input, err)
	}
	return c
}

func TestExecuteRoverInstructions_CanonicalMission(t *testing.T) {
	c := mustIngest(t, canonicalInput)

	reports, err := c.ExecuteRoverInstructions()
	if err != nil {
		t.Fatalf("ExecuteRoverInstructions failed: %v", err)
	}

	expected := []string{"1 3 N", "5 1 E"}
	if len(reports) != len(expected) {
		t.Fatalf("Expected %d reports, got %d", len(expected), len(reports))
	}
	for i, want := range expected {
		if got := reports[i].String(); got != want {
			t.Errorf("Report %d: expected %q, got %q", i, want, got)
		}
		if reports[i].Rover != i {
			t.Errorf("Report %d: expected rover index %d, got %d", i, i, reports[i].Rover)
		}
	}

	var buf bytes.Buffer
	if err := WriteReports(&buf, reports); err != nil {
		t.Fatalf("WriteReports failed: %v", err)
	}
	if buf.String() != "1 3 N\n5 1 E\n" {
		t.Errorf("Unexpected written output %q", buf.String())
	}
}

func TestExecuteRoverInstructions_Collision(t *testing.T) {
	c := mustIngest(t, "5 5\n0 0 N\nM\n0 1 S\nM")

	reports, err := c.ExecuteRoverInstructions()
	if err == nil {
		t.Fatal("Expected collision error")
	}

	var collision *CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("Expected CollisionError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrCollision) {
		t.Error("Expected error to match ErrCollision")
	}
	if collision.Position != (rover.Position{X: 0, Y: 1}) {
		t.Errorf("Expected collision at (0,1), got %v", collision.Position)
	}
	if collision.Rover != 0 {
		t.Errorf("Expected first rover to collide, got rover %d", collision.Rover)
	}
	if len(reports) != 0 {
		t.Errorf("Expected no completed reports, got %v", reports)
	}

	first := c.Rovers()[0].Rover
	if first.Position != (rover.Position{X: 0, Y: 0}) || first.Heading != rover.North {
		t.Errorf("Colliding rover must stay put, got %+v", *first)
	}
	if !c.IsOccupied(rover.Position{X: 0, Y: 0}) || !c.IsOccupied(rover.Position{X: 0, Y: 1}) {
		t.Errorf("Occupied set changed after failed move: %v", c.Occupied())
	}
}

func TestExecuteRoverInstructions_OutOfBounds(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		attempt  rover.Position
		position rover.Position
	}{
		{"zero plateau north", "0 0\n0 0 N\nM", rover.Position{X: 0, Y: 1}, rover.Position{X: 0, Y: 0}},
		{"beyond xmax", "3 3\n3 1 E\nM", rover.Position{X: 4, Y: 1}, rover.Position{X: 3, Y: 1}},
		{"beyond ymax", "3 3\n2 3 N\nM", rover.Position{X: 2, Y: 4}, rover.Position{X: 2, Y: 3}},
		{"below zero x", "3 3\n0 2 W\nM", rover.Position{X: -1, Y: 2}, rover.Position{X: 0, Y: 2}},
		{"below zero y after moves", "3 3\n1 2 S\nMMM", rover.Position{X: 1, Y: -1}, rover.Position{X: 1, Y: 0}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := mustIngest(t, test.input)

			_, err := c.ExecuteRoverInstructions()

			var oob *OutOfBoundsError
			if !errors.As(err, &oob) {
				t.Fatalf("Expected OutOfBoundsError, got %v", err)
			}
			if !errors.Is(err, ErrOutOfBounds) {
				t.Error("Expected error to match ErrOutOfBounds")
			}
			if oob.Position != test.attempt {
				t.Errorf("Expected attempted coordinate %v, got %v", test.attempt, oob.Position)
			}
			if got := c.Rovers()[0].Rover.Position; got != test.position {
				t.Errorf("Expected rover to remain at %v, got %v", test.position, got)
			}
		})
	}
}

func TestExecuteRoverInstructions_ReportsFinishedRoversBeforeFailure(t *testing.T) {
	c := mustIngest(t, "2 2\n0 0 E\nMM\n2 2 N\nM")

	reports, err := c.ExecuteRoverInstructions()
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Expected out of bounds, got %v", err)
	}
	if len(reports) != 1 || reports[0].String() != "2 0 E" {
		t.Errorf("Expected the first rover's report only, got %v", reports)
	}
}

func TestExecuteRoverInstructions_RoversRunSequentially(t *testing.T) {
	// Rover 2 only finds (1,0) free because rover 1 has already driven away.
	c := mustIngest(t, "3 3\n1 0 N\nMM\n0 0 E\nM")

	reports, err := c.ExecuteRoverInstructions()
	if err != nil {
		t.Fatalf("ExecuteRoverInstructions failed: %v", err)
	}
	if reports[0].String() != "1 2 N" || reports[1].String() != "1 0 E" {
		t.Errorf("Unexpected reports %v", reports)
	}
}

func TestExecuteRoverInstructions_Guards(t *testing.T) {
	c := New()
	if _, err := c.ExecuteRoverInstructions(); !errors.Is(err, ErrNotIngested) {
		t.Errorf("Expected ErrNotIngested, got %v", err)
	}

	c = mustIngest(t, canonicalInput)
	if _, err := c.ExecuteRoverInstructions(); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if !c.Executed() {
		t.Error("Expected Executed() after a run")
	}
	if _, err := c.ExecuteRoverInstructions(); !errors.Is(err, ErrAlreadyExecuted) {
		t.Errorf("Expected ErrAlreadyExecuted, got %v", err)
	}

	// Ingesting again starts a fresh batch.
	if err := c.IngestInput(canonicalInput); err != nil {
		t.Fatalf("Re-ingest failed: %v", err)
	}
	if _, err := c.ExecuteRoverInstructions(); err != nil {
		t.Errorf("Run after re-ingest failed: %v", err)
	}
}

func TestExecuteRoverInstructions_InvalidInstructionStopsBeforeMoving(t *testing.T) {
	c := mustIngest(t, canonicalInput)
	c.rovers[1].Instructions = "MMQ"

	reports, err := c.ExecuteRoverInstructions()
	if !errors.Is(err, rover.ErrInvalidInstruction) {
		t.Fatalf("Expected ErrInvalidInstruction, got %v", err)
	}
	if len(reports) != 1 || reports[0].String() != "1 3 N" {
		t.Errorf("Expected only the first rover's report, got %v", reports)
	}
	if got := c.rovers[1].Rover.ReportLocation(); got != "3 3 E" {
		t.Errorf("Second rover should not have moved, got %s", got)
	}
}

func TestInstructionIsSafe_RotationsAlwaysSafe(t *testing.T) {
	c := mustIngest(t, "0 0\n0 0 N\nL")

	for _, in := range []rover.Instruction{rover.RotateLeft, rover.RotateRight} {
		if err := c.InstructionIsSafe(0, in); err != nil {
			t.Errorf("Expected %v to be safe, got %v", in, err)
		}
	}
	if got := c.Occupied(); len(got) != 1 || got[0] != (rover.Position{X: 0, Y: 0}) {
		t.Errorf("Rotation changed the occupied set: %v", got)
	}
}

func TestInstructionIsSafe_MoveUpdatesOccupiedSet(t *testing.T) {
	c := mustIngest(t, "5 5\n1 1 N\nM\n3 3 W\nM")

	if err := c.InstructionIsSafe(0, rover.Move); err != nil {
		t.Fatalf("Expected move to be safe: %v", err)
	}
	if c.IsOccupied(rover.Position{X: 1, Y: 1}) {
		t.Error("Old coordinate still occupied")
	}
	if !c.IsOccupied(rover.Position{X: 1, Y: 2}) {
		t.Error("New coordinate not occupied")
	}
	if len(c.Occupied()) != 2 {
		t.Errorf("Expected one entry per rover, got %v", c.Occupied())
	}
}

func TestInstructionIsSafe_BadIndex(t *testing.T) {
	c := mustIngest(t, canonicalInput)
	if err := c.InstructionIsSafe(7, rover.Move); err == nil {
		t.Error("Expected error for unknown rover index")
	}
}

func TestOccupiedSet_MirrorsRoverPositions(t *testing.T) {
	c := mustIngest(t, "6 6\n0 0 E\nMMLMMRM\n6 6 S\nMMRMM\n5 0 N\nMMMLMRRMM")

	if _, err := c.ExecuteRoverInstructions(); err != nil {
		t.Fatalf("ExecuteRoverInstructions failed: %v", err)
	}

	rovers := c.Rovers()
	occupied := c.Occupied()
	if len(occupied) != len(rovers) {
		t.Fatalf("Expected %d occupied entries, got %d (%v)", len(rovers), len(occupied), occupied)
	}
	for _, m := range rovers {
		if !c.IsOccupied(m.Rover.Position) {
			t.Errorf("Rover at %v missing from occupied set", m.Rover.Position)
		}
	}
}

func TestHistory_RecordsEveryInstruction(t *testing.T) {
	c := mustIngest(t, "5 5\n1 2 N\nLM")

	if _, err := c.ExecuteRoverInstructions(); err != nil {
		t.Fatalf("ExecuteRoverInstructions failed: %v", err)
	}

	history := c.History()
	if len(history) != 2 {
		t.Fatalf("Expected 2 steps, got %d", len(history))
	}

	turn := history[0]
	if turn.Instruction != rover.RotateLeft || turn.HeadingBefore != rover.North || turn.HeadingAfter != rover.West {
		t.Errorf("Unexpected rotation step %+v", turn)
	}
	if turn.From != turn.To {
		t.Errorf("Rotation must not move: %+v", turn)
	}

	move := history[1]
	if move.Index != 2 || move.Instruction != rover.Move {
		t.Errorf("Unexpected move step %+v", move)
	}
	if move.From != (rover.Position{X: 1, Y: 2}) || move.To != (rover.Position{X: 0, Y: 2}) {
		t.Errorf("Unexpected move coordinates %+v", move)
	}
}

func TestReports_BeforeExecution(t *testing.T) {
	c := mustIngest(t, canonicalInput)
	reports := c.Reports()
	if len(reports) != 2 || reports[0].String() != "1 2 N" || reports[1].String() != "3 3 E" {
		t.Errorf("Expected start positions, got %v", reports)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{&OutOfBoundsError{Rover: 0, Position: rover.Position{X: 0, Y: 6}}, "rover 1 attempted to reach out-of-bounds coordinate (0,6)"},
		{&CollisionError{Rover: 1, Position: rover.Position{X: 2, Y: 2}}, "rover 2 collision avoided at location (2,2)"},
		{&FormatError{Line: 1, Text: "5", Reason: "is bad"}, `line 1: "5" is bad`},
	}

	for _, test := range tests {
		if got := test.err.Error(); got != test.expected {
			t.Errorf("Expected %q, got %q", test.expected, got)
		}
	}
}
