package controller

import (
	"fmt"
	"io"
	"sort"

	"github.com/wricardo/mars-rover/mission/rover"
)

// ManagedRover pairs a rover with the instruction string it will execute.
type ManagedRover struct {
	Rover        *rover.Rover
	Instructions string
}

// Report is the final state of one rover after its instructions ran.
type Report struct {
	Rover    int            `json:"rover"`
	Position rover.Position `json:"position"`
	Heading  rover.Heading  `json:"heading"`
}

// String formats the report as "{x} {y} {heading-letter}".
func (r Report) String() string {
	return fmt.Sprintf("%d %d %s", r.Position.X, r.Position.Y, r.Heading.Letter())
}

// Step records one applied instruction.
type Step struct {
	Index         int               `json:"idx"`
	Rover         int               `json:"rover"`
	Instruction   rover.Instruction `json:"instruction"`
	From          rover.Position    `json:"from"`
	To            rover.Position    `json:"to"`
	HeadingBefore rover.Heading     `json:"heading_before"`
	HeadingAfter  rover.Heading     `json:"heading_after"`
}

// Controller owns the plateau, the managed rovers and the set of occupied
// coordinates.
type Controller struct {
	plateau  Plateau
	rovers   []ManagedRover
	occupied map[rover.Position]struct{}
	history  []Step
	ingested bool
	executed bool
}

// New creates an empty controller. Call IngestInput before executing.
func New() *Controller {
	return &Controller{
		occupied: make(map[rover.Position]struct{}),
	}
}

// Plateau returns the plateau bounds set at ingestion.
func (c *Controller) Plateau() Plateau {
	return c.plateau
}

// Xmax returns the inclusive upper X bound.
func (c *Controller) Xmax() int {
	return c.plateau.Xmax
}

// Ymax returns the inclusive upper Y bound.
func (c *Controller) Ymax() int {
	return c.plateau.Ymax
}

// Rovers returns the managed rovers in input order. The rovers themselves
// are shared with the controller and must not be mutated by callers.
func (c *Controller) Rovers() []ManagedRover {
	out := make([]ManagedRover, len(c.rovers))
	copy(out, c.rovers)
	return out
}

// Executed reports whether ExecuteRoverInstructions has run on the current
// input.
func (c *Controller) Executed() bool {
	return c.executed
}

// IsOccupied reports whether some managed rover currently sits at pos.
func (c *Controller) IsOccupied(pos rover.Position) bool {
	_, ok := c.occupied[pos]
	return ok
}

// Occupied returns the occupied coordinates ordered by x, then y.
func (c *Controller) Occupied() []rover.Position {
	out := make([]rover.Position, 0, len(c.occupied))
	for pos := range c.occupied {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// History returns every instruction applied so far, in execution order.
func (c *Controller) History() []Step {
	out := make([]Step, len(c.history))
	copy(out, c.history)
	return out
}

// ExecuteRoverInstructions runs every rover's instructions, one rover at a
// time in input order, and returns a report per rover. The first failed
// safety check aborts the batch; the reports of rovers that had already
// finished are returned along with the error.
func (c *Controller) ExecuteRoverInstructions() ([]Report, error) {
	if !c.ingested {
		return nil, ErrNotIngested
	}
	if c.executed {
		return nil, ErrAlreadyExecuted
	}
	c.executed = true

	reports := make([]Report, 0, len(c.rovers))
	for i, managed := range c.rovers {
		instructions, err := rover.ParseInstructions(managed.Instructions)
		if err != nil {
			return reports, fmt.Errorf("rover %d: %w", i+1, err)
		}

		for _, in := range instructions {
			if err := c.InstructionIsSafe(i, in); err != nil {
				return reports, err
			}

			before := *managed.Rover
			if err := managed.Rover.ExecuteInstruction(in); err != nil {
				return reports, fmt.Errorf("rover %d: %w", i+1, err)
			}
			c.record(i, in, before, *managed.Rover)
		}

		reports = append(reports, c.report(i))
	}

	return reports, nil
}

// InstructionIsSafe checks whether rover index may execute in. Rotations are
// always safe. For a Move the target must be on the plateau and free; when
// it is, the occupied set is updated to the target before returning nil.
func (c *Controller) InstructionIsSafe(index int, in rover.Instruction) error {
	if in != rover.Move {
		return nil
	}
	if index < 0 || index >= len(c.rovers) {
		return fmt.Errorf("rover index %d out of range [0,%d)", index, len(c.rovers))
	}

	r := c.rovers[index].Rover
	target := r.SimulatedMove()

	if !c.plateau.Contains(target) {
		return &OutOfBoundsError{Rover: index, Position: target}
	}
	if c.IsOccupied(target) {
		return &CollisionError{Rover: index, Position: target}
	}

	c.replace(r.Position, target)
	return nil
}

// replace moves one occupied-set entry from -> to. It is the only place the
// set changes after ingestion.
func (c *Controller) replace(from, to rover.Position) {
	delete(c.occupied, from)
	c.occupied[to] = struct{}{}
}

func (c *Controller) record(index int, in rover.Instruction, before, after rover.Rover) {
	c.history = append(c.history, Step{
		Index:         len(c.history) + 1,
		Rover:         index,
		Instruction:   in,
		From:          before.Position,
		To:            after.Position,
		HeadingBefore: before.Heading,
		HeadingAfter:  after.Heading,
	})
}

func (c *Controller) report(index int) Report {
	r := c.rovers[index].Rover
	return Report{Rover: index, Position: r.Position, Heading: r.Heading}
}

// Reports returns the current state of every rover, finished or not.
func (c *Controller) Reports() []Report {
	out := make([]Report, len(c.rovers))
	for i := range c.rovers {
		out[i] = c.report(i)
	}
	return out
}

// WriteReports writes one report line per rover to w.
func WriteReports(w io.Writer, reports []Report) error {
	for _, r := range reports {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return err
		}
	}
	return nil
}
