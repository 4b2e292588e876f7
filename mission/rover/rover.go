package rover

import (
	"errors"
	"fmt"
)

// ErrInvalidInstruction is the sentinel behind InvalidInstructionError.
var ErrInvalidInstruction = errors.New("invalid instruction")

// InvalidInstructionError reports an instruction outside the rover's
// instruction set.
type InvalidInstructionError struct {
	Instruction Instruction
}

func (e *InvalidInstructionError) Error() string {
	return fmt.Sprintf("%s is not part of this rover's instruction set", e.Instruction)
}

func (e *InvalidInstructionError) Unwrap() error {
	return ErrInvalidInstruction
}

// Rover is a single rover on the plateau
type Rover struct {
	Position Position `json:"position"`
	Heading  Heading  `json:"heading"`
}

// New creates a rover at (x, y) facing heading. Plateau bounds are not
// checked here.
func New(x, y int, heading Heading) *Rover {
	return &Rover{
		Position: Position{X: x, Y: y},
		Heading:  heading,
	}
}

// ExecuteInstruction applies exactly one instruction to the rover.
func (r *Rover) ExecuteInstruction(in Instruction) error {
	switch in {
	case Move:
		r.Move()
	case RotateLeft:
		r.RotateLeft()
	case RotateRight:
		r.RotateRight()
	default:
		return &InvalidInstructionError{Instruction: in}
	}
	return nil
}

// SimulatedMove returns the position a Move would produce without changing
// the rover.
func (r *Rover) SimulatedMove() Position {
	return r.Position.Add(r.Heading.Delta())
}

// Move advances the rover one unit along its heading.
func (r *Rover) Move() {
	r.Position = r.SimulatedMove()
}

// RotateLeft turns the rover a quarter turn counter-clockwise.
func (r *Rover) RotateLeft() {
	r.Heading = r.Heading.Rotate(-1)
}

// RotateRight turns the rover a quarter turn clockwise.
func (r *Rover) RotateRight() {
	r.Heading = r.Heading.Rotate(1)
}

// ReportLocation formats the rover state as "{x} {y} {heading-letter}".
func (r *Rover) ReportLocation() string {
	return fmt.Sprintf("%d %d %s", r.Position.X, r.Position.Y, r.Heading.Letter())
}
