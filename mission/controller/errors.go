package controller

import (
	"errors"
	"fmt"

	"github.com/wricardo/mars-rover/mission/rover"
)

var (
	ErrFormat          = errors.New("invalid mission format")
	ErrOutOfBounds     = errors.New("rover out of bounds")
	ErrCollision       = errors.New("rover collision")
	ErrNotIngested     = errors.New("no mission input ingested")
	ErrAlreadyExecuted = errors.New("rover instructions already executed")
)

// FormatError reports a malformed input line. Line is 1-based.
type FormatError struct {
	Line   int
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %q %s", e.Line, e.Text, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// OutOfBoundsError reports a rover that would leave the plateau. Rover is
// the zero-based index of the rover in input order.
type OutOfBoundsError struct {
	Rover    int
	Position rover.Position
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("rover %d attempted to reach out-of-bounds coordinate (%d,%d)",
		e.Rover+1, e.Position.X, e.Position.Y)
}

func (e *OutOfBoundsError) Unwrap() error {
	return ErrOutOfBounds
}

// CollisionError reports a rover that would land on a cell held by another
// rover.
type CollisionError struct {
	Rover    int
	Position rover.Position
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("rover %d collision avoided at location (%d,%d)",
		e.Rover+1, e.Position.X, e.Position.Y)
}

func (e *CollisionError) Unwrap() error {
	return ErrCollision
}
