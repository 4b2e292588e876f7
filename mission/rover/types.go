package rover

import (
	"errors"
	"fmt"
)

// ErrInvalidHeading is returned when a heading letter is not one of N, E, S, W.
var ErrInvalidHeading = errors.New("invalid heading")

// Heading is one of the four cardinal directions. The numeric values give
// the rotation order and are unrelated to the wire letters.
type Heading int

const (
	North Heading = iota
	East
	South
	West
)

// headingCount is the period of the rotation cycle
const headingCount = 4

// Valid reports whether h is one of the four cardinal headings.
func (h Heading) Valid() bool {
	return h >= North && h <= West
}

// Letter returns the single-character wire code of the heading.
func (h Heading) Letter() string {
	switch h {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	}
	return "?"
}

func (h Heading) String() string {
	switch h {
	case North:
		return "North"
	case East:
		return "East"
	case South:
		return "South"
	case West:
		return "West"
	}
	return fmt.Sprintf("Heading(%d)", int(h))
}

// Delta returns the unit step a Move takes while facing h.
func (h Heading) Delta() (dx, dy int) {
	switch h {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case East:
		return 1, 0
	case West:
		return -1, 0
	}
	return 0, 0
}

// Rotate returns the heading reached after steps quarter turns clockwise.
// Negative steps turn counter-clockwise.
func (h Heading) Rotate(steps int) Heading {
	return Heading(((int(h)+steps)%headingCount + headingCount) % headingCount)
}

// MarshalText encodes the heading as its wire letter.
func (h Heading) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHeading, int(h))
	}
	return []byte(h.Letter()), nil
}

// UnmarshalText decodes a wire letter.
func (h *Heading) UnmarshalText(text []byte) error {
	parsed, err := ParseHeading(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHeading maps a wire letter (N, E, S, W) to its Heading.
func ParseHeading(letter string) (Heading, error) {
	switch letter {
	case "N":
		return North, nil
	case "E":
		return East, nil
	case "S":
		return South, nil
	case "W":
		return West, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidHeading, letter)
}

// Instruction is a single rover command. The zero value is not a valid
// instruction.
type Instruction int

const (
	Move Instruction = iota + 1
	RotateLeft
	RotateRight
)

// Letter returns the single-character wire code of the instruction.
func (in Instruction) Letter() string {
	switch in {
	case Move:
		return "M"
	case RotateLeft:
		return "L"
	case RotateRight:
		return "R"
	}
	return "?"
}

func (in Instruction) String() string {
	switch in {
	case Move:
		return "Move"
	case RotateLeft:
		return "RotateLeft"
	case RotateRight:
		return "RotateRight"
	}
	return fmt.Sprintf("Instruction(%d)", int(in))
}

// MarshalText encodes the instruction as its wire letter.
func (in Instruction) MarshalText() ([]byte, error) {
	if in.Letter() == "?" {
		return nil, &InvalidInstructionError{Instruction: in}
	}
	return []byte(in.Letter()), nil
}

// UnmarshalText decodes a wire letter.
func (in *Instruction) UnmarshalText(text []byte) error {
	if len(text) != 1 {
		return fmt.Errorf("%w: %q", ErrInvalidInstruction, string(text))
	}
	parsed, err := ParseInstruction(rune(text[0]))
	if err != nil {
		return err
	}
	*in = parsed
	return nil
}

// ParseInstruction maps a wire letter (M, L, R) to its Instruction.
func ParseInstruction(letter rune) (Instruction, error) {
	switch letter {
	case 'M':
		return Move, nil
	case 'L':
		return RotateLeft, nil
	case 'R':
		return RotateRight, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidInstruction, letter)
}

// ParseInstructions converts a whole instruction line, left to right.
func ParseInstructions(line string) ([]Instruction, error) {
	out := make([]Instruction, 0, len(line))
	for _, letter := range line {
		in, err := ParseInstruction(letter)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

// Position represents x,y coordinates on the plateau
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p shifted by (dx, dy).
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
