package controller

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wricardo/mars-rover/mission/rover"
)

var (
	// two non-negative integers separated by exactly one space
	plateauPattern = regexp.MustCompile(`^\d+ \d+$`)

	// two non-negative integers and a heading letter, single-space separated
	startPattern = regexp.MustCompile(`^\d+ \d+ [NSEW]$`)

	instructionsPattern = regexp.MustCompile(`^[MLR]+$`)
)

const emptyInputReason = "is empty, expected the plateau size on the first line"

// IngestInput parses a mission description and replaces the controller's
// plateau and rover list with it. On any error the controller is left as it
// was before the call.
func (c *Controller) IngestInput(raw string) error {
	lines := splitLines(raw)
	if len(lines) == 0 {
		return &FormatError{Line: 1, Text: "", Reason: emptyInputReason}
	}

	plateau, err := parsePlateau(lines[0])
	if err != nil {
		return err
	}

	rovers := make([]ManagedRover, 0, (len(lines)-1)/2)
	occupied := make(map[rover.Position]struct{}, cap(rovers))

	for i := 1; i < len(lines); i += 2 {
		start, err := parseStartCondition(i+1, lines[i])
		if err != nil {
			return err
		}

		if i+1 >= len(lines) {
			return &FormatError{
				Line:   i + 1,
				Text:   lines[i],
				Reason: "is a rover start condition without an instructions line",
			}
		}
		if !instructionsPattern.MatchString(lines[i+1]) {
			return &FormatError{
				Line:   i + 2,
				Text:   lines[i+1],
				Reason: "is not a valid sequence of rover instructions, it must be one or more of M, L, R",
			}
		}

		index := len(rovers)
		if !plateau.Contains(start.Position) {
			return &OutOfBoundsError{Rover: index, Position: start.Position}
		}
		if _, taken := occupied[start.Position]; taken {
			return &CollisionError{Rover: index, Position: start.Position}
		}

		rovers = append(rovers, ManagedRover{Rover: start, Instructions: lines[i+1]})
		occupied[start.Position] = struct{}{}
	}

	c.plateau = plateau
	c.rovers = rovers
	c.occupied = occupied
	c.history = nil
	c.ingested = true
	c.executed = false
	return nil
}

// PlateauOf returns the plateau declared on the first line of raw without
// ingesting the rest.
func PlateauOf(raw string) (Plateau, error) {
	lines := splitLines(raw)
	if len(lines) == 0 {
		return Plateau{}, &FormatError{Line: 1, Text: "", Reason: emptyInputReason}
	}
	return parsePlateau(lines[0])
}

// splitLines accepts both \n and \r\n line endings and drops trailing blank
// lines.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func parsePlateau(line string) (Plateau, error) {
	if !plateauPattern.MatchString(line) {
		return Plateau{}, &FormatError{
			Line:   1,
			Text:   line,
			Reason: "does not match the expected plateau size format, it should be two integers separated by a space",
		}
	}

	fields := strings.Split(line, " ")
	xmax, xerr := parseCoordinate(fields[0])
	ymax, yerr := parseCoordinate(fields[1])
	if xerr != nil || yerr != nil {
		return Plateau{}, &FormatError{
			Line:   1,
			Text:   line,
			Reason: "has a plateau dimension larger than " + strconv.Itoa(MaxCoordinate),
		}
	}

	return Plateau{Xmax: xmax, Ymax: ymax}, nil
}

func parseStartCondition(lineNo int, line string) (*rover.Rover, error) {
	if !startPattern.MatchString(line) {
		return nil, &FormatError{
			Line:   lineNo,
			Text:   line,
			Reason: "is not a valid rover start condition, it must be two numbers and a cardinal direction",
		}
	}

	fields := strings.Split(line, " ")
	x, xerr := parseCoordinate(fields[0])
	y, yerr := parseCoordinate(fields[1])
	if xerr != nil || yerr != nil {
		return nil, &FormatError{
			Line:   lineNo,
			Text:   line,
			Reason: "has a coordinate larger than " + strconv.Itoa(MaxCoordinate),
		}
	}

	heading, err := rover.ParseHeading(fields[2])
	if err != nil {
		return nil, &FormatError{Line: lineNo, Text: line, Reason: err.Error()}
	}

	return rover.New(x, y, heading), nil
}

func parseCoordinate(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}
