package controller

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/wricardo/mars-rover/mission/rover"
)

// MaxCoordinate is the largest plateau dimension accepted at ingestion.
// Keeping it well inside float64's exact-integer range lets the bounds test
// run on orb geometry without rounding.
const MaxCoordinate = math.MaxInt32

// Plateau holds the inclusive upper bounds of the grid. The lower bounds are
// always zero.
type Plateau struct {
	Xmax int `json:"x_max"`
	Ymax int `json:"y_max"`
}

// Bound returns the plateau as an orb bounding box.
func (p Plateau) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{0, 0},
		Max: orb.Point{float64(p.Xmax), float64(p.Ymax)},
	}
}

// Contains reports whether pos lies within [0,Xmax]×[0,Ymax].
func (p Plateau) Contains(pos rover.Position) bool {
	return p.Bound().Contains(orb.Point{float64(pos.X), float64(pos.Y)})
}

// Cells returns the number of grid cells on the plateau.
func (p Plateau) Cells() int {
	return (p.Xmax + 1) * (p.Ymax + 1)
}
