// Package controller drives a batch of rovers across a bounded plateau.
//
// A Controller ingests a mission description:
//
//	5 5
//	1 2 N
//	LMLMLMLMM
//	3 3 E
//	MMRMMRMRRM
//
// The first line sets the inclusive plateau bounds [0,Xmax]×[0,Ymax]. Every
// following pair of lines places a rover and gives it an instruction string.
// ExecuteRoverInstructions then runs each rover to completion, one after the
// other, and returns one Report per rover ("1 3 N", "5 1 E").
//
// Before any Move is committed the controller checks that the target cell is
// on the plateau and not held by another rover. The occupied-coordinate set
// is the only shared state; a successful Move replaces the rover's old cell
// with its new one in a single step. The first violation aborts the batch
// with an OutOfBoundsError or CollisionError and leaves the rover where it
// was.
//
// The controller is not safe for concurrent use.
package controller
