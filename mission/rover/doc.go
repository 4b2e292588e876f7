// Package rover implements the rover state machine: a position on the
// plateau, a compass heading, and the three instructions a rover understands.
//
// Headings form the cyclic sequence North, East, South, West. Rotating left
// walks that sequence backwards, rotating right walks it forwards, and both
// wrap modulo four. A Move applies exactly the unit delta implied by the
// current heading:
//
//	North (0,+1)   South (0,-1)   East (+1,0)   West (-1,0)
//
// The package knows nothing about plateau bounds or other rovers. Those are
// the controller's concern; it calls SimulatedMove to check a Move before
// committing it.
//
// Usage:
//
//	r := rover.New(1, 2, rover.North)
//	for _, in := range []rover.Instruction{rover.RotateLeft, rover.Move} {
//		if err := r.ExecuteInstruction(in); err != nil {
//			log.Fatal(err)
//		}
//	}
//	fmt.Println(r.ReportLocation()) // "0 2 W"
package rover
