// Package config manages named mission presets for the rover simulator.
//
// A mission preset is a plain text file in the missions directory holding a
// complete mission description: the plateau line followed by one start line
// and one instruction line per rover. The file name without its .txt
// extension is the mission ID used when creating sessions.
//
// Every preset is validated by ingesting it into a scratch controller, so a
// preset that loads is guaranteed to ingest again later. Invalid files are
// skipped when listing and rejected with ErrInvalidMission when loaded by
// name.
//
// Usage:
//
//	manager, err := config.NewManager("missions")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mission, err := manager.LoadMission("classic")
//	missions, err := manager.ListMissions()
//	def := manager.GetDefault()
//
// The default mission is classic.txt when present, otherwise the first valid
// preset, otherwise a built-in two-rover mission on a 5x5 plateau.
package config
