// Package engine provides the core rules of the logistics robots game.
//
// The engine package implements the game mechanics including:
//   - Grid levels with obstacles, chargers, loading docks and finish cells
//   - Click-driven robot selection and straight-segment path building
//   - Path locking so two robots never queue the same cell
//   - Battery, charging, loading and delivery state machines
//   - Victory when every robot has delivered its cargo
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState holds the grid and robots, while
// GameConfig is the level loaded from JSON or YAML.
//
// Usage:
//
//	gameEngine, err := engine.NewEngine(engine.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine.Click(0, 0)            // select robot 1
//	gameEngine.Click(0, 3)            // queue three cells down
//	result := gameEngine.Step(1)      // move one cell
//
// Game Rules:
//
// Each step costs battery. Charging cells refill it, loading cells give the
// robot its cargo, and the robot's own finish cell takes the cargo off. When
// a robot drops below the low-battery threshold its path is cancelled unless
// it already ends on a charger. A robot whose battery reaches zero restarts
// the whole level.
package engine
