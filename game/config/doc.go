// Package config provides the level catalogue for the logistics game.
//
// Levels are JSON or YAML files. A set of levels is embedded in the binary;
// files in the optional level directory override embedded levels of the same
// name and add new ones. Every level is checked with engine.ValidateGameConfig
// before it is served.
//
// Level Format:
//
//	name: depot
//	width: 6
//	height: 5
//	layout:
//	  - "S....C"
//	  - ".##.#."
//	  - ".#L.#."
//	  - ".#..#."
//	  - "....#F"
//	robots:
//	  - {id: 1, start: {x: 0, y: 0}, finish: {x: 5, y: 4}}
//	rules:
//	  battery_per_step: 8
//
// Layout characters: '.' empty, '#' obstacle, 'S' start, 'F' finish,
// 'C' charging, 'L' loading. Missing rules and messages take the engine
// defaults.
//
// Usage:
//
//	manager, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	level, err := manager.LoadConfig("crossroads")
//
//	// Reload edited files while the server runs
//	changed, err := manager.Watch(ctx)
package config
