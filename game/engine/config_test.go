package engine

import (
	"strings"
	"testing"
)

func TestValidateGameConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *GameConfig)
		wantErr string
	}{
		{"valid", func(c *GameConfig) {}, ""},
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"too narrow", func(c *GameConfig) { c.Width = 2 }, "width must be between"},
		{"row count", func(c *GameConfig) { c.Layout = c.Layout[:4] }, "layout must have 5 rows"},
		{"row width", func(c *GameConfig) { c.Layout[2] = "..C." }, "row 3 must have 5 characters"},
		{"bad character", func(c *GameConfig) { c.Layout[3] = "..X.." }, "invalid character 'X'"},
		{"no loading", func(c *GameConfig) {
			c.Layout[0] = "S...F"
			c.Layout[4] = "....."
		}, "loading (L)"},
		{"no robots", func(c *GameConfig) { c.Robots = nil }, "between 1 and 9 robots"},
		{"duplicate id", func(c *GameConfig) { c.Robots[1].ID = 1 }, "duplicate robot id 1"},
		{"start off S", func(c *GameConfig) { c.Robots[0].Start = Position{X: 3, Y: 3} }, "must be a start (S) cell"},
		{"finish off F", func(c *GameConfig) { c.Robots[0].Finish = Position{X: 2, Y: 2} }, "must be a finish (F) cell"},
		{"shared finish", func(c *GameConfig) { c.Robots[1].Finish = c.Robots[0].Finish }, "share a finish cell"},
		{"battery too high", func(c *GameConfig) { c.Robots[0].Battery = 150 }, "battery must be between"},
		{"bad rule", func(c *GameConfig) { c.Rules.BatteryPerStep = 101 }, "battery_per_step"},
		{"threshold below disabled", func(c *GameConfig) { c.Rules.LowBatteryThreshold = -2 }, "low_battery_threshold"},
		{"message without verb", func(c *GameConfig) { c.Messages.Selected = "Робот выбран" }, "messages.selected"},
		{"unwinnable", func(c *GameConfig) {
			c.Layout[0] = "S.L#F"
			c.Layout[1] = "S#.#F"
			c.Layout[2] = "..C##"
		}, "cannot reach"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createTestConfig()
			tt.modify(config)

			err := ValidateGameConfig(config)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	config := createTestConfig()
	config.Rules = Rules{}
	ApplyDefaults(config)

	if config.Rules.BatteryPerStep != DefaultBatteryPerStep {
		t.Errorf("Expected default battery per step, got %d", config.Rules.BatteryPerStep)
	}
	if config.Rules.LowBatteryThreshold != DefaultLowBatteryThreshold {
		t.Errorf("Expected zero threshold to take the default, got %d", config.Rules.LowBatteryThreshold)
	}
	if config.Robots[0].Battery != MaxBattery {
		t.Errorf("Expected full default battery, got %d", config.Robots[0].Battery)
	}
	if config.Messages.Victory != DefaultMessages().Victory {
		t.Error("Expected default victory message")
	}

	config.Rules.LowBatteryThreshold = LowBatteryDisabled
	config.Messages.Welcome = "Привет"
	ApplyDefaults(config)
	if config.Rules.LowBatteryThreshold != LowBatteryDisabled {
		t.Errorf("ApplyDefaults must keep a disabled threshold, got %d", config.Rules.LowBatteryThreshold)
	}
	if config.Messages.Welcome != "Привет" {
		t.Error("ApplyDefaults must not override explicit messages")
	}
}

func TestDefaultConfigIsPlayable(t *testing.T) {
	config := DefaultConfig()
	if err := ValidateGameConfig(config); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
	state := InitGameStateFromConfig(nil)
	if state.ConfigName != config.Name {
		t.Errorf("Expected nil config to fall back to %q, got %q", config.Name, state.ConfigName)
	}
	if CountCellType(state.Grid, Charging) != 2 {
		t.Errorf("Expected 2 chargers, got %d", CountCellType(state.Grid, Charging))
	}
}

func TestCharForCellType(t *testing.T) {
	for _, ch := range []byte{CharEmpty, CharObstacle, CharStart, CharFinish, CharCharging, CharLoading} {
		ct, ok := cellTypeForChar(ch)
		if !ok {
			t.Fatalf("Expected %q to be a layout character", ch)
		}
		if back := CharForCellType(ct); back != ch {
			t.Errorf("Round trip of %q gave %q", ch, back)
		}
	}
}
