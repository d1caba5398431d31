package validate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmi-s/rongame/game/engine"
)

const chargerlessLevel = `{
	"name": "no-charger",
	"width": 3,
	"height": 3,
	"layout": ["S.L", "...", "..F"],
	"robots": [{"id": 1, "start": {"x": 0, "y": 0}, "finish": {"x": 2, "y": 2}, "battery": 15}]
}`

const farCellsLevel = `name: far
width: 5
height: 3
layout:
  - "SC..L"
  - "....."
  - "....F"
robots:
  - id: 1
    start: {x: 0, y: 0}
    finish: {x: 4, y: 2}
rules:
  battery_per_step: 5
  charge_to: 10
`

func writeLevel(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write level: %v", err)
	}
	return path
}

func TestFile_ShippedLevels(t *testing.T) {
	results, err := Dir(filepath.Join("..", "game", "config", "levels"))
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected shipped levels")
	}
	for _, r := range results {
		if !r.Valid {
			t.Errorf("Level %s should be valid: %v", r.File, r.Errors)
		}
	}
}

func TestFile_Valid(t *testing.T) {
	path := writeLevel(t, t.TempDir(), "ok.json", chargerlessLevel)

	result := File(path)
	if !result.Valid {
		t.Fatalf("Expected valid level, got errors %v", result.Errors)
	}
	if result.File != "ok.json" {
		t.Errorf("Expected base name, got %s", result.File)
	}

	info := strings.Join(result.Info, "\n")
	for _, want := range []string{"Name: no-charger", "Grid: 3x3", "Robots: 1", "Chargers: 0", "Loading stations: 1"} {
		if !strings.Contains(info, want) {
			t.Errorf("Expected info %q in %v", want, result.Info)
		}
	}
}

func TestFile_CountsStations(t *testing.T) {
	level := `{"name":"stations","width":3,"height":3,"layout":["SCL","C..","L.F"],
		"robots":[{"id":1,"start":{"x":0,"y":0},"finish":{"x":2,"y":2}}]}`
	path := writeLevel(t, t.TempDir(), "stations.json", level)

	result := File(path)
	if !result.Valid {
		t.Fatalf("Expected valid level, got errors %v", result.Errors)
	}
	info := strings.Join(result.Info, "\n")
	for _, want := range []string{"Chargers: 2", "Loading stations: 2"} {
		if !strings.Contains(info, want) {
			t.Errorf("Expected info %q in %v", want, result.Info)
		}
	}
}

func TestFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		errPart string
	}{
		{"bad json", "bad.json", `{"name":`, "failed to parse config"},
		{"bad yaml", "bad.yaml", "name: [", "failed to parse config"},
		{"bad character", "char.json", `{"name":"x","width":3,"height":3,"layout":["S.L","?..","..F"],
			"robots":[{"id":1,"start":{"x":0,"y":0},"finish":{"x":2,"y":2}}]}`, "invalid character"},
		{"no loading", "noload.json", `{"name":"x","width":3,"height":3,"layout":["S..","...","..F"],
			"robots":[{"id":1,"start":{"x":0,"y":0},"finish":{"x":2,"y":2}}]}`, "loading (L)"},
		{"unwinnable", "walled.json", `{"name":"x","width":3,"height":3,"layout":["S#L","###","..F"],
			"robots":[{"id":1,"start":{"x":0,"y":0},"finish":{"x":2,"y":2}}]}`, "cannot reach"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := File(writeLevel(t, dir, tt.file, tt.content))
			if result.Valid {
				t.Fatal("Expected invalid level")
			}
			if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, result.Errors)
			}
			if len(result.Info) != 0 {
				t.Errorf("Invalid levels carry no info, got %v", result.Info)
			}
		})
	}
}

func TestFile_Missing(t *testing.T) {
	result := File(filepath.Join(t.TempDir(), "missing.json"))
	if result.Valid || !strings.Contains(result.Errors[0], "Failed to read file") {
		t.Errorf("Expected read failure, got %+v", result)
	}
}

func TestAnalyze_NoChargerShortRoute(t *testing.T) {
	path := writeLevel(t, t.TempDir(), "ok.json", chargerlessLevel)

	result := File(path)
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", result.Warnings)
	}
	want := "Robot 1 needs 20% battery for its shortest route but starts with 15%"
	if !strings.Contains(result.Warnings[0], want) {
		t.Errorf("Expected %q, got %q", want, result.Warnings[0])
	}
}

func TestAnalyze_FarCells(t *testing.T) {
	result := File(writeLevel(t, t.TempDir(), "far.yaml", farCellsLevel))
	if !result.Valid {
		t.Fatalf("Expected valid level, got %v", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %v", result.Warnings)
	}
	w := result.Warnings[0]
	if !strings.HasPrefix(w, "7 cells are more than 2 steps from any charger") {
		t.Errorf("Unexpected warning %q", w)
	}
	if !strings.HasSuffix(w, "and 2 more") {
		t.Errorf("Expected the list to be capped, got %q", w)
	}
}

func TestAnalyze_DefaultLevelIsSafe(t *testing.T) {
	level := engine.DefaultConfig()
	if err := engine.ValidateGameConfig(level); err != nil {
		t.Fatalf("Default level invalid: %v", err)
	}
	if warnings := Analyze(level); len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
}

func TestRouteLength(t *testing.T) {
	layout := []string{
		"S.L",
		"#.#",
		"..F",
	}
	steps, ok := routeLength(layout, engine.Position{X: 0, Y: 0}, engine.Position{X: 2, Y: 2})
	if !ok {
		t.Fatal("Expected a route")
	}
	// (0,0)->(2,0) is 2 steps, (2,0)->(1,0)->(1,1)->(1,2)->(2,2) is 4
	if steps != 6 {
		t.Errorf("Expected 6 steps, got %d", steps)
	}

	if _, ok := routeLength([]string{"S#L", "###", "..F"}, engine.Position{}, engine.Position{X: 2, Y: 2}); ok {
		t.Error("Expected no route through walls")
	}
}

func TestDir(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "b.yaml", farCellsLevel)
	writeLevel(t, dir, "a.json", chargerlessLevel)
	writeLevel(t, dir, "notes.txt", "not a level")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0755); err != nil {
		t.Fatal(err)
	}

	results, err := Dir(dir)
	if err != nil {
		t.Fatalf("Dir failed: %v", err)
	}
	if len(results) != 2 || results[0].File != "a.json" || results[1].File != "b.yaml" {
		t.Errorf("Expected a.json and b.yaml in order, got %+v", results)
	}

	if _, err := Dir(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestPrint(t *testing.T) {
	valid := Result{File: "a.json", Valid: true, Info: []string{"Name: a"}, Warnings: []string{"far away"}}
	invalid := Result{File: "b.json", Errors: []string{"broken"}}

	tests := []struct {
		name    string
		results []Result
		ok      bool
		want    []string
	}{
		{"all valid", []Result{valid}, true, []string{"✅ VALID", "✓ Name: a", "⚠️  far away", "All levels are valid"}},
		{"one invalid", []Result{valid, invalid}, false, []string{"❌ INVALID", "❌ broken", "Some levels have errors"}},
		{"empty", nil, true, []string{"No level files found"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if ok := Print(&buf, tt.results); ok != tt.ok {
				t.Errorf("Expected %v, got %v", tt.ok, ok)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Expected %q in output:\n%s", want, buf.String())
				}
			}
		})
	}
}
