package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadFullScript(t *testing.T) {
	path := writeScenario(t, `
app:
  name: demo
steps:
  - start
  - resume
  - window: create
  - focus: gained
  - wait: 50ms
  - input_queue: create
  - orientation: landscape
  - save_state
  - pause
  - stop
  - destroy
`)

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sc.App.Name != "demo" {
		t.Errorf("app name: got %q", sc.App.Name)
	}
	if len(sc.Steps) != 11 {
		t.Fatalf("got %d steps", len(sc.Steps))
	}

	if sc.Steps[2].Kind != StepWindow || sc.Steps[2].Arg != "create" {
		t.Errorf("step 2: %+v", sc.Steps[2])
	}
	if sc.Steps[4].Kind != StepWait || sc.Steps[4].Wait != 50*time.Millisecond {
		t.Errorf("step 4: %+v", sc.Steps[4])
	}
	if sc.Steps[6].Kind != StepOrientation || sc.Steps[6].Arg != "landscape" {
		t.Errorf("step 6: %+v", sc.Steps[6])
	}
	if sc.Steps[10].Kind != StepDestroy {
		t.Errorf("step 10: %+v", sc.Steps[10])
	}
}

func TestLoadRejectsEmptySteps(t *testing.T) {
	path := writeScenario(t, "app:\n  name: demo\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for scenario without steps")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStepValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		ok   bool
	}{
		{"bare lifecycle", "resume", true},
		{"window create", "window: create", true},
		{"window bogus", "window: maximize", false},
		{"focus lost", "focus: lost", true},
		{"focus bogus", "focus: blur", false},
		{"input queue destroy", "input_queue: destroy", true},
		{"orientation portrait", "orientation: portrait", true},
		{"orientation bogus", "orientation: upside_down", false},
		{"wait", "wait: 250ms", true},
		{"wait unparsable", "wait: soon", false},
		{"lifecycle with arg", "pause: now", false},
		{"unknown kind", "hibernate", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Step
			err := yaml.Unmarshal([]byte(tt.yaml), &s)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatalf("expected error, parsed %+v", s)
			}
		})
	}
}

func TestDefaultAppNameFromModule(t *testing.T) {
	dir := t.TempDir()
	mod := "module github.com/example/lifecycle-demo/v2\n\ngo 1.24.0\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(mod), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := DefaultAppName(dir); got != "lifecycle-demo" {
		t.Errorf("got %q, want %q", got, "lifecycle-demo")
	}
}

func TestDefaultAppNameFallsBackToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plainapp")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if got := DefaultAppName(dir); got != "plainapp" {
		t.Errorf("got %q, want %q", got, "plainapp")
	}
}
