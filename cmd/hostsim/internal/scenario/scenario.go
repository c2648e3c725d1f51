// Package scenario loads host lifecycle scripts for the hostsim tool.
//
// A scenario is a YAML file listing host callbacks in the order the
// simulated platform fires them:
//
//	app:
//	  name: demo
//	steps:
//	  - start
//	  - resume
//	  - window: create
//	  - focus: gained
//	  - wait: 50ms
//	  - save_state
//	  - pause
//	  - stop
//	  - destroy
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// StepKind identifies a scripted host action.
type StepKind string

const (
	StepStart       StepKind = "start"
	StepResume      StepKind = "resume"
	StepPause       StepKind = "pause"
	StepStop        StepKind = "stop"
	StepSaveState   StepKind = "save_state"
	StepDestroy     StepKind = "destroy"
	StepLowMemory   StepKind = "low_memory"
	StepWindow      StepKind = "window"
	StepFocus       StepKind = "focus"
	StepInputQueue  StepKind = "input_queue"
	StepWait        StepKind = "wait"
	StepOrientation StepKind = "orientation"
)

// Step is one scripted host action. Arg carries the action's parameter:
// "create"/"destroy"/"resize"/"redraw" for window, "gained"/"lost" for
// focus, "create"/"destroy" for input_queue, "portrait"/"landscape" for
// orientation. Wait holds the parsed wait duration.
type Step struct {
	Kind StepKind
	Arg  string
	Wait time.Duration
}

// UnmarshalYAML accepts either a bare string ("resume") or a single-key
// mapping ("window: create", "wait: 50ms").
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.Kind = StepKind(node.Value)
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("step mapping must have exactly one key (line %d)", node.Line)
		}
		s.Kind = StepKind(node.Content[0].Value)
		s.Arg = node.Content[1].Value
	default:
		return fmt.Errorf("unsupported step node (line %d)", node.Line)
	}

	switch s.Kind {
	case StepStart, StepResume, StepPause, StepStop, StepSaveState,
		StepDestroy, StepLowMemory:
		if s.Arg != "" {
			return fmt.Errorf("step %q takes no argument", s.Kind)
		}
	case StepWindow:
		switch s.Arg {
		case "create", "destroy", "resize", "redraw":
		default:
			return fmt.Errorf("step window: unknown argument %q", s.Arg)
		}
	case StepFocus:
		switch s.Arg {
		case "gained", "lost":
		default:
			return fmt.Errorf("step focus: unknown argument %q", s.Arg)
		}
	case StepInputQueue:
		switch s.Arg {
		case "create", "destroy":
		default:
			return fmt.Errorf("step input_queue: unknown argument %q", s.Arg)
		}
	case StepOrientation:
		switch s.Arg {
		case "portrait", "landscape":
		default:
			return fmt.Errorf("step orientation: unknown argument %q", s.Arg)
		}
	case StepWait:
		d, err := time.ParseDuration(s.Arg)
		if err != nil {
			return fmt.Errorf("step wait: %w", err)
		}
		s.Wait = d
	default:
		return fmt.Errorf("unknown step %q", s.Kind)
	}
	return nil
}

// AppConfig carries scenario metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
}

// Scenario is a parsed lifecycle script.
type Scenario struct {
	App   AppConfig `yaml:"app"`
	Steps []Step    `yaml:"steps"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &sc, nil
}

// DefaultAppName resolves a fallback app name from the enclosing Go module,
// or the directory name when no go.mod is found.
func DefaultAppName(dir string) string {
	base := filepath.Base(dir)

	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return base
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return base
	}

	modName, _, ok := module.SplitPathVersion(path)
	if ok {
		parts := strings.Split(modName, "/")
		if len(parts) > 0 && parts[len(parts)-1] != "" {
			return parts[len(parts)-1]
		}
	}
	return base
}
