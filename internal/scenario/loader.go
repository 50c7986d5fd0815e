package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadError describes a scenario that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.File != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.File, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// knownActions are the operator actions a step may script.
var knownActions = map[string]bool{
	"submit_credentials": true,
	"await_state":        true,
	"submit_manual":      true,
	"force_accept":       true,
	"cancel":             true,
}

// Parse parses a scenario from YAML bytes.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	if sc.ID == "" {
		return nil, &LoadError{Message: "scenario id is required"}
	}
	if len(sc.Steps) == 0 {
		return nil, &LoadError{Message: "scenario must have at least one step"}
	}
	if sc.Expect.FinalState == "" {
		return nil, &LoadError{Message: "scenario must declare expect.final_state"}
	}

	for i, step := range sc.Steps {
		if !knownActions[step.Action] {
			return nil, &LoadError{
				Message: fmt.Sprintf("step %d: unknown action %q", i+1, step.Action),
			}
		}
		switch step.Action {
		case "await_state":
			if step.State == "" {
				return nil, &LoadError{
					Message: fmt.Sprintf("step %d: await_state needs a state", i+1),
				}
			}
		case "submit_manual", "force_accept":
			if step.Address == "" {
				return nil, &LoadError{
					Message: fmt.Sprintf("step %d: %s needs an address", i+1, step.Action),
				}
			}
		}
	}

	return &sc, nil
}

// Load loads one scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	sc, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	return sc, nil
}

// LoadDir loads every *.yaml scenario in a directory, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string)
	for _, path := range paths {
		sc, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[sc.ID]; dup {
			return nil, &LoadError{
				File:    path,
				Message: fmt.Sprintf("duplicate scenario id %q (also in %s)", sc.ID, prev),
			}
		}
		seen[sc.ID] = path
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
