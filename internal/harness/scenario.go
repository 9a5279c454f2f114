// Package harness runs compilation scenarios against golden files.
//
// A scenario is a YAML file listing questions to compile against one
// dataset fixture. The harness compiles each question and snapshots the
// pattern id, the rendered query, and any guidance message; the snapshot
// is compared against a golden file, which serves as the source of truth
// for catalogue behavior.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines one compilation conformance run.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Backend selects the catalogue: "sql" or "document".
	Backend string `yaml:"backend"`

	// Fixture names the dataset classification to compile against:
	// "sales", "spotify", or "students".
	Fixture string `yaml:"fixture"`

	// Questions are compiled in order; each contributes one snapshot
	// block.
	Questions []string `yaml:"questions"`
}

// LoadScenario reads and validates a single scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s has no name", path)
	}
	if sc.Backend != "sql" && sc.Backend != "document" {
		return nil, fmt.Errorf("scenario %s: unknown backend %q", path, sc.Backend)
	}
	if len(sc.Questions) == 0 {
		return nil, fmt.Errorf("scenario %s has no questions", path)
	}
	return &sc, nil
}

// LoadScenarios reads every *.yaml scenario in a directory, sorted by
// file name for a stable run order.
func LoadScenarios(dir string) ([]*Scenario, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var scenarios []*Scenario
	for _, path := range matches {
		sc, err := LoadScenario(path)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	return scenarios, nil
}
