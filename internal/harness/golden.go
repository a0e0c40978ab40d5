package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cachegc/internal/report"
)

// PlanSnapshot is the deterministic, golden-comparable form of a run.
type PlanSnapshot struct {
	ScenarioName  string              `json:"scenario_name"`
	RetentionDays int                 `json:"retention_days"`
	Cutoff        int64               `json:"cutoff"`
	Plan          *report.PlanResult  `json:"plan,omitempty"`
	Closures      map[string][]string `json:"closures,omitempty"`
	Error         string              `json:"error,omitempty"`
}

// Snapshot renders result as indented JSON with a trailing newline.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snap := PlanSnapshot{
		ScenarioName:  scenarioName,
		RetentionDays: result.RetentionDays,
		Cutoff:        result.Cutoff,
		Plan:          result.Plan,
		Closures:      result.Closures,
	}
	if result.Failure != nil {
		snap.Error = result.Failure.Error()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can inspect Pass and Errors.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
