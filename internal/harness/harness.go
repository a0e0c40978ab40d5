package harness

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/report"
	"github.com/roach88/cachegc/internal/retention"
	"github.com/roach88/cachegc/internal/store"
	"github.com/roach88/cachegc/internal/storepath"
	"github.com/roach88/cachegc/internal/sweep"
	"github.com/roach88/cachegc/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Parse the retention window and missing policy
//  2. Build the record store from the scenario snapshot
//  3. Compute closures, roots and the plan at the scenario's fixed time
//  4. Check closure expectations and assertions
//
// A failing run (for example a missing reference under the abort policy)
// is not an error of Run; it is recorded in Result.Failure and checked
// against error assertions.
func Run(scenario *Scenario) (*Result, error) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	policy, err := engine.ParseMissingPolicy(scenario.MissingPolicy)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.RetentionDays = retention.ParseDays(scenario.RetentionDays, logger)

	records := make([]storepath.Record, len(scenario.Records))
	for i, spec := range scenario.Records {
		records[i] = spec.Record()
	}
	st := store.Build(records, store.Config{
		Canonicalizer: storepath.Default(),
		Logger:        logger,
	})

	clock := testutil.NewFixedClock(scenario.Now)
	res, runErr := sweep.Compute(st, sweep.Options{
		RetentionDays: result.RetentionDays,
		Now:           clock.Now,
		Engine: engine.Options{
			MissingPolicy: policy,
			Logger:        logger,
		},
	})
	result.Cutoff = retention.Cutoff(clock.Now(), result.RetentionDays)

	if runErr != nil {
		result.Failure = runErr
	} else {
		plan := report.NewPlanResult(res.Plan)
		result.Plan = &plan
		collectClosures(scenario, res.Closures, result)
	}
	result.Log = logBuf.String()

	for _, msg := range EvaluateAssertions(scenario, result) {
		result.AddError(msg)
	}

	return result, nil
}

func collectClosures(scenario *Scenario, closures *engine.Closures, result *Result) {
	ids := make([]string, 0, len(scenario.Closures))
	for id := range scenario.Closures {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		c, ok := closures.Get(id)
		if !ok {
			result.AddError(fmt.Sprintf("closure of %s: not in store", id))
			continue
		}
		result.Closures[id] = c.IDs()
	}
}

// ErrorCode classifies a run failure for error assertions.
func ErrorCode(err error) string {
	var ce *engine.ClosureError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return string(ce.Code)
	case errors.Is(err, sweep.ErrRootWithoutClosure):
		return "ROOT_WITHOUT_CLOSURE"
	default:
		return "ERROR"
	}
}
