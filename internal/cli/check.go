package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cachegc/internal/engine"
	"github.com/roach88/cachegc/internal/store"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Missing string
}

// DanglingRef is a reference to an object outside the loaded store.
type DanglingRef struct {
	Referrer  string `json:"referrer"`
	Reference string `json:"reference"`
}

// CheckResult holds the integrity findings for one input.
type CheckResult struct {
	Records          int           `json:"records"`
	Objects          int           `json:"objects"`
	Duplicates       int           `json:"duplicates"`
	Origins          int           `json:"origins"`
	Dangling         []DanglingRef `json:"dangling"`
	SelfReferences   []string      `json:"self_references"`
	CyclicGroups     int           `json:"cyclic_groups"`
	LargestComponent int           `json:"largest_component"`
	MissingPolicy    string        `json:"missing_policy"`
	OK               bool          `json:"ok"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <input>",
		Short: "Report integrity findings for an input",
		Long: `Report duplicates, dangling references, self references and
reference cycles in an input without computing a plan.

Dangling references are a failure only under the abort policy.

Exit codes:
  0 - Input usable under the selected policy
  1 - Dangling references under the abort policy
  2 - Command error (unreadable or malformed input, invalid config)

Examples:
  cachegc check paths.json
  cachegc check sqlite:db.sqlite --missing abort --format json`,
		Args:          commandArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Missing, "missing", "", "missing reference policy (skip|abort)")

	return cmd
}

func runCheck(opts *CheckOptions, input string, cmd *cobra.Command) error {
	env, err := newRunEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	policy, err := env.policy(opts.Missing)
	if err != nil {
		return err
	}

	st, err := env.loadStore(input)
	if err != nil {
		return err
	}

	// Closures are computed under skip so every finding is collected.
	engOpts := env.engineOptions(engine.MissingSkip)
	closures, err := engine.New(st, engOpts).ComputeAll()
	if err != nil {
		return env.out.Fail(ExitFailure, classifyRunError(err), "failed to compute closures", err)
	}

	result := inspect(st, closures.Stats())
	result.MissingPolicy = policy.String()
	result.OK = policy != engine.MissingAbort || len(result.Dangling) == 0

	env.log.Info("check finished",
		"objects", result.Objects,
		"dangling", len(result.Dangling),
		"cyclic_groups", result.CyclicGroups,
		"ok", result.OK,
	)

	if env.out.JSON() {
		if err := writeCheckJSON(env.out, result); err != nil {
			return err
		}
	} else {
		writeCheckText(env.out, result)
	}

	if !result.OK {
		return Exitf(ExitFailure, "%s: %d dangling reference(s) under abort policy",
			ErrCodeCheckFailed, len(result.Dangling))
	}
	return nil
}

// inspect collects findings from st and the traversal statistics.
func inspect(st *store.Store, stats engine.Stats) CheckResult {
	storeStats := st.Stats()
	result := CheckResult{
		Records:          storeStats.Records,
		Objects:          storeStats.Unique,
		Duplicates:       storeStats.Duplicates,
		Origins:          storeStats.Origins,
		Dangling:         []DanglingRef{},
		SelfReferences:   []string{},
		CyclicGroups:     stats.CyclicComponents,
		LargestComponent: stats.LargestComponent,
	}

	for idx := range uint32(st.Len()) {
		id := st.ID(idx)
		for _, ref := range st.Dangling(idx) {
			result.Dangling = append(result.Dangling, DanglingRef{Referrer: id, Reference: ref})
		}
		if slices.Contains(st.References(idx), idx) {
			result.SelfReferences = append(result.SelfReferences, id)
		}
	}
	return result
}

func writeCheckJSON(out *Printer, result CheckResult) error {
	if result.OK {
		return out.Result(result)
	}
	return out.Problem(ErrCodeCheckFailed,
		fmt.Sprintf("%d dangling reference(s) under abort policy", len(result.Dangling)), result)
}

func writeCheckText(out *Printer, result CheckResult) {
	w := out.Out
	fmt.Fprintf(w, "Objects:          %d (%d records, %d duplicate(s))\n", result.Objects, result.Records, result.Duplicates)
	fmt.Fprintf(w, "Origins:          %d\n", result.Origins)
	fmt.Fprintf(w, "Self references:  %d\n", len(result.SelfReferences))
	fmt.Fprintf(w, "Cyclic groups:    %d (largest %d)\n", result.CyclicGroups, result.LargestComponent)
	fmt.Fprintf(w, "Dangling:         %d\n", len(result.Dangling))
	for _, d := range result.Dangling {
		fmt.Fprintf(w, "  %s -> %s\n", d.Referrer, d.Reference)
	}

	fmt.Fprintln(w)
	if result.OK {
		fmt.Fprintf(w, "✓ Input usable (missing policy: %s)\n", result.MissingPolicy)
		return
	}
	fmt.Fprintf(w, "✗ Dangling references under missing policy %s\n", result.MissingPolicy)
}
