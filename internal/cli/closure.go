package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cachegc/internal/engine"
)

// ClosureOptions holds flags for the closure command.
type ClosureOptions struct {
	*RootOptions
	Missing string
}

// ClosureResult is the closure of one requested object.
type ClosureResult struct {
	ID      string   `json:"id"`
	Path    string   `json:"path,omitempty"`
	Status  string   `json:"status"` // "resolved" or "missing"
	Members []string `json:"members"`
}

// NewClosureCommand creates the closure command.
func NewClosureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClosureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "closure <input> <id>...",
		Short: "Print the closure of store objects",
		Long: `Print every object reachable from each given object, itself included.

Identifiers may be bare hashes or full store paths. Unknown identifiers
have an empty closure under the skip policy and fail under abort.

Examples:
  cachegc closure paths.json 0a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p
  cachegc closure sqlite:db.sqlite /nix/store/0a1b...-hello-2.12 --format json`,
		Args:          commandArgs(cobra.MinimumNArgs(2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClosure(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Missing, "missing", "", "missing reference policy (skip|abort)")

	return cmd
}

func runClosure(opts *ClosureOptions, input string, ids []string, cmd *cobra.Command) error {
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

	eng := engine.New(st, env.engineOptions(policy))
	results := make([]ClosureResult, 0, len(ids))
	for _, id := range ids {
		outcome, err := eng.ClosureOf(id)
		if err != nil {
			return env.out.Fail(ExitFailure, classifyRunError(err), "failed to compute closure", err)
		}
		result := ClosureResult{
			ID:      outcome.ID,
			Status:  outcome.Kind.String(),
			Members: outcome.Closure.IDs(),
		}
		if rec, ok := st.Lookup(outcome.ID); ok {
			result.Path = rec.Path
		}
		results = append(results, result)
	}
	env.log.Debug("closures computed", "memoized", eng.Done(), "unvisited", eng.Pending())

	if env.out.JSON() {
		return env.out.Result(results)
	}

	w := env.out.Out
	for _, r := range results {
		if len(results) > 1 {
			fmt.Fprintf(w, "%s: (%d, %s)\n", r.ID, len(r.Members), r.Status)
			for _, m := range r.Members {
				fmt.Fprintf(w, "  %s\n", m)
			}
			continue
		}
		for _, m := range r.Members {
			fmt.Fprintln(w, m)
		}
	}
	return nil
}
