package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/cachegc/internal/metrics"
	"github.com/roach88/cachegc/internal/report"
	"github.com/roach88/cachegc/internal/retention"
	"github.com/roach88/cachegc/internal/store"
	"github.com/roach88/cachegc/internal/sweep"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Days        string
	Missing     string
	Keys        bool
	MetricsFile string

	// Now overrides the reference time (for testing).
	// If nil, defaults to time.Now.
	Now func() time.Time
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan [input] [days]",
		Short: "Compute the deletion plan",
		Long: `Compute which store objects and nar files can be deleted.

The input is a JSON array of path records read from stdin ("-", the
default), a file, s3://bucket/key, sqlite:<db> or narinfo:<dir>. JSON
inputs may be zstd, lz4, gzip or snappy compressed.

One line per deletable object (<hash>.narinfo) is written to stdout,
followed by one line per deletable nar file. A summary goes to stderr.

Exit codes:
  0 - Plan computed
  1 - Dangling reference under the abort policy, or other run failure
  2 - Command error (unreadable or malformed input, invalid config)

Examples:
  cachegc plan < paths.json
  cachegc plan - 30
  cachegc plan paths.json -5       # invalid window, falls back to 90 days
  cachegc plan sqlite:/nix/var/nix/db/db.sqlite --days 14 --keys
  cachegc plan s3://cache/paths.json.zst --missing abort --format json`,
		// Flags are parsed in RunE so "plan - -5" keeps -5 as the window.
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, err := parsePlanArgs(cmd, args)
			if err != nil {
				return err
			}
			if help, _ := cmd.Flags().GetBool("help"); help {
				return cmd.Help()
			}
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			if err := commandArgs(cobra.MaximumNArgs(2))(cmd, positional); err != nil {
				return err
			}
			return runPlan(opts, positional, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Days, "days", "", "retention window in days (default from config)")
	cmd.Flags().StringVar(&opts.Missing, "missing", "", "missing reference policy (skip|abort)")
	cmd.Flags().BoolVar(&opts.Keys, "keys", false, "print bare object keys instead of .narinfo names")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	return cmd
}

// parsePlanArgs splits args into flags and positionals, then parses the
// flags. A negative number is a positional, so an invalid window such as
// -5 reaches retention.ParseDays instead of failing as an unknown flag.
func parsePlanArgs(cmd *cobra.Command, args []string) ([]string, error) {
	flags := cmd.Flags()
	flags.AddFlagSet(cmd.InheritedFlags())

	var flagArgs, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case arg == "-" || !strings.HasPrefix(arg, "-") || isNegativeNumber(arg):
			positional = append(positional, arg)
		default:
			flagArgs = append(flagArgs, arg)
			if f := lookupFlag(flags, arg); f != nil && f.NoOptDefVal == "" && i+1 < len(args) {
				i++
				flagArgs = append(flagArgs, args[i])
			}
		}
	}

	if err := flags.Parse(flagArgs); err != nil {
		return nil, cmd.FlagErrorFunc()(cmd, err)
	}
	return positional, nil
}

// lookupFlag returns the flag a "--name" or "-n" argument names when its
// value is passed as the next argument.
func lookupFlag(flags *pflag.FlagSet, arg string) *pflag.Flag {
	if strings.Contains(arg, "=") {
		return nil
	}
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		return flags.Lookup(name)
	}
	if len(arg) == 2 {
		return flags.ShorthandLookup(arg[1:])
	}
	return nil
}

func isNegativeNumber(arg string) bool {
	_, err := strconv.Atoi(arg)
	return err == nil && strings.HasPrefix(arg, "-")
}

func runPlan(opts *PlanOptions, args []string, cmd *cobra.Command) error {
	env, err := newRunEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}

	input := "-"
	if len(args) > 0 {
		input = args[0]
	}

	days := env.cfg.RetentionDays
	rawDays := opts.Days
	if rawDays == "" && len(args) > 1 {
		rawDays = args[1]
	}
	if rawDays != "" {
		days = retention.ParseDays(rawDays, env.log)
	}

	policy, err := env.policy(opts.Missing)
	if err != nil {
		return err
	}

	st, err := env.loadStore(input)
	if err != nil {
		return err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	res, err := sweep.Compute(st, sweep.Options{
		RetentionDays: days,
		Now:           now,
		Engine:        env.engineOptions(policy),
	})
	if err != nil {
		return env.out.Fail(ExitFailure, classifyRunError(err), "failed to compute plan", err)
	}

	env.log.Info("plan computed",
		"retention_days", days,
		"cutoff", res.Cutoff,
		"roots", res.Plan.RootCount(),
		"delete", res.Plan.DeleteCount(),
		"delete_origins", len(res.Plan.DeletableOrigins),
		"closure_duration", res.ClosureDuration,
	)

	metricsFile := opts.MetricsFile
	if metricsFile == "" {
		metricsFile = env.cfg.MetricsFile
	}
	if metricsFile != "" {
		if err := writePlanMetrics(metricsFile, st, res, now()); err != nil {
			return env.out.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write metrics", err)
		}
		env.log.Debug("metrics written", "path", metricsFile)
	}

	if env.out.JSON() {
		return env.out.Result(report.NewPlanResult(res.Plan))
	}

	if err := report.WriteDeletions(env.out.Out, res.Plan, report.Options{BareKeys: opts.Keys}); err != nil {
		return env.out.Fail(ExitFailure, ErrCodeWriteFailed, "failed to write plan", err)
	}
	fmt.Fprintln(env.out.Diagnostics(), report.Summary(res.Plan))
	return nil
}

// writePlanMetrics records the run in a fresh registry and writes it as a
// node-exporter textfile.
func writePlanMetrics(path string, st *store.Store, res *sweep.Result, finished time.Time) error {
	stats := res.Closures.Stats()
	m := metrics.New()
	m.Observe(metrics.Snapshot{
		Objects:            res.Plan.TotalObjects(),
		DeletableObjects:   res.Plan.DeleteCount(),
		Origins:            res.Plan.TotalOrigins(),
		DeletableOrigins:   len(res.Plan.DeletableOrigins),
		ReclaimableBytes:   res.Plan.ReclaimableBytes,
		Roots:              res.Plan.RootCount(),
		DanglingReferences: st.Stats().Dangling,
		CyclicGroups:       stats.CyclicComponents,
		ClosureDuration:    res.ClosureDuration,
		Finished:           finished,
	})
	return m.WriteTextfile(path)
}
