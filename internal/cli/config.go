package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the --config file and
CACHEGC_* environment variables.

Examples:
  cachegc config
  cachegc config --config /etc/cachegc.yaml --format json`,
		Args:          commandArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, cmd)
		},
	}
}

func runConfig(opts *RootOptions, cmd *cobra.Command) error {
	env, err := newRunEnv(opts, cmd)
	if err != nil {
		return err
	}

	if env.out.JSON() {
		return env.out.Result(env.cfg)
	}

	data, err := yaml.Marshal(env.cfg)
	if err != nil {
		return env.out.Fail(ExitFailure, ErrCodeGeneric, "failed to render config", err)
	}
	_, err = env.out.Out.Write(data)
	return err
}
