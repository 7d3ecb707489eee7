package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Factory builds the App once flags are parsed.
type Factory func(ctx context.Context, opts Options) (*App, error)

// NewRootCommand returns the ciscoctl command tree. The returned function
// closes the App built for the executed command.
func NewRootCommand(factory Factory) (*cobra.Command, func() error) {
	var (
		opts Options
		app  *App
	)
	root := &cobra.Command{
		Use:           "ciscoctl",
		Short:         "Manage network device profiles and run commands over SSH or Telnet",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.In = cmd.InOrStdin()
			opts.Out = cmd.OutOrStdout()
			opts.Err = cmd.ErrOrStderr()
			a, err := factory(cmd.Context(), opts)
			if err != nil {
				return err
			}
			app = a
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default: search ./terminalnator.yaml, user and system config dirs)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.BoolVar(&opts.Strict, "strict", false, "refuse devices whose prompt family cannot be determined")

	get := func() *App { return app }
	root.AddCommand(
		newListCommand(get),
		newAddCommand(get),
		newDeleteCommand(get),
		newImportCommand(get),
		newRunCommand(get),
		newPushCommand(get),
		newSaveCommand(get),
		newDetectCommand(get),
		newTransferCommand(get),
		newConnectCommand(get),
	)

	cleanup := func() error {
		if app == nil {
			return nil
		}
		return app.Close()
	}
	return root, cleanup
}

// Execute runs the command line and closes everything it opened.
func Execute(ctx context.Context, args []string, version string) error {
	root, cleanup := NewRootCommand(Bootstrap)
	root.Version = version
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := cleanup(); err == nil {
		err = cerr
	}
	return err
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid profile id %q", s)
	}
	return id, nil
}

func (a *App) commandTimeout(flag time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	return a.Config.CommandTimeout.Std()
}
