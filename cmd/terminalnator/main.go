package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/carlosrabelo/terminalnator/internal/cli"
	"github.com/carlosrabelo/terminalnator/internal/ui"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var opts cli.Options
	root := &cobra.Command{
		Use:          "terminalnator",
		Short:        "Interactive terminal for network device sessions",
		Version:      fmt.Sprintf("%s (built %s)", version, buildTime),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the alternate screen owns stderr while the UI runs
			if dir, err := os.UserConfigDir(); err == nil {
				opts.FallbackLogFile = filepath.Join(dir, "terminalnator", "terminalnator.log")
			}
			app, err := cli.Bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer app.Close()
			return ui.Run(app, app.Config.CommandTimeout.Std())
		},
	}
	root.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file")
	root.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	root.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	root.Flags().BoolVar(&opts.Strict, "strict", false, "refuse devices whose prompt family cannot be determined")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
