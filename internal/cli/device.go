package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carlosrabelo/terminalnator/internal/session"
	"github.com/carlosrabelo/terminalnator/internal/transfer"
	"github.com/carlosrabelo/terminalnator/platform"
)

func newRunCommand(app func() *App) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run <id> <command>...",
		Short: "Run one command on a device and print its output",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.Session(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.runCommand(cmd.Context(), sess, strings.Join(args[1:], " "), timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "command timeout (default from config)")
	return cmd
}

func (a *App) runCommand(ctx context.Context, sess *session.Session, text string, timeout time.Duration) error {
	result, err := sess.RunCommand(ctx, text, a.commandTimeout(timeout))
	if result.Output != "" {
		fmt.Fprintln(a.Out, result.Output)
	}
	if err != nil {
		return err
	}
	if result.Truncated {
		fmt.Fprintln(a.Out, "(output truncated)")
	}
	if result.Rejected {
		return &session.RejectedError{Command: result.Command, Output: result.Output}
	}
	return nil
}

func newPushCommand(app func() *App) *cobra.Command {
	var (
		timeout    time.Duration
		configMode bool
		keepGoing  bool
		save       bool
	)
	cmd := &cobra.Command{
		Use:   "push <id> <file>",
		Short: "Send configuration lines from a file to a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			lines, err := session.ReadConfigLines(args[1])
			if err != nil {
				return err
			}
			sess, err := a.Session(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := a.pushConfig(cmd.Context(), sess, lines, pushOptions{
				timeout:     timeout,
				configMode:  configMode,
				stopOnError: !keepGoing,
			}); err != nil {
				return err
			}
			if save {
				return a.saveConfig(cmd.Context(), sess, timeout)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per line timeout (default from config)")
	cmd.Flags().BoolVar(&configMode, "config-mode", false, "wrap lines in the platform's configuration mode commands")
	cmd.Flags().BoolVar(&keepGoing, "continue", false, "keep sending lines after the device rejects one")
	cmd.Flags().BoolVar(&save, "save", false, "save the running configuration afterwards")
	return cmd
}

type pushOptions struct {
	timeout     time.Duration
	configMode  bool
	stopOnError bool
}

func (a *App) pushConfig(ctx context.Context, sess *session.Session, lines []string, opts pushOptions) (err error) {
	if len(lines) == 0 {
		fmt.Fprintln(a.Out, "Nothing to push.")
		return nil
	}
	timeout := a.commandTimeout(opts.timeout)
	if opts.configMode {
		enter, exit := driverOf(sess).ConfigModeCommands()
		if err := runModeCommands(ctx, sess, enter, timeout); err != nil {
			return fmt.Errorf("enter configuration mode: %w", err)
		}
		// Leave configuration mode on every path the session survives.
		defer func() {
			if sess.State() != session.StateReady {
				return
			}
			if exitErr := runModeCommands(ctx, sess, exit, timeout); exitErr != nil && err == nil {
				err = fmt.Errorf("leave configuration mode: %w", exitErr)
			}
		}()
	}

	results, err := sess.PushConfig(ctx, lines, timeout, opts.stopOnError)
	rejected := 0
	for _, r := range results {
		printResult(a.Out, r)
		if r.Rejected {
			rejected++
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Pushed %d lines, %d rejected\n", len(results), rejected)
	return nil
}

func runModeCommands(ctx context.Context, sess *session.Session, commands []string, timeout time.Duration) error {
	for _, command := range commands {
		res, err := sess.RunCommand(ctx, command, timeout)
		if err != nil {
			return err
		}
		if res.Rejected {
			return &session.RejectedError{Command: res.Command, Output: res.Output}
		}
	}
	return nil
}

func newSaveCommand(app func() *App) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Save the running configuration of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.Session(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.saveConfig(cmd.Context(), sess, timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout (default from config)")
	return cmd
}

func (a *App) saveConfig(ctx context.Context, sess *session.Session, timeout time.Duration) error {
	results, err := sess.Save(ctx, a.commandTimeout(timeout))
	for _, r := range results {
		printResult(a.Out, r)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(a.Out, "Platform %s has no save command\n", driverOf(sess).Name())
		return nil
	}
	fmt.Fprintln(a.Out, "Configuration saved")
	return nil
}

func newDetectCommand(app func() *App) *cobra.Command {
	var (
		useSNMP bool
		update  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "detect <id>",
		Short: "Identify the operating system of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			profile, err := a.Store.Get(id)
			if err != nil {
				return err
			}

			var drv platform.Driver
			if useSNMP {
				info, err := a.Prober.Probe(cmd.Context(), profile.Host)
				if err != nil {
					return err
				}
				drv = info.Platform
			} else {
				sess, err := a.Session(cmd.Context(), id)
				if err != nil {
					return err
				}
				drv, err = platform.DetectRemote(cmd.Context(), sess, a.commandTimeout(timeout))
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(a.Out, "Profile %d: platform %s (family %s)\n", id, drv.Name(), drv.Family())

			if !update {
				return nil
			}
			profile.Platform = drv.Name()
			if !profile.Family.Known() {
				profile.Family = drv.Family()
			}
			if err := a.Store.Replace(cmd.Context(), profile); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Updated profile %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useSNMP, "snmp", false, "query sysDescr over SNMP instead of opening a session")
	cmd.Flags().BoolVar(&update, "update", false, "store the detected platform in the profile")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "command timeout (default from config)")
	return cmd
}

func newTransferCommand(app func() *App) *cobra.Command {
	var protocol string
	cmd := &cobra.Command{
		Use:       "transfer <id> <upload|download> <local> <remote>",
		Short:     "Copy a file to or from a device over scp or sftp",
		Args:      cobra.ExactArgs(4),
		ValidArgs: []string{"upload", "download"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			direction, local, remote := args[1], args[2], args[3]
			if direction != "upload" && direction != "download" {
				return fmt.Errorf("direction must be upload or download, got %q", direction)
			}
			sess, err := a.Session(cmd.Context(), id)
			if err != nil {
				return err
			}
			conn, err := transfer.ClientFrom(sess.Channel())
			if err != nil {
				return err
			}
			if protocol == "" {
				protocol = driverOf(sess).TransferProtocol()
			}
			client, err := transfer.New(conn, protocol)
			if err != nil {
				return err
			}
			defer client.Close()

			if direction == "upload" {
				n, err := transfer.UploadFile(cmd.Context(), client, local, remote)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.Out, "Uploaded %d bytes to %s over %s\n", n, remote, protocol)
				return nil
			}
			if err := transfer.DownloadFile(cmd.Context(), client, remote, local); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Downloaded %s to %s over %s\n", remote, local, protocol)
			return nil
		},
	}
	cmd.Flags().StringVar(&protocol, "protocol", "", "scp or sftp (default from the platform driver)")
	return cmd
}

func driverOf(sess *session.Session) platform.Driver {
	if d := sess.Driver(); d != nil {
		return d
	}
	return platform.Generic()
}
