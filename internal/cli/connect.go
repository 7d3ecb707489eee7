package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carlosrabelo/terminalnator/internal/session"
)

const menu = `
1) Run command
2) Push config file
3) Save config
4) Disconnect
Choice: `

func newConnectCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <id>",
		Short: "Open an interactive session menu for a device",
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
			defer a.Registry.Release(id)

			p := sess.Profile()
			fmt.Fprintf(a.Out, "Connected to %s@%s (%s, %s)\n", p.Username, p.Host, sess.Family(), driverOf(sess).Name())
			return a.menuLoop(cmd.Context(), sess)
		},
	}
}

func (a *App) menuLoop(ctx context.Context, sess *session.Session) error {
	for {
		fmt.Fprint(a.Out, menu)
		choice, err := readLine(a.In)
		if err != nil {
			return endOfInput(a, err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			text, err := a.ask("Command: ")
			if err != nil {
				return endOfInput(a, err)
			}
			if text == "" {
				continue
			}
			err = a.runCommand(ctx, sess, text, 0)
			a.report(err)
		case "2":
			path, err := a.ask("Config file: ")
			if err != nil {
				return endOfInput(a, err)
			}
			lines, err := session.ReadConfigLines(path)
			if err != nil {
				a.report(err)
				continue
			}
			a.report(a.pushConfig(ctx, sess, lines, pushOptions{stopOnError: true}))
		case "3":
			a.report(a.saveConfig(ctx, sess, 0))
		case "4", "q", "quit", "exit":
			fmt.Fprintln(a.Out, "Disconnected")
			return nil
		default:
			fmt.Fprintf(a.Out, "Invalid choice %q\n", choice)
			continue
		}

		if st := sess.State(); st == session.StateClosing || st == session.StateClosed {
			return fmt.Errorf("session to %s ended", sess.Profile().Host)
		}
	}
}

// endOfInput treats a closed input stream as a disconnect request.
func endOfInput(a *App, err error) error {
	if errors.Is(err, io.EOF) {
		fmt.Fprintln(a.Out)
		return nil
	}
	return err
}

func (a *App) ask(label string) (string, error) {
	fmt.Fprint(a.Out, label)
	line, err := readLine(a.In)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) report(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(a.Out, "Error: %v\n", err)
	a.Logger.Warn("operation failed", "err", err)
}
