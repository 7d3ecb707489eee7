package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/internal/store"
)

func newListCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List device profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			profiles := a.Store.List()
			if len(profiles) == 0 {
				fmt.Fprintln(a.Out, "No profiles found.")
				return nil
			}
			fmt.Fprintln(a.Out, renderProfiles(profiles))
			return nil
		},
	}
}

func newAddCommand(app func() *App) *cobra.Command {
	var p entities.Profile
	var family string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a device profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			f, err := entities.ParseFamily(family)
			if err != nil {
				return err
			}
			p.Family = f
			id, err := a.AddProfile(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Added profile %d (%s@%s)\n", id, p.Username, p.Host)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Host, "host", "", "device address")
	cmd.Flags().IntVar(&p.Port, "port", 0, "port (default 22 for ssh, 23 for telnet)")
	cmd.Flags().StringVarP(&p.Username, "user", "u", "", "login username")
	cmd.Flags().StringVar(&family, "family", "", "device family: generic-line, privileged-escalation-required or unknown")
	cmd.Flags().StringVar(&p.Transport, "transport", entities.TransportSSH, "ssh or telnet")
	cmd.Flags().StringVar(&p.Platform, "platform", "", "pin the platform driver (ios, nxos, xr, dmos)")
	_ = cmd.MarkFlagRequired("host")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newDeleteCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a device profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			removed, err := a.RemoveProfile(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("profile %d: %w", id, store.ErrNotFound)
			}
			fmt.Fprintf(a.Out, "Deleted profile %d\n", id)
			return nil
		},
	}
}

func newImportCommand(app func() *App) *cobra.Command {
	var family string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import profiles from a \"host username port\" list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			f, err := entities.ParseFamily(family)
			if err != nil {
				return err
			}
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer file.Close()
			ids, err := a.Store.ImportLegacy(cmd.Context(), file, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Imported %d profiles\n", len(ids))
			return nil
		},
	}
	cmd.Flags().StringVar(&family, "family", "", "device family assigned to imported profiles")
	return cmd
}
