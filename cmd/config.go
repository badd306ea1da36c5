package cmd

import (
	"fmt"

	tomlconfig "github.com/bnema/camlink/internal/adapters/config/toml"
	"github.com/spf13/cobra"
)

func newConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the camlink config file",
	}

	cmd.AddCommand(newConfigInitCmd(app), newConfigShowCmd(app))
	return cmd
}

func newConfigInitCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long:  "init writes the default settings, plus any --device/--baud/--driver given, to the config file. An existing file is kept unless --force is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := app.cfg.GetString(tomlconfig.ConfigFileKey)
			if path == "" {
				var err error
				path, err = tomlconfig.DefaultPath()
				if err != nil {
					return err
				}
			}

			settings := tomlconfig.Defaults()
			flags := cmd.Flags()
			if flags.Changed("device") {
				settings.Link.Device = app.cfg.GetString(tomlconfig.LinkDeviceKey)
			}
			if flags.Changed("baud") {
				settings.Link.Baud = app.cfg.GetInt(tomlconfig.LinkBaudKey)
			}
			if flags.Changed("driver") {
				settings.Link.Driver = app.cfg.GetString(tomlconfig.LinkDriverKey)
			}
			if err := settings.Validate(); err != nil {
				return err
			}

			if err := tomlconfig.Write(path, settings, force); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func newConfigShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.settings()
			if err != nil {
				return err
			}

			data, err := tomlconfig.Encode(settings)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			source := settings.File
			if source == "" {
				source = "defaults"
			}
			if _, err := fmt.Fprintf(out, "# source: %s\n", source); err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
}
