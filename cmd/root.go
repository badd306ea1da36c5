package cmd

import (
	tomlconfig "github.com/bnema/camlink/internal/adapters/config/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(nil)
}

// buildRootCmd assembles the command tree. configure, when set, adjusts the wired app
// before any command runs.
func buildRootCmd(configure func(*app)) *cobra.Command {
	cfg := viper.New()

	rootCmd := &cobra.Command{
		Use:           "camlink",
		Short:         "camlink: serial bridge to a JSON-lines sensor module",
		Long:          "camlink talks to a camera/sensor module over a serial link using newline-delimited JSON requests, tracks the single outstanding request, and reports replies, timeouts and detection hits.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default $XDG_CONFIG_HOME/camlink/camlink.toml)")
	flags.String("device", "", "Serial device path")
	flags.Int("baud", 0, "Serial baud rate")
	flags.String("driver", "", "Link driver: bugst, tarm or emulator")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Write JSON logs to this file instead of stderr")

	for key, flag := range map[string]string{
		tomlconfig.ConfigFileKey: "config",
		tomlconfig.LinkDeviceKey: "device",
		tomlconfig.LinkBaudKey:   "baud",
		tomlconfig.LinkDriverKey: "driver",
		tomlconfig.LogLevelKey:   "log-level",
		tomlconfig.LogFileKey:    "log-file",
	} {
		if err := cfg.BindPFlag(key, flags.Lookup(flag)); err != nil {
			rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
				return err
			}
			return rootCmd
		}
	}

	app := wireApp(cfg)
	if configure != nil {
		configure(app)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConsoleCmd(app),
		newProbeCmd(app),
		newPortsCmd(app),
		newConfigCmd(app),
	)

	return rootCmd
}
