package cmd

import (
	"fmt"

	"github.com/bnema/camlink/internal/application"
	"github.com/spf13/cobra"
)

func newPortsCmd(app *app) *cobra.Command {
	var usbOnly bool

	cmd := &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := app.lister.List()
			if err != nil {
				return fmt.Errorf("list serial ports: %w", err)
			}

			out := cmd.OutOrStdout()
			printed := 0
			for _, port := range ports {
				if usbOnly && !port.IsUSB {
					continue
				}
				if _, err := fmt.Fprintln(out, application.FormatPort(port)); err != nil {
					return err
				}
				printed++
			}
			if printed == 0 {
				_, err = fmt.Fprintln(out, "no serial ports found")
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&usbOnly, "usb", false, "Only list USB serial adapters")

	return cmd
}
