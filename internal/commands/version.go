package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/schemakit/internal/ui"
	"github.com/satishbabariya/schemakit/internal/version"
)

func newVersionCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// No configuration is needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if full {
				fmt.Fprintln(ui.Out, info.FullString())
			} else {
				fmt.Fprintln(ui.Out, info.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "include build details")
	return cmd
}
