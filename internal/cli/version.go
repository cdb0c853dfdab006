package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the pinboard release version.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/pinboard"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pinboard version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"version": Version, "module": modulePath})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pinboard v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
