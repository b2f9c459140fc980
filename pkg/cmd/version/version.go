// Package version prints the build version
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goldenfleet/goldenctl/pkg/terminal"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func NewCmdVersion(t *terminal.Terminal) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of goldenctl",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t.Print(fmt.Sprintf("goldenctl %s", Version))
		},
	}
	return cmd
}
