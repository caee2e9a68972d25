package commands

import (
	"github.com/spf13/cobra"

	"cvelib/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: offline(),
		RunE: func(cmd *cobra.Command, args []string) error {
			newPrinter(cmd).Line("cve %s (%s)", version.Version, version.UserAgent())
			return nil
		},
	}
}
