package commands

import (
	"github.com/spf13/cobra"
)

// ping: check that CVE Services answers its health check.
func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "ping",
		Short:       "Check that the CVE Services API is reachable",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationPublic: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := settings.BaseURL()
			if err != nil {
				return err
			}
			if err := appCtx.API.Ping(cmd.Context()); err != nil {
				return err
			}
			newPrinter(cmd).Line("CVE Services at %s is up.", base)
			return nil
		},
	}
}
