package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// reserve [COUNT]: reserve COUNT CVE IDs for the configured organization.
func reserveCmd() *cobra.Command {
	var (
		year       string
		random     bool
		sequential bool
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "reserve [COUNT]",
		Short: "Reserve one or more CVE IDs",
		Long: "Reserve COUNT CVE IDs (default 1) for the current year or --year.\n" +
			"Multiple IDs are sequential unless --random is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("COUNT must be a positive integer, got %q", args[0])
				}
				count = n
			}
			if random && count == 1 {
				return errors.New("--random only applies when reserving more than one CVE ID")
			}
			if err := confirm(cmd, fmt.Sprintf("reserve %d CVE ID(s)", count)); err != nil {
				return err
			}

			res, err := appCtx.CveIDs.Reserve(cmd.Context(), count, random, year)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if raw {
				return p.JSON(res)
			}
			p.Heading("Reserved the following CVE ID(s):")
			for _, info := range res.CveIDs {
				p.Line("%s", info.CveID)
			}
			p.Note("Remaining quota: %d", res.Meta.RemainingQuota)
			return nil
		},
	}
	cmd.Flags().StringVarP(&year, "year", "y", "", "year to reserve CVE IDs for (default: current year)")
	cmd.Flags().BoolVarP(&random, "random", "r", false, "reserve non-sequential CVE IDs")
	cmd.Flags().BoolVarP(&sequential, "sequential", "s", false, "reserve sequential CVE IDs (default)")
	cmd.MarkFlagsMutuallyExclusive("random", "sequential")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}
