package commands

import (
	"github.com/spf13/cobra"

	"cvelib/internal/domain"
)

// show CVE_ID...: display CVE IDs, fetched concurrently.
func showCmd() *cobra.Command {
	var (
		withRecord bool
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "show CVE_ID...",
		Short: "Show one or more CVE IDs",
		Long: "Show the state and owner of each CVE ID. With --show-record, the full\n" +
			"CVE record of published and rejected IDs is printed as well.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]domain.CveID, 0, len(args))
			for _, a := range args {
				id, err := domain.ParseCveID(a)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			details, err := appCtx.CveIDs.ShowMany(cmd.Context(), ids, withRecord)
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			if raw {
				if len(details) == 1 {
					return p.JSON(details[0])
				}
				return p.JSON(details)
			}
			for i, d := range details {
				if i > 0 {
					p.Line("")
				}
				p.CveID(d.Info)
				if withRecord && d.Record != nil {
					if err := p.JSON(d.Record); err != nil {
						return err
					}
				} else if withRecord && d.Info.State != domain.StateReserved {
					p.Note("No CVE record exists for %s.", d.Info.CveID)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withRecord, "show-record", false, "also print the CVE record")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}
