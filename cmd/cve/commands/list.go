package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cvelib/internal/domain"
)

// parseReservedTime accepts a date or an RFC 3339 timestamp.
func parseReservedTime(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("--%s: %q is not a date (YYYY-MM-DD) or RFC 3339 timestamp", flag, v)
}

// list: list the organization's CVE IDs.
func listCmd() *cobra.Command {
	var (
		year       string
		state      string
		reservedLT string
		reservedGT string
		sortBy     string
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List CVE IDs owned by your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.ListFilter{Year: year}
			if state != "" {
				st, err := domain.ParseState(state)
				if err != nil {
					return err
				}
				filter.State = st
			}
			var err error
			if filter.ReservedLT, err = parseReservedTime("reserved-lt", reservedLT); err != nil {
				return err
			}
			if filter.ReservedGT, err = parseReservedTime("reserved-gt", reservedGT); err != nil {
				return err
			}
			key, err := domain.ParseSortKey(sortBy)
			if err != nil {
				return err
			}

			infos, err := appCtx.CveIDs.List(cmd.Context(), filter, key)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if raw {
				if infos == nil {
					infos = []domain.CveIDInfo{}
				}
				return p.JSON(infos)
			}
			if len(infos) == 0 {
				p.Note("No CVE IDs found.")
				return nil
			}
			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				rows = append(rows, cveIDRow(info))
			}
			p.Table(cveIDHeaders, rows)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&year, "year", "", "only IDs for this year")
	f.StringVar(&state, "state", "", "only IDs in this state: RESERVED, PUBLISHED or REJECTED")
	f.StringVar(&reservedLT, "reserved-lt", "", "only IDs reserved before this date or timestamp")
	f.StringVar(&reservedGT, "reserved-gt", "", "only IDs reserved after this date or timestamp")
	f.StringVar(&sortBy, "sort-by", string(domain.SortByCveID), "sort by cve_id, state or reserved")
	f.BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}

// count: count CVE records.
func countCmd() *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count CVE records, optionally by state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st domain.State
			if state != "" {
				parsed, err := domain.ParseState(state)
				if err != nil {
					return err
				}
				if parsed == domain.StateRejected {
					return fmt.Errorf("--state must be RESERVED or PUBLISHED")
				}
				st = parsed
			}
			n, err := appCtx.CveIDs.Count(cmd.Context(), st)
			if err != nil {
				return err
			}
			newPrinter(cmd).Line("%d", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "only records in this state: RESERVED or PUBLISHED")
	return cmd
}
