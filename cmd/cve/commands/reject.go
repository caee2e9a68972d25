package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cvelib/internal/domain"
)

// reject CVE_ID: reject an ID, with or without a record.
func rejectCmd() *cobra.Command {
	var (
		in         containerFlags
		update     bool
		noValidate bool
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "reject CVE_ID [--cve-json JSON | --cve-json-file FILE]",
		Short: "Reject a CVE ID or update a rejected CVE record",
		Long: "Without a container, a RESERVED CVE ID that has no record is moved to\n" +
			"REJECTED. With a CNA container holding rejectedReasons, a REJECTED record\n" +
			"is created; add --update to replace the container of a rejected record.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseCveID(args[0])
			if err != nil {
				return err
			}
			if !in.given() {
				if update {
					return errors.New("--update requires a container")
				}
				if err := confirm(cmd, "reject "+id.String()); err != nil {
					return err
				}
				res, err := appCtx.CveIDs.MoveToRejected(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printStateChange(cmd, raw, "Rejected CVE ID:", res)
			}

			container, err := in.load()
			if err != nil {
				return err
			}
			reject, verb, action := appCtx.Records.Reject, "Rejected", "reject the CVE record for "+id.String()
			if update {
				reject, verb, action = appCtx.Records.UpdateRejected, "Updated rejected", "update the rejected record for "+id.String()
			}
			if err := confirm(cmd, action); err != nil {
				return err
			}
			res, err := reject(cmd.Context(), id, container, domain.SubmitOptions{SkipValidation: noValidate})
			if err != nil {
				return err
			}
			return printRecordResponse(cmd, raw, verb, id, res)
		},
	}
	in.bind(cmd, "rejected CNA container or record")
	cmd.Flags().BoolVar(&update, "update", false, "update an already rejected record")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip local schema validation")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}

// undo-reject CVE_ID: move a rejected, record-less ID back to RESERVED.
func undoRejectCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "undo-reject CVE_ID",
		Short: "Move a rejected CVE ID without a record back to RESERVED",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseCveID(args[0])
			if err != nil {
				return err
			}
			if err := confirm(cmd, fmt.Sprintf("move %s back to RESERVED", id)); err != nil {
				return err
			}
			res, err := appCtx.CveIDs.MoveToReserved(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printStateChange(cmd, raw, "Reserved CVE ID again:", res)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}

func printStateChange(cmd *cobra.Command, raw bool, heading string, res domain.StateChange) error {
	p := newPrinter(cmd)
	if raw {
		return p.JSON(res)
	}
	p.Heading("%s", heading)
	p.CveID(res.Updated)
	return nil
}
