package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cvelib/internal/domain"
	"cvelib/internal/record"
)

// containerFlags are the ways a command accepts a container.
type containerFlags struct {
	json string
	file string
}

func (f *containerFlags) bind(cmd *cobra.Command, what string) {
	cmd.Flags().StringVarP(&f.json, "cve-json", "j", "", what+" as a JSON string")
	cmd.Flags().StringVarP(&f.file, "cve-json-file", "f", "", what+" read from a JSON file")
	cmd.MarkFlagsMutuallyExclusive("cve-json", "cve-json-file")
}

func (f *containerFlags) given() bool { return f.json != "" || f.file != "" }

func (f *containerFlags) load() (domain.Container, error) {
	switch {
	case f.file != "":
		return record.LoadFile(f.file)
	case f.json != "":
		c, err := record.Load(strings.NewReader(f.json))
		if err != nil {
			return nil, fmt.Errorf("--cve-json: %w", err)
		}
		return c, nil
	default:
		return nil, errors.New("a container is required: use --cve-json or --cve-json-file")
	}
}

// publish CVE_ID: create, update or extend a CVE record.
func publishCmd() *cobra.Command {
	var (
		in         containerFlags
		adp        bool
		update     bool
		noValidate bool
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "publish CVE_ID (--cve-json JSON | --cve-json-file FILE)",
		Short: "Publish a CVE record from a CNA container, or add an ADP container",
		Long: "Publish a CVE record for a RESERVED CVE ID. The input may be a bare CNA\n" +
			"container or a full CVE record, whose CNA container is used. With\n" +
			"--update, the CNA container of a published record is replaced. With --adp,\n" +
			"an ADP container is added to a published record instead.\n\n" +
			"providerMetadata.orgId is filled in automatically and x_generator is added\n" +
			"unless CVE_GENERATOR is \"-\".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseCveID(args[0])
			if err != nil {
				return err
			}
			if adp && update {
				return errors.New("--adp and --update cannot be combined; publishing an ADP container replaces the previous one")
			}
			container, err := in.load()
			if err != nil {
				return err
			}

			opts := domain.SubmitOptions{SkipValidation: noValidate}
			publish, verb, action := appCtx.Records.Publish, "Published", "publish a CVE record for "+id.String()
			switch {
			case adp:
				publish, verb, action = appCtx.Records.PublishADP, "Added ADP container to", "add an ADP container to "+id.String()
			case update:
				publish, verb, action = appCtx.Records.UpdatePublished, "Updated", "update the CVE record for "+id.String()
			}
			if err := confirm(cmd, action); err != nil {
				return err
			}
			res, err := publish(cmd.Context(), id, container, opts)
			if err != nil {
				return err
			}
			return printRecordResponse(cmd, raw, verb, id, res)
		},
	}
	in.bind(cmd, "CVE record or container")
	cmd.Flags().BoolVar(&adp, "adp", false, "submit an ADP container instead of a CNA container")
	cmd.Flags().BoolVar(&update, "update", false, "update an already published record")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip local schema validation")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}

func printRecordResponse(cmd *cobra.Command, raw bool, verb string, id domain.CveID, res domain.RecordResponse) error {
	p := newPrinter(cmd)
	if raw {
		return p.JSON(res)
	}
	p.Record(verb, id, res.Record())
	if res.Message != "" {
		p.Note("%s", res.Message)
	}
	return nil
}
