package commands

import (
	"github.com/spf13/cobra"

	"cvelib/internal/domain"
	"cvelib/internal/record"
)

// schemaAliases maps --schema names to bundled container schemas.
var schemaAliases = map[string]record.Schema{
	"published": record.SchemaCNAPublished,
	"rejected":  record.SchemaCNARejected,
	"adp":       record.SchemaADP,
}

// validate FILE: check a container against a schema without contacting the API.
func validateCmd() *cobra.Command {
	var schema string
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a CNA or ADP container against the CVE JSON schema",
		Long: "Validate the container in FILE offline. --schema selects a bundled\n" +
			"container schema (published, rejected, adp) or names a JSON/YAML schema\n" +
			"file. A full CVE record is reduced to its CNA container, or to its ADP\n" +
			"container for --schema adp.",
		Args:        cobra.ExactArgs(1),
		Annotations: offline(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := record.LoadFile(args[0])
			if err != nil {
				return err
			}

			var v *record.Validator
			extract := record.ExtractCNAContainer
			if bundled, ok := schemaAliases[schema]; ok {
				if v, err = record.Bundled(bundled); err != nil {
					return err
				}
				if bundled == record.SchemaADP {
					extract = record.ExtractADPContainer
				}
			} else if v, err = record.LoadValidator(schema); err != nil {
				return err
			}

			var container domain.Container
			if container, err = extract(c); err != nil {
				return err
			}
			if err := v.Validate(container); err != nil {
				return err
			}
			newPrinter(cmd).Line("%s is valid against %s.", args[0], v.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "published",
		"schema to validate against: published, rejected, adp or a schema file path")
	return cmd
}
