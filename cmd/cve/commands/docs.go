package commands

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"cvelib/internal/version"
)

// docs: generate reference documentation for the CLI.
func docsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "docs",
		Short:       "Generate man pages or markdown reference",
		Annotations: offline(),
		Hidden:      true,
	}
	man := &cobra.Command{
		Use:   "man DIR",
		Short: "Write man pages to DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(args[0], 0o755); err != nil {
				return err
			}
			header := &doc.GenManHeader{Title: "CVE", Section: "1", Source: "cvelib " + version.Version}
			if err := doc.GenManTree(cmd.Root(), header, args[0]); err != nil {
				return err
			}
			newPrinter(cmd).Line("Man pages written to %s", args[0])
			return nil
		},
	}
	markdown := &cobra.Command{
		Use:   "markdown DIR",
		Short: "Write markdown reference to DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(args[0], 0o755); err != nil {
				return err
			}
			if err := doc.GenMarkdownTree(cmd.Root(), args[0]); err != nil {
				return err
			}
			newPrinter(cmd).Line("Markdown written to %s", args[0])
			return nil
		},
	}
	cmd.AddCommand(man, markdown)
	return cmd
}
