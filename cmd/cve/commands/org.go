package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

func runQuota(cmd *cobra.Command, raw bool) error {
	q, err := appCtx.Accounts.Quota(cmd.Context())
	if err != nil {
		return err
	}
	p := newPrinter(cmd)
	if raw {
		return p.JSON(q)
	}
	p.Quota(settings.Org, q)
	return nil
}

// quota: show the organization's CVE ID quota.
func quotaCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show your organization's CVE ID quota",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runQuota(cmd, raw) },
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON response")
	return cmd
}

// org: show the organization, its users and quota.
func orgCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Show information about your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			org, err := appCtx.Accounts.Org(cmd.Context())
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if raw {
				return p.JSON(org)
			}
			p.Heading("%s (%s)", org.Name, org.ShortName)
			p.Fields(
				[2]string{"UUID", org.UUID},
				[2]string{"Roles", orDash(strings.Join(org.Authority.ActiveRoles, ", "))},
				[2]string{"ID quota", itoa(org.Policies.IDQuota)},
				[2]string{"Created", formatTime(org.Time.Created)},
				[2]string{"Modified", formatTime(org.Time.Modified)},
			)
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&raw, "raw", false, "print the JSON response")

	users := &cobra.Command{
		Use:   "users",
		Short: "List the users of your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := appCtx.Accounts.Users(cmd.Context())
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if raw {
				return p.JSON(list)
			}
			rows := make([][]string, 0, len(list))
			for _, u := range list {
				rows = append(rows, userRow(u))
			}
			p.Table(userHeaders, rows)
			return nil
		},
	}
	quota := &cobra.Command{
		Use:   "quota",
		Short: "Show your organization's CVE ID quota",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return runQuota(cmd, raw) },
	}
	cmd.AddCommand(users, quota)
	return cmd
}
