package commands

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"cvelib/internal/domain"
)

func itoa(n int) string { return strconv.Itoa(n) }

func userArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func whom(username string) string {
	if username == "" {
		return settings.Username
	}
	return username
}

func parseRoles(values []string) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(values))
	for _, v := range values {
		r, err := domain.ParseRole(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// user [USERNAME]: show and manage users.
func userCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "user [USERNAME]",
		Short: "Show a user of your organization (default: yourself)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := appCtx.Accounts.User(cmd.Context(), userArg(args))
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if raw {
				return p.JSON(u)
			}
			p.User(u)
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&raw, "raw", false, "print the JSON response")
	cmd.AddCommand(resetKeyCmd(&raw), updateUserCmd(&raw), createUserCmd(&raw))
	return cmd
}

func resetKeyCmd(raw *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-key [USERNAME]",
		Short: "Reset the API key of a user (default: yourself)",
		Long: "Issue a new API key. The previous key stops working immediately, so\n" +
			"update any saved profile with the new key.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := whom(userArg(args))
			if err := confirm(cmd, "reset the API key of "+name); err != nil {
				return err
			}
			res, err := appCtx.Accounts.ResetAPIKey(cmd.Context(), name)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if *raw {
				return p.JSON(res)
			}
			p.Heading("New API key for %s:", name)
			p.Line("%s", res.APISecret)
			p.Note("Make sure to copy it now; it cannot be shown again.")
			return nil
		},
	}
}

func updateUserCmd(raw *bool) *cobra.Command {
	var (
		upd         domain.UserUpdate
		active      bool
		inactive    bool
		addRoles    []string
		removeRoles []string
	)
	cmd := &cobra.Command{
		Use:   "update [USERNAME]",
		Short: "Update a user of your organization (default: yourself)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case active:
				v := true
				upd.Active = &v
			case inactive:
				v := false
				upd.Active = &v
			}
			var err error
			if upd.AddRoles, err = parseRoles(addRoles); err != nil {
				return err
			}
			if upd.RemoveRoles, err = parseRoles(removeRoles); err != nil {
				return err
			}
			if upd.IsEmpty() {
				return errors.New("nothing to update; see --help for the available changes")
			}
			name := whom(userArg(args))
			if err := confirm(cmd, "update user "+name); err != nil {
				return err
			}
			res, err := appCtx.Accounts.UpdateUser(cmd.Context(), name, upd)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if *raw {
				return p.JSON(res)
			}
			p.Note("%s", res.Message)
			p.User(res.Updated)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&upd.NewUsername, "new-username", "n", "", "rename the user")
	f.StringVarP(&upd.Name.First, "name-first", "f", "", "first name")
	f.StringVarP(&upd.Name.Last, "name-last", "l", "", "last name")
	f.StringVarP(&upd.Name.Middle, "name-middle", "m", "", "middle name")
	f.StringVarP(&upd.Name.Suffix, "name-suffix", "s", "", "name suffix")
	f.BoolVar(&active, "active", false, "mark the user active")
	f.BoolVar(&inactive, "inactive", false, "mark the user inactive")
	f.StringArrayVar(&addRoles, "add-role", nil, "grant a role (ADMIN); repeatable")
	f.StringArrayVar(&removeRoles, "remove-role", nil, "revoke a role (ADMIN); repeatable")
	cmd.MarkFlagsMutuallyExclusive("active", "inactive")
	return cmd
}

func createUserCmd(raw *bool) *cobra.Command {
	var (
		user  domain.NewUser
		roles []string
	)
	cmd := &cobra.Command{
		Use:   "create --new-username USERNAME",
		Short: "Create a user in your organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseRoles(roles)
			if err != nil {
				return err
			}
			for _, r := range parsed {
				user.Authority.ActiveRoles = append(user.Authority.ActiveRoles, string(r))
			}
			if err := confirm(cmd, "create user "+user.Username); err != nil {
				return err
			}
			res, err := appCtx.Accounts.CreateUser(cmd.Context(), user)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if *raw {
				return p.JSON(res)
			}
			p.Note("%s", res.Message)
			p.User(res.Created)
			if res.Created.Secret != "" {
				p.Line("")
				p.Heading("API key for %s:", res.Created.Username)
				p.Line("%s", res.Created.Secret)
				p.Note("Make sure to copy it now; it cannot be shown again.")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&user.Username, "new-username", "n", "", "username (usually an email address)")
	f.StringVarP(&user.Name.First, "name-first", "f", "", "first name")
	f.StringVarP(&user.Name.Last, "name-last", "l", "", "last name")
	f.StringVarP(&user.Name.Middle, "name-middle", "m", "", "middle name")
	f.StringVarP(&user.Name.Suffix, "name-suffix", "s", "", "name suffix")
	f.StringArrayVar(&roles, "role", nil, "grant a role (ADMIN); repeatable")
	_ = cmd.MarkFlagRequired("new-username")
	return cmd
}
