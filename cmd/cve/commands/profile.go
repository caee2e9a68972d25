package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"cvelib/internal/config"
	"cvelib/internal/domain"
	"cvelib/internal/store"
)

// profile: manage saved credential profiles under the home directory.
func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "profile",
		Short:       "Manage saved credential profiles",
		Annotations: offline(),
	}
	cmd.AddCommand(profileSaveCmd(), profileListCmd(), profileShowCmd(), profileUseCmd(), profileDeleteCmd())
	return cmd
}

func profileSaveCmd() *cobra.Command {
	var makeDefault bool
	cmd := &cobra.Command{
		Use:   "save NAME",
		Short: "Save the current username, org, environment and API key as a profile",
		Long: "Save the credentials given by flags, environment or config file under NAME.\n" +
			"The API key is sealed with a passphrase read from " + config.EnvPassphrase + "\n" +
			"or prompted for.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := domain.Profile{
				Name:     args[0],
				Username: settings.Username,
				Org:      settings.Org,
				APIURL:   settings.APIURL,
				APIKey:   settings.APIKey,
			}
			if p.Username == "" || p.Org == "" {
				return errors.New("a profile needs a username and an org")
			}
			if settings.Sources["env"] != config.SourceDefault {
				p.Env = settings.Env
			}

			var passphrase string
			if p.APIKey != "" {
				var err error
				if passphrase, err = readPassphrase(cmd, "Passphrase to protect the API key: "); err != nil {
					return err
				}
				if passphrase == "" {
					return store.ErrPassphraseRequired
				}
			}
			if err := profiles.SaveProfile(passphrase, p); err != nil {
				return err
			}
			if makeDefault {
				if err := profiles.SetDefaultProfile(p.Name); err != nil {
					return err
				}
			}
			out := newPrinter(cmd)
			out.Line("Saved profile %s to %s", p.Name, profiles.Path())
			if p.APIKey == "" {
				out.Note("No API key was given; supply one with --api-key or %s when using this profile.", config.EnvAPIKey)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&makeDefault, "default", false, "make this the default profile")
	return cmd
}

func profileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := profiles.ListProfiles()
			if err != nil {
				return err
			}
			out := newPrinter(cmd)
			if len(all) == 0 {
				out.Note("No profiles saved.")
				return nil
			}
			def, _, err := profiles.DefaultProfile()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(all))
			for _, p := range all {
				hasKey, err := profiles.HasAPIKey(p.Name)
				if err != nil {
					return err
				}
				mark := ""
				if p.Name == def {
					mark = "*"
				}
				rows = append(rows, []string{mark, p.Name, p.Username, p.Org, profileTarget(p), yesNo(hasKey)})
			}
			out.Table([]string{"", "NAME", "USERNAME", "ORG", "ENVIRONMENT", "API KEY"}, rows)
			return nil
		},
	}
}

func profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a saved profile without its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := profiles.ListProfiles()
			if err != nil {
				return err
			}
			i := -1
			for j, p := range all {
				if p.Name == args[0] {
					i = j
				}
			}
			if i < 0 {
				return store.ErrProfileNotFound
			}
			p := all[i]
			hasKey, err := profiles.HasAPIKey(p.Name)
			if err != nil {
				return err
			}
			def, _, err := profiles.DefaultProfile()
			if err != nil {
				return err
			}
			newPrinter(cmd).Fields(
				[2]string{"Name", p.Name},
				[2]string{"Username", p.Username},
				[2]string{"Org", p.Org},
				[2]string{"Environment", profileTarget(p)},
				[2]string{"API key", yesNo(hasKey)},
				[2]string{"Default", yesNo(def == p.Name)},
			)
			return nil
		},
	}
}

func profileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Make NAME the default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profiles.SetDefaultProfile(args[0]); err != nil {
				return err
			}
			newPrinter(cmd).Line("Default profile is now %s", args[0])
			return nil
		},
	}
}

func profileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := confirm(cmd, "delete profile "+args[0]); err != nil {
				return err
			}
			if err := profiles.DeleteProfile(args[0]); err != nil {
				return err
			}
			newPrinter(cmd).Line("Deleted profile %s", args[0])
			return nil
		},
	}
}

// profileTarget names where a profile points: its URL, its environment, or
// the default environment.
func profileTarget(p domain.Profile) string {
	switch {
	case p.APIURL != "":
		return p.APIURL
	case p.Env != "":
		return strings.ToLower(p.Env)
	default:
		return "-"
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
