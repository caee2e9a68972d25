package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cvelib/internal/app"
	"cvelib/internal/config"
	xlog "cvelib/internal/log"
	"cvelib/internal/store"
	"cvelib/internal/version"
)

// Annotations that control what the root command prepares.
const (
	annotationOffline = "cve/offline" // no client, no credentials
	annotationPublic  = "cve/public"  // client, but no credentials
)

var (
	flagVals    config.Flags
	interactive bool

	settings config.Settings
	profiles *store.ProfileFileStore
	appCtx   *app.Wire
)

// ErrAborted is returned when the user declines a confirmation prompt.
var ErrAborted = errors.New("aborted")

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Each call resets global flag state.
func NewRootCommand() *cobra.Command {
	flagVals = config.Flags{}
	interactive = false
	settings = config.Settings{}
	profiles, appCtx = nil, nil
	input = nil

	root := &cobra.Command{
		Use:           "cve",
		Short:         "Command line client for the CVE Services API",
		Long:          "cve reserves CVE IDs, publishes and rejects CVE records, and manages\nCNA users through the CVE Services API.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return prepare(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flagVals.Username, "username", "u", "", "CVE Services username ("+config.EnvUser+")")
	pf.StringVarP(&flagVals.Org, "org", "o", "", "CNA organization short name ("+config.EnvOrg+")")
	pf.StringVarP(&flagVals.APIKey, "api-key", "a", "", "API key ("+config.EnvAPIKey+")")
	pf.StringVarP(&flagVals.Env, "env", "e", "", "CVE Services environment: prod, test or dev ("+config.EnvEnvironment+")")
	pf.StringVar(&flagVals.APIURL, "api-url", "", "CVE Services base URL, overrides --env ("+config.EnvAPIURL+")")
	pf.BoolVarP(&interactive, "interactive", "i", false, "confirm before every request that changes data")
	pf.StringVar(&flagVals.Profile, "profile", "", "saved profile to use ("+config.EnvProfile+")")
	pf.StringVar(&flagVals.Home, "home", "", "directory for profiles and config.yaml (default ~/.cve, "+config.EnvHome+")")
	pf.StringVar(&flagVals.ConfigFile, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVar(&flagVals.LogLevel, "log-level", "", "log level: debug, info, warn, error ("+config.EnvLogLevel+")")

	root.AddCommand(
		reserveCmd(),
		publishCmd(),
		rejectCmd(),
		undoRejectCmd(),
		showCmd(),
		listCmd(),
		countCmd(),
		quotaCmd(),
		orgCmd(),
		userCmd(),
		pingCmd(),
		validateCmd(),
		profileCmd(),
		docsCmd(),
		versionCmd(),
	)
	return root
}

// prepare resolves settings and wires the app for cmd.
func prepare(cmd *cobra.Command) error {
	xlog.Configure(xlog.Config{Level: flagVals.LogLevel, Output: cmd.ErrOrStderr(), Version: version.Version})
	if cmd.Flags().Changed("interactive") {
		v := interactive
		flagVals.Interactive = &v
	}

	offline := hasAnnotation(cmd, annotationOffline)
	resolver := config.Resolver{
		Offline: offline,
		Passphrase: func(profile string) (string, error) {
			return readPassphrase(cmd, fmt.Sprintf("Passphrase for profile %s: ", profile))
		},
	}
	if !offline {
		resolver.Profiles = func(home string) config.ProfileSource { return store.NewProfileFileStore(home) }
	}
	s, err := resolver.Resolve(flagVals)
	if err != nil {
		return err
	}
	settings = s
	if flagVals.LogLevel == "" && s.Sources["log_level"] == config.SourceFile {
		xlog.Configure(xlog.Config{Level: s.LogLevel, Output: cmd.ErrOrStderr(), Version: version.Version})
	}
	profiles = store.NewProfileFileStore(s.Home)
	if offline {
		return nil
	}

	if !hasAnnotation(cmd, annotationPublic) {
		if err := s.RequireCredentials(); err != nil {
			return err
		}
	}
	cfg, err := app.FromSettings(s)
	if err != nil {
		return err
	}
	w, err := app.NewWire(cfg)
	if err != nil {
		return err
	}
	appCtx = w
	return nil
}

func hasAnnotation(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[key]; ok {
			return true
		}
	}
	return false
}

func offline() map[string]string { return map[string]string{annotationOffline: ""} }
