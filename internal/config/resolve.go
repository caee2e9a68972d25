package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"cvelib/internal/cveapi"
	"cvelib/internal/domain"
	xlog "cvelib/internal/log"
)

// ProfileSource is the part of the profile store Resolve reads.
type ProfileSource interface {
	ListProfiles() ([]domain.Profile, error)
	LoadProfile(passphrase string, name string) (domain.Profile, error)
	DefaultProfile() (string, bool, error)
	HasAPIKey(name string) (bool, error)
}

// ErrUnknownProfile is returned when the selected profile does not exist.
var ErrUnknownProfile = errors.New("unknown profile")

// Resolver merges flags, environment, config file and profile into Settings.
// The zero value reads the process environment and has no profile store.
type Resolver struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
	// UserHomeDir defaults to os.UserHomeDir.
	UserHomeDir func() (string, error)
	// Profiles opens the profile store under home. When nil, the profile
	// name is still resolved but nothing is read from it.
	Profiles func(home string) ProfileSource
	// Passphrase is asked for the passphrase of profile when its API key
	// must be unsealed and CVE_PASSPHRASE is not set.
	Passphrase func(profile string) (string, error)
	// Offline skips checks that only matter when the API is contacted,
	// such as the environment name.
	Offline bool
	Logger  *zerolog.Logger
}

type resolution struct {
	logger zerolog.Logger
	out    *Settings
}

// set stores the first non-empty candidate into dst and records its source.
func (r resolution) set(key string, dst *string, secret bool, candidates ...candidate) {
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		*dst = c.value
		r.out.Sources[key] = c.source
		ev := r.logger.Debug().Str("key", key).Str("source", c.source)
		if secret {
			ev = ev.Bool("sensitive", true)
		} else {
			ev = ev.Str("value", c.value)
		}
		ev.Msg("resolved setting")
		return
	}
}

type candidate struct {
	value  string
	source string
}

func from(source, value string) candidate { return candidate{value: value, source: source} }

// Resolve builds Settings from flags and the other configured sources.
func (r Resolver) Resolve(flags Flags) (Settings, error) {
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	logger := xlog.WithComponent("config")
	if r.Logger != nil {
		logger = r.Logger.With().Str(xlog.FieldComponent, "config").Logger()
	}

	s := Settings{Sources: map[string]string{}}
	res := resolution{logger: logger, out: &s}

	home, err := r.defaultHome()
	if err != nil {
		return Settings{}, err
	}
	res.set("home", &s.Home, false,
		from(SourceFlag, flags.Home), from(SourceEnv, env(EnvHome)), from(SourceDefault, home))

	file, err := r.loadConfigFile(&s, flags.ConfigFile)
	if err != nil {
		return Settings{}, err
	}

	var profiles ProfileSource
	if r.Profiles != nil {
		profiles = r.Profiles(s.Home)
	}
	res.set("profile", &s.Profile, false,
		from(SourceFlag, flags.Profile), from(SourceEnv, env(EnvProfile)), from(SourceFile, file.Profile))
	if s.Profile == "" && profiles != nil {
		name, ok, err := profiles.DefaultProfile()
		if err != nil {
			return Settings{}, err
		}
		if ok {
			res.set("profile", &s.Profile, false, from(SourceDefault, name))
		}
	}
	var prof domain.Profile
	if s.Profile != "" && profiles != nil {
		if prof, err = findProfile(profiles, s.Profile); err != nil {
			return Settings{}, err
		}
	}

	res.set("username", &s.Username, false, from(SourceFlag, flags.Username),
		from(SourceEnv, env(EnvUser)), from(SourceFile, file.Username), from(SourceProfile, prof.Username))
	res.set("org", &s.Org, false, from(SourceFlag, flags.Org),
		from(SourceEnv, env(EnvOrg)), from(SourceFile, file.Org), from(SourceProfile, prof.Org))
	res.set("env", &s.Env, false, from(SourceFlag, flags.Env),
		from(SourceEnv, env(EnvEnvironment)), from(SourceFile, file.Env), from(SourceProfile, prof.Env),
		from(SourceDefault, cveapi.DefaultEnv))
	res.set("api_url", &s.APIURL, false, from(SourceFlag, flags.APIURL),
		from(SourceEnv, env(EnvAPIURL)), from(SourceFile, file.APIURL), from(SourceProfile, prof.APIURL))
	res.set("log_level", &s.LogLevel, false, from(SourceFlag, flags.LogLevel),
		from(SourceEnv, env(EnvLogLevel)), from(SourceFile, file.LogLevel), from(SourceDefault, defaultLogLevel))
	res.set("api_key", &s.APIKey, true, from(SourceFlag, flags.APIKey),
		from(SourceEnv, env(EnvAPIKey)), from(SourceFile, file.APIKey))

	if s.APIKey == "" && s.Profile != "" && profiles != nil {
		key, err := r.unsealKey(profiles, s.Profile, env(EnvPassphrase))
		if err != nil {
			return Settings{}, err
		}
		res.set("api_key", &s.APIKey, true, from(SourceProfile, key))
	}

	switch {
	case flags.Interactive != nil:
		s.Interactive = *flags.Interactive
		s.Sources["interactive"] = SourceFlag
	case file.Interactive:
		s.Interactive = true
		s.Sources["interactive"] = SourceFile
	}

	if v, ok := lookup(EnvGenerator); ok {
		s.Generator, s.GeneratorSet = v, true
		s.Sources["generator"] = SourceEnv
	} else if file.Generator != nil {
		s.Generator, s.GeneratorSet = *file.Generator, true
		s.Sources["generator"] = SourceFile
	}

	if s.APIURL == "" && !r.Offline {
		if _, ok := cveapi.Environments[s.Env]; !ok {
			return Settings{}, fmt.Errorf("unknown environment %q (want one of %v or set --api-url)", s.Env, cveapi.EnvNames())
		}
	}
	return s, nil
}

func (r Resolver) defaultHome() (string, error) {
	userHome := r.UserHomeDir
	if userHome == nil {
		userHome = os.UserHomeDir
	}
	dir, err := userHome()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(dir, defaultHomeDir), nil
}

// loadConfigFile reads the explicit config file, or config.yaml under the
// home directory when it exists.
func (r Resolver) loadConfigFile(s *Settings, explicit string) (FileConfig, error) {
	path := explicit
	if path == "" {
		path = filepath.Join(s.Home, configFileName)
	}
	cfg, err := LoadFile(path)
	switch {
	case err == nil:
		s.ConfigFile = path
		return cfg, nil
	case explicit == "" && errors.Is(err, os.ErrNotExist):
		return FileConfig{}, nil
	default:
		return FileConfig{}, err
	}
}

func findProfile(profiles ProfileSource, name string) (domain.Profile, error) {
	all, err := profiles.ListProfiles()
	if err != nil {
		return domain.Profile{}, err
	}
	for _, p := range all {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
}

func (r Resolver) unsealKey(profiles ProfileSource, name, passphrase string) (string, error) {
	has, err := profiles.HasAPIKey(name)
	if err != nil || !has {
		return "", err
	}
	if passphrase == "" && r.Passphrase != nil {
		if passphrase, err = r.Passphrase(name); err != nil {
			return "", err
		}
	}
	p, err := profiles.LoadProfile(passphrase, name)
	if err != nil {
		return "", err
	}
	return p.APIKey, nil
}
