package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cvelib/internal/cveapi"
)

// Environment variables read by Resolve.
const (
	EnvUser        = "CVE_USER"
	EnvOrg         = "CVE_ORG"
	EnvAPIKey      = "CVE_API_KEY"
	EnvEnvironment = "CVE_ENVIRONMENT"
	EnvAPIURL      = "CVE_API_URL"
	EnvGenerator   = "CVE_GENERATOR"
	EnvHome        = "CVE_HOME"
	EnvPassphrase  = "CVE_PASSPHRASE"
	EnvProfile     = "CVE_PROFILE"
	EnvLogLevel    = "LOG_LEVEL"
)

// Sources a setting can come from.
const (
	SourceFlag    = "flag"
	SourceEnv     = "environment"
	SourceFile    = "file"
	SourceProfile = "profile"
	SourceDefault = "default"
)

const (
	defaultHomeDir  = ".cve"
	configFileName  = "config.yaml"
	defaultLogLevel = "warn"
)

// ErrMissingCredentials is returned by RequireCredentials.
var ErrMissingCredentials = errors.New("missing CVE Services credentials")

// FileConfig is the content of config.yaml.
type FileConfig struct {
	Username    string  `yaml:"username"`
	Org         string  `yaml:"org"`
	APIKey      string  `yaml:"api_key"`
	Env         string  `yaml:"env"`
	APIURL      string  `yaml:"api_url"`
	Generator   *string `yaml:"generator"`
	Profile     string  `yaml:"profile"`
	LogLevel    string  `yaml:"log_level"`
	Interactive bool    `yaml:"interactive"`
}

// LoadFile reads a YAML config file. Unknown keys are rejected.
func LoadFile(path string) (FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileConfig{}, err
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds the values given on the command line. Empty strings and nil
// pointers mean the flag was not set.
type Flags struct {
	Username    string
	Org         string
	APIKey      string
	Env         string
	APIURL      string
	Profile     string
	Home        string
	ConfigFile  string
	LogLevel    string
	Interactive *bool
}

// Settings are the resolved options the CLI runs with.
type Settings struct {
	Username    string
	Org         string
	APIKey      string
	Env         string
	APIURL      string
	Home        string
	ConfigFile  string
	Profile     string
	LogLevel    string
	Interactive bool

	// Generator is the configured x_generator engine; GeneratorSet is false
	// when no source configured one.
	Generator    string
	GeneratorSet bool

	// Sources maps each setting name to where its value came from.
	Sources map[string]string
}

// BaseURL is the CVE Services URL selected by APIURL or Env.
func (s Settings) BaseURL() (string, error) { return cveapi.ResolveURL(s.Env, s.APIURL) }

// RequireCredentials reports which of username, org and API key are missing.
func (s Settings) RequireCredentials() error {
	var missing []string
	if s.Username == "" {
		missing = append(missing, "username (-u/--username or "+EnvUser+")")
	}
	if s.Org == "" {
		missing = append(missing, "organization (-o/--org or "+EnvOrg+")")
	}
	if s.APIKey == "" {
		missing = append(missing, "API key (-a/--api-key or "+EnvAPIKey+")")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
}
