package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvelib/internal/config"
	"cvelib/internal/domain"
	"cvelib/internal/store"
)

type harness struct {
	env      map[string]string
	home     string
	profiles *store.ProfileFileStore
	logs     *bytes.Buffer
	asked    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".cve")
	return &harness{
		env:      map[string]string{},
		home:     home,
		profiles: store.NewProfileFileStore(home),
		logs:     &bytes.Buffer{},
	}
}

func (h *harness) resolver() config.Resolver {
	logger := zerolog.New(h.logs).Level(zerolog.DebugLevel)
	return config.Resolver{
		LookupEnv:   func(k string) (string, bool) { v, ok := h.env[k]; return v, ok },
		UserHomeDir: func() (string, error) { return filepath.Dir(h.home), nil },
		Profiles:    func(string) config.ProfileSource { return h.profiles },
		Passphrase: func(string) (string, error) {
			h.asked++
			return "prompted", nil
		},
		Logger: &logger,
	}
}

func (h *harness) writeConfig(t *testing.T, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(h.home, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(h.home, "config.yaml"), []byte(body), 0o600))
}

func TestResolve_Defaults(t *testing.T) {
	h := newHarness(t)
	s, err := h.resolver().Resolve(config.Flags{})
	require.NoError(t, err)

	assert.Equal(t, h.home, s.Home)
	assert.Equal(t, "prod", s.Env)
	assert.Equal(t, "warn", s.LogLevel)
	assert.Empty(t, s.ConfigFile)
	assert.False(t, s.GeneratorSet)
	assert.Equal(t, config.SourceDefault, s.Sources["env"])
	assert.ErrorIs(t, s.RequireCredentials(), config.ErrMissingCredentials)

	u, err := s.BaseURL()
	require.NoError(t, err)
	assert.Equal(t, "https://cveawg.mitre.org/api/", u)
}

func TestResolve_Precedence(t *testing.T) {
	h := newHarness(t)
	h.writeConfig(t, "username: file-user\norg: file-org\nenv: dev\napi_url: http://file.test/api\ngenerator: file-gen\n")
	h.env[config.EnvOrg] = "env-org"
	h.env[config.EnvEnvironment] = "test"

	s, err := h.resolver().Resolve(config.Flags{Env: "prod"})
	require.NoError(t, err)

	assert.Equal(t, "file-user", s.Username)
	assert.Equal(t, config.SourceFile, s.Sources["username"])
	assert.Equal(t, "env-org", s.Org)
	assert.Equal(t, config.SourceEnv, s.Sources["org"])
	assert.Equal(t, "prod", s.Env)
	assert.Equal(t, config.SourceFlag, s.Sources["env"])
	assert.Equal(t, "http://file.test/api", s.APIURL)
	assert.Equal(t, filepath.Join(h.home, "config.yaml"), s.ConfigFile)
	assert.True(t, s.GeneratorSet)
	assert.Equal(t, "file-gen", s.Generator)

	h.env[config.EnvGenerator] = "-"
	s, err = h.resolver().Resolve(config.Flags{})
	require.NoError(t, err)
	assert.Equal(t, "-", s.Generator)
	assert.Equal(t, config.SourceEnv, s.Sources["generator"])
}

func TestResolve_ProfileSuppliesCredentials(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profiles.SaveProfile("prompted", domain.Profile{
		Name: "work", Username: "p-user", Org: "p-org", Env: "test", APIKey: "p-key",
	}))
	require.NoError(t, h.profiles.SetDefaultProfile("work"))

	s, err := h.resolver().Resolve(config.Flags{Username: "flag-user"})
	require.NoError(t, err)
	assert.Equal(t, "work", s.Profile)
	assert.Equal(t, "flag-user", s.Username)
	assert.Equal(t, "p-org", s.Org)
	assert.Equal(t, "test", s.Env)
	assert.Equal(t, "p-key", s.APIKey)
	assert.Equal(t, config.SourceProfile, s.Sources["api_key"])
	assert.Equal(t, 1, h.asked)
	require.NoError(t, s.RequireCredentials())

	assert.NotContains(t, h.logs.String(), "p-key", "secrets are never logged")
	assert.Contains(t, h.logs.String(), `"sensitive":true`)
}

func TestResolve_PassphraseFromEnv(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profiles.SaveProfile("from-env", domain.Profile{Name: "ci", Username: "u", Org: "o", APIKey: "k"}))
	h.env[config.EnvPassphrase] = "from-env"
	h.env[config.EnvProfile] = "ci"

	s, err := h.resolver().Resolve(config.Flags{})
	require.NoError(t, err)
	assert.Equal(t, "k", s.APIKey)
	assert.Zero(t, h.asked)
}

func TestResolve_ExplicitKeySkipsUnseal(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.profiles.SaveProfile("other", domain.Profile{Name: "work", Username: "u", Org: "o", APIKey: "k"}))

	s, err := h.resolver().Resolve(config.Flags{Profile: "work", APIKey: "direct"})
	require.NoError(t, err)
	assert.Equal(t, "direct", s.APIKey)
	assert.Zero(t, h.asked)
}

func TestResolve_Errors(t *testing.T) {
	h := newHarness(t)
	_, err := h.resolver().Resolve(config.Flags{Profile: "ghost"})
	assert.ErrorIs(t, err, config.ErrUnknownProfile)

	_, err = h.resolver().Resolve(config.Flags{Env: "staging"})
	assert.ErrorContains(t, err, "unknown environment")

	_, err = h.resolver().Resolve(config.Flags{Env: "staging", APIURL: "http://localhost:8080/api"})
	assert.NoError(t, err, "an explicit URL makes the env name irrelevant")

	_, err = h.resolver().Resolve(config.Flags{ConfigFile: filepath.Join(h.home, "missing.yaml")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	h.writeConfig(t, "usrename: typo\n")
	_, err = h.resolver().Resolve(config.Flags{})
	assert.ErrorContains(t, err, "usrename")

	require.NoError(t, h.profiles.SaveProfile("right", domain.Profile{Name: "work", Username: "u", Org: "o", APIKey: "k"}))
	h.writeConfig(t, "profile: work\n")
	_, err = h.resolver().Resolve(config.Flags{})
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestResolve_OfflineIgnoresUnknownEnvironment(t *testing.T) {
	h := newHarness(t)
	h.env[config.EnvEnvironment] = "staging"

	_, err := h.resolver().Resolve(config.Flags{})
	require.ErrorContains(t, err, "unknown environment")

	r := h.resolver()
	r.Offline = true
	s, err := r.Resolve(config.Flags{})
	require.NoError(t, err)
	assert.Equal(t, "staging", s.Env)
}

func TestLoadFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.FileConfig{}, cfg)
}

func TestResolve_WithoutProfileStore(t *testing.T) {
	h := newHarness(t)
	h.env[config.EnvProfile] = "ghost"
	r := h.resolver()
	r.Profiles = nil
	s, err := r.Resolve(config.Flags{Username: "u"})
	require.NoError(t, err)
	assert.Equal(t, "ghost", s.Profile)
	assert.Equal(t, "u", s.Username)
}
