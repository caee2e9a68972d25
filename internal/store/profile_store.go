package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"cvelib/internal/domain"
	"cvelib/internal/util/memzero"
)

const profilesFile = "profiles.json"

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrInvalidProfileName = errors.New("profile names may only contain letters, digits, '.', '_' and '-'")
	ErrPassphraseRequired = errors.New("a passphrase is required to seal or unseal the API key")
)

var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type storedProfile struct {
	domain.Profile
	SealedKey json.RawMessage `json:"sealed_api_key,omitempty"`
}

type profileFile struct {
	Default  string                   `json:"default,omitempty"`
	Profiles map[string]storedProfile `json:"profiles"`
}

// ProfileFileStore stores profiles in <dir>/profiles.json.
type ProfileFileStore struct {
	dir    string
	params argon2Params
	mu     sync.Mutex
}

// NewProfileFileStore returns a store rooted at dir.
func NewProfileFileStore(dir string) *ProfileFileStore {
	return &ProfileFileStore{dir: dir, params: argon2ParamsDefault()}
}

// Path is the location of the profiles file.
func (s *ProfileFileStore) Path() string { return filepath.Join(s.dir, profilesFile) }

func (s *ProfileFileStore) load() (profileFile, error) {
	f := profileFile{Profiles: map[string]storedProfile{}}
	if err := readJSON(s.Path(), &f); err != nil {
		return profileFile{}, fmt.Errorf("read %s: %w", s.Path(), err)
	}
	if f.Profiles == nil {
		f.Profiles = map[string]storedProfile{}
	}
	return f, nil
}

func (s *ProfileFileStore) save(f profileFile) error {
	return writeJSON(s.Path(), f, 0o600)
}

// additionalData binds a sealed key to the profile it belongs to.
func additionalData(p domain.Profile) []byte {
	return []byte("cve-profile|" + p.Name + "|" + p.Org + "|" + p.Username)
}

// SaveProfile stores or replaces profile. A non-empty API key is sealed with
// passphrase.
func (s *ProfileFileStore) SaveProfile(passphrase string, profile domain.Profile) error {
	if !profileNamePattern.MatchString(profile.Name) {
		return ErrInvalidProfileName
	}
	stored := storedProfile{Profile: profile}
	stored.APIKey = ""
	if profile.APIKey != "" {
		if passphrase == "" {
			return ErrPassphraseRequired
		}
		secret := []byte(profile.APIKey)
		sealed, err := seal(passphrase, secret, additionalData(profile), s.params)
		memzero.Zero(secret)
		if err != nil {
			return fmt.Errorf("seal API key: %w", err)
		}
		stored.SealedKey = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	f.Profiles[profile.Name] = stored
	return s.save(f)
}

// LoadProfile returns the named profile with its API key unsealed.
func (s *ProfileFileStore) LoadProfile(passphrase string, name string) (domain.Profile, error) {
	s.mu.Lock()
	stored, ok, err := s.lookup(name)
	s.mu.Unlock()
	if err != nil {
		return domain.Profile{}, err
	}
	if !ok {
		return domain.Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	p := stored.Profile
	if len(stored.SealedKey) == 0 {
		return p, nil
	}
	if passphrase == "" {
		return domain.Profile{}, ErrPassphraseRequired
	}
	secret, err := open(passphrase, stored.SealedKey, additionalData(p))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("profile %s: %w", name, err)
	}
	p.APIKey = string(secret)
	memzero.Zero(secret)
	return p, nil
}

func (s *ProfileFileStore) lookup(name string) (storedProfile, bool, error) {
	f, err := s.load()
	if err != nil {
		return storedProfile{}, false, err
	}
	p, ok := f.Profiles[name]
	return p, ok, nil
}

// ListProfiles returns every profile, without API keys, sorted by name.
func (s *ProfileFileStore) ListProfiles() ([]domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Profile, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		out = append(out, p.Profile)
	}
	slices.SortFunc(out, func(a, b domain.Profile) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// HasAPIKey reports whether the named profile carries a sealed API key.
func (s *ProfileFileStore) HasAPIKey(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok, err := s.lookup(name)
	if err != nil || !ok {
		return false, err
	}
	return len(p.SealedKey) > 0, nil
}

// DeleteProfile removes the named profile. Deleting the default profile
// clears the default.
func (s *ProfileFileStore) DeleteProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	delete(f.Profiles, name)
	if f.Default == name {
		f.Default = ""
	}
	return s.save(f)
}

// SetDefaultProfile makes name the profile used when none is selected.
func (s *ProfileFileStore) SetDefaultProfile(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	f.Default = name
	return s.save(f)
}

// DefaultProfile returns the default profile name, if one is set.
func (s *ProfileFileStore) DefaultProfile() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.load()
	if err != nil {
		return "", false, err
	}
	return f.Default, f.Default != "", nil
}

// Compile-time assertion that ProfileFileStore implements domain.ProfileStore.
var _ domain.ProfileStore = (*ProfileFileStore)(nil)
