package interfaces

import domaintypes "cvelib/internal/domain/types"

// ProfileStore persists named credential profiles. API keys are sealed with
// a passphrase before they reach disk.
type ProfileStore interface {
	SaveProfile(passphrase string, profile domaintypes.Profile) error
	LoadProfile(passphrase string, name string) (domaintypes.Profile, error)
	ListProfiles() ([]domaintypes.Profile, error)
	DeleteProfile(name string) error
	SetDefaultProfile(name string) error
	DefaultProfile() (string, bool, error)
}
