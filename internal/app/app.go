package app

import (
	"cvelib/internal/config"
	"cvelib/internal/record"
	"cvelib/internal/version"
)

// FromSettings builds a Config from resolved CLI settings.
func FromSettings(s config.Settings) (Config, error) {
	base, err := s.BaseURL()
	if err != nil {
		return Config{}, err
	}
	return Config{
		BaseURL:   base,
		Username:  s.Username,
		Org:       s.Org,
		APIKey:    s.APIKey,
		Generator: record.ResolveGenerator(s.Generator, s.GeneratorSet, version.Generator()),
	}, nil
}
