package app

import (
	"cvelib/internal/cveapi"
	"cvelib/internal/domain"
	"cvelib/internal/platform/httpx"
	accountsvc "cvelib/internal/services/accounts"
	cveidsvc "cvelib/internal/services/cveids"
	recordsvc "cvelib/internal/services/records"
)

// Wire bundles the API client and the services built on it.
type Wire struct {
	API      domain.API
	Records  domain.RecordService
	CveIDs   domain.CveIDService
	Accounts domain.AccountService
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	// Ensure an HTTP client is available for outbound calls
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = httpx.NewClient(cfg.Timeout)
	}

	client, err := cveapi.New(cveapi.Options{
		Username: cfg.Username,
		Org:      cfg.Org,
		APIKey:   cfg.APIKey,
		URL:      cfg.BaseURL,
		HTTP:     httpClient,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Wire{
		API:      client,
		Records:  recordsvc.New(client, client, cfg.Generator),
		CveIDs:   cveidsvc.New(client, client),
		Accounts: accountsvc.New(client, cfg.Username),
	}, nil
}
