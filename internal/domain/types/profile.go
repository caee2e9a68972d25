package types

// Profile is a named set of CVE Services credentials kept on disk.
type Profile struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Org      string `json:"org"`
	Env      string `json:"env,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
	// APIKey is only set after the profile has been unsealed.
	APIKey string `json:"-"`
}
