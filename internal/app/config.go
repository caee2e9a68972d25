package app

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	BaseURL   string       // CVE Services base URL, e.g. https://cveawg.mitre.org/api/
	Username  string       // CVE-API-USER
	Org       string       // CVE-API-ORG
	APIKey    string       // CVE-API-KEY
	Generator string       // x_generator engine; "-" omits it
	HTTP      *http.Client // optional; defaults to httpx.NewClient(Timeout)
	Timeout   time.Duration
	Logger    *zerolog.Logger
}
