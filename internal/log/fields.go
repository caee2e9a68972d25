package log

// Canonical field name constants for structured logging.
const (
	FieldComponent = "component"
	FieldEvent     = "event"

	// CVE Services
	FieldCveID    = "cve_id"
	FieldOrg      = "org"
	FieldUser     = "user"
	FieldState    = "state"
	FieldEnv      = "env"
	FieldBaseURL  = "base_url"
	FieldProfile  = "profile"
	FieldSchema   = "schema"
	FieldPage     = "page"
	FieldAttempt  = "attempt"
	FieldStatus   = "status"
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldDuration = "duration"
)
