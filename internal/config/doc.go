// Package config resolves the CLI's runtime settings.
//
// Every setting is taken from the first source that provides it, in this
// order: command-line flags, CVE_* environment variables, the YAML config
// file (~/.cve/config.yaml unless --config names another), and finally the
// selected profile from the profile store. The API key stored in a profile is
// only unsealed when no earlier source supplied one.
//
// The source of each setting is logged at debug level. Secret values never
// are.
package config
