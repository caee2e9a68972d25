// Package app wires application dependencies for the CLI.
//
// It builds the CVE Services client and the high-level services from Config,
// exposing them via the Wire struct for commands to use. FromSettings turns
// resolved CLI settings into a Config.
package app
