// Package commands defines the cve CLI and wires dependencies for subcommands.
//
// Commands
//
//   - reserve        Reserve one or more CVE IDs
//   - publish        Publish or update a CVE record, or add an ADP container
//   - reject         Reject a CVE ID or update a rejected record
//   - undo-reject    Move a rejected CVE ID back to RESERVED
//   - show           Show CVE IDs and, optionally, their records
//   - list           List the organization's CVE IDs
//   - count          Count CVE records
//   - quota, org     Show organization details, users and quota
//   - user           Show, create and update users, reset API keys
//   - ping           Check that CVE Services is reachable
//   - validate       Validate a container file offline
//   - profile        Manage saved credential profiles
//   - docs           Generate man pages or markdown
//   - version        Print the version
//
// # Implementation
//
// The root command resolves settings (flags, environment, config file,
// profile) and builds the dependency graph (client, services, profile store)
// before any subcommand runs. Commands marked offline never build a client
// and never need credentials.
package commands
