// Package main runs an in-memory CVE Services API for local development and
// for trying the cve CLI without touching a real environment.
//
// It provisions one organization and a set of users at start-up and prints
// their API keys, for example:
//
//	cve-devserver --org acme --user admin@acme.test --user dev@acme.test
//	export CVE_API_URL=http://127.0.0.1:8080/api/
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - The first user is an org admin; the rest are plain users.
//   - CVE IDs are numbered sequentially per year starting at 1000, or at
//     random with amount > 1 and batch_type=nonsequential.
//   - --rate-limit throttles each API user and answers 429 with Retry-After.
//   - Every request is written to the access log.
package main
