// Package cveapi provides an HTTP implementation of the domain.API interface
// for the CVE Services REST API.
//
// Every request carries the CVE-API-KEY, CVE-API-ORG and CVE-API-USER
// authentication headers. Paths are resolved relative to the environment's
// base URL (for example https://cveawg.mitre.org/api/).
//
// Supported operations include:
//   - Reserving CVE IDs and moving record-less IDs between RESERVED and REJECTED.
//   - Publishing, updating and rejecting CNA containers, and adding ADP containers.
//   - Listing CVE IDs and users across pages, yielding items as pages arrive.
//   - Showing and managing the caller's organization, quota and users.
//   - Checking the API health.
//
// Non-2xx statuses are returned as *APIError values carrying the HTTP status,
// the CVE Services error code and message, and the request method and URL.
// Idempotent requests are retried on transport errors, 429 and 5xx with
// exponential backoff, and all requests are paced by a token bucket.
package cveapi
