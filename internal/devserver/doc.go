// Package devserver is an in-memory stand-in for CVE Services used during
// development and in tests.
//
// It serves the subset of the CVE Services API used by cve under /api:
//
//	GET  /api/health-check
//	POST /api/cve-id?amount=N&cve_year=Y&short_name=ORG[&batch_type=sequential|nonsequential]
//	GET  /api/cve-id[?state=&cve_id_year=&time_reserved.lt=&time_reserved.gt=&page=]
//	GET  /api/cve-id/{id}
//	PUT  /api/cve-id/{id}?state=RESERVED|REJECTED
//	GET  /api/cve_count[?state=]
//	GET  /api/cve/{id}
//	POST /api/cve/{id}/cna        PUT /api/cve/{id}/cna
//	POST /api/cve/{id}/reject     PUT /api/cve/{id}/reject
//	PUT  /api/cve/{id}/adp
//	GET  /api/org/{org}           GET /api/org/{org}/id_quota
//	GET  /api/org/{org}/users     POST /api/org/{org}/user
//	GET  /api/org/{org}/user/{u}  PUT /api/org/{org}/user/{u}
//	PUT  /api/org/{org}/user/{u}/reset_secret
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Every route except the health check requires the CVE-API-KEY,
//     CVE-API-ORG and CVE-API-USER headers to name an active user.
//   - Reservations count against the organization's quota.
//   - Published IDs can never move back through /cve-id.
//   - Lists are paged with the same attributes the real service uses.
//   - Requests can be throttled per API user, answering 429 with Retry-After.
//   - An access log records method, path, user, status, bytes and duration.
package devserver
