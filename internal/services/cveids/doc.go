// Package cveids reserves, lists and inspects the caller's CVE IDs.
package cveids
