package types

import (
	"fmt"
	"strings"
)

// SortKey orders CVE ID listings.
type SortKey string

const (
	SortByCveID    SortKey = "cve_id"
	SortByState    SortKey = "state"
	SortByReserved SortKey = "reserved"
)

// SortKeys lists the accepted sort keys.
func SortKeys() []SortKey { return []SortKey{SortByCveID, SortByState, SortByReserved} }

// ParseSortKey accepts a sort key in any case.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SortKeys() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q (want cve_id, state or reserved)", s)
}

// CveIDDetail is a CVE ID together with its record, when one was requested
// and exists.
type CveIDDetail struct {
	Info   CveIDInfo `json:"cve_id"`
	Record Container `json:"record,omitempty"`
}

// SubmitOptions controls how a container is prepared before submission.
type SubmitOptions struct {
	// SkipValidation sends the container without checking it locally.
	SkipValidation bool
}
