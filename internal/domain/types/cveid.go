package types

import "time"

// RequestedBy names the CNA and user that reserved a CVE ID.
type RequestedBy struct {
	CNA  string `json:"cna"`
	User string `json:"user"`
}

// Timestamps carries creation and modification times reported by the API.
type Timestamps struct {
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// CveIDInfo is the API's view of a single CVE ID.
type CveIDInfo struct {
	CveID       CveID       `json:"cve_id"`
	CveYear     string      `json:"cve_year"`
	State       State       `json:"state"`
	OwningCNA   string      `json:"owning_cna"`
	RequestedBy RequestedBy `json:"requested_by"`
	Reserved    time.Time   `json:"reserved"`
	Time        Timestamps  `json:"time"`
}

// ReservationMeta is the metadata returned alongside newly reserved IDs.
type ReservationMeta struct {
	RemainingQuota int `json:"remaining_quota"`
}

// Reservation is the result of reserving one or more CVE IDs.
type Reservation struct {
	CveIDs []CveIDInfo     `json:"cve_ids"`
	Meta   ReservationMeta `json:"meta"`
}

// ListFilter narrows a CVE ID listing. Zero values are not sent.
type ListFilter struct {
	Year       string
	State      State
	ReservedLT time.Time
	ReservedGT time.Time
}

// Count is the response of the record count endpoint.
type Count struct {
	TotalCount int `json:"totalCount"`
}

// Quota describes the organization's CVE ID reservation quota.
type Quota struct {
	IDQuota       int `json:"id_quota"`
	TotalReserved int `json:"total_reserved"`
	Available     int `json:"available"`
}

// StateChange is the response of a record-less state move.
type StateChange struct {
	Message string    `json:"message"`
	Updated CveIDInfo `json:"updated"`
}
