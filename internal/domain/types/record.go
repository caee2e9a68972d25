package types

// Container is a CVE JSON 5 container (CNA or ADP) or a full record. It is
// kept as a generic map so that fields unknown to this tool survive a
// round trip unchanged.
type Container = map[string]any

// RecordResponse is the generic response of a record mutation: a message and
// the resulting record.
type RecordResponse struct {
	Message string    `json:"message"`
	Created Container `json:"created,omitempty"`
	Updated Container `json:"updated,omitempty"`
}

// Record returns whichever of Created or Updated is set.
func (r RecordResponse) Record() Container {
	if r.Created != nil {
		return r.Created
	}
	return r.Updated
}
