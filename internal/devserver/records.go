package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cvelib/internal/domain"
)

const maxBody = 4 << 20

// readContainer decodes {"<key>": {...}} from the request body.
func readContainer(w http.ResponseWriter, r *http.Request, key string) (domain.Container, bool) {
	var body map[string]json.RawMessage
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(&body); err != nil {
		writeBadInput(w, "request body must be a JSON object")
		return nil, false
	}
	raw, ok := body[key]
	if !ok {
		writeBadInput(w, fmt.Sprintf("request body must contain %q", key))
		return nil, false
	}
	var c domain.Container
	if err := json.Unmarshal(raw, &c); err != nil || c == nil {
		writeBadInput(w, fmt.Sprintf("%q must be a JSON object", key))
		return nil, false
	}
	return c, true
}

// stampProvider fills the provider metadata the service owns.
func stampProvider(c domain.Container, org *domain.Org, now time.Time) {
	pm, _ := c["providerMetadata"].(map[string]any)
	if pm == nil {
		pm = map[string]any{}
	}
	if _, ok := pm["orgId"]; !ok {
		pm["orgId"] = org.UUID
	}
	pm["shortName"] = org.ShortName
	pm["dateUpdated"] = now.Format(time.RFC3339)
	c["providerMetadata"] = pm
}

func newRecord(org *domain.Org, info domain.CveIDInfo, cna domain.Container, now time.Time) domain.Container {
	meta := map[string]any{
		"cveId":             info.CveID.String(),
		"assignerOrgId":     org.UUID,
		"assignerShortName": org.ShortName,
		"state":             info.State.String(),
		"dateReserved":      info.Reserved.Format(time.RFC3339),
		"dateUpdated":       now.Format(time.RFC3339),
	}
	switch info.State {
	case domain.StatePublished:
		meta["datePublished"] = now.Format(time.RFC3339)
	case domain.StateRejected:
		meta["dateRejected"] = now.Format(time.RFC3339)
	}
	return domain.Container{
		"dataType":    "CVE_RECORD",
		"dataVersion": "5.1",
		"cveMetadata": meta,
		"containers":  map[string]any{"cna": cna},
	}
}

func touchRecord(rec domain.Container, now time.Time) {
	if meta, ok := rec["cveMetadata"].(map[string]any); ok {
		meta["dateUpdated"] = now.Format(time.RFC3339)
	}
}

func recordDNE(w http.ResponseWriter, id domain.CveID) {
	writeError(w, http.StatusNotFound, domain.ErrorRecordDoesNotExist.String(),
		fmt.Sprintf("The cve record for %s does not exist.", id))
}

// ownedID resolves {id} and checks that the caller's org owns it. Callers hold s.mu.
func (s *Server) ownedID(w http.ResponseWriter, r *http.Request) *idState {
	st := s.lookupID(w, r)
	if st == nil {
		return nil
	}
	if st.info.OwningCNA != callerFrom(r.Context()).org.ShortName {
		writeError(w, http.StatusForbidden, codeOrgMismatch, "The CVE ID is owned by another organization.")
		return nil
	}
	return st
}

func (s *Server) handleShowRecord(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lookupID(w, r)
	if st == nil {
		return
	}
	if st.record == nil {
		recordDNE(w, st.info.CveID)
		return
	}
	writeJSON(w, http.StatusOK, st.record)
}

// createRecord handles both publish and reject of a record-less id.
func (s *Server) createRecord(w http.ResponseWriter, r *http.Request, target domain.State) {
	cna, ok := readContainer(w, r, "cnaContainer")
	if !ok {
		return
	}
	c := callerFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ownedID(w, r)
	if st == nil {
		return
	}
	if st.record != nil {
		writeError(w, http.StatusBadRequest, domain.ErrorRecordExists.String(),
			fmt.Sprintf("The cve record for %s already exists.", st.info.CveID))
		return
	}
	if target == domain.StatePublished && st.info.State != domain.StateReserved {
		writeError(w, http.StatusBadRequest, codeBadState,
			fmt.Sprintf("%s must be RESERVED to be published.", st.info.CveID))
		return
	}

	now := s.cfg.Now().UTC()
	stampProvider(cna, c.org, now)
	st.info.State = target
	st.info.Time.Modified = now
	st.record = newRecord(c.org, st.info, cna, now)

	verb := "published"
	if target == domain.StateRejected {
		verb = "rejected"
	}
	writeJSON(w, http.StatusOK, domain.RecordResponse{
		Message: fmt.Sprintf("%s record was successfully %s.", st.info.CveID, verb),
		Created: st.record,
	})
}

// replaceCNA handles updates of published and rejected records.
func (s *Server) replaceCNA(w http.ResponseWriter, r *http.Request, want domain.State) {
	cna, ok := readContainer(w, r, "cnaContainer")
	if !ok {
		return
	}
	c := callerFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ownedID(w, r)
	if st == nil {
		return
	}
	if st.record == nil || st.info.State != want {
		recordDNE(w, st.info.CveID)
		return
	}
	now := s.cfg.Now().UTC()
	stampProvider(cna, c.org, now)
	containers, _ := st.record["containers"].(map[string]any)
	if containers == nil {
		containers = map[string]any{}
		st.record["containers"] = containers
	}
	containers["cna"] = cna
	touchRecord(st.record, now)
	st.info.Time.Modified = now

	writeJSON(w, http.StatusOK, domain.RecordResponse{
		Message: fmt.Sprintf("%s record was successfully updated.", st.info.CveID),
		Updated: st.record,
	})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, domain.StatePublished)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.createRecord(w, r, domain.StateRejected)
}

func (s *Server) handleUpdatePublished(w http.ResponseWriter, r *http.Request) {
	s.replaceCNA(w, r, domain.StatePublished)
}

func (s *Server) handleUpdateRejected(w http.ResponseWriter, r *http.Request) {
	s.replaceCNA(w, r, domain.StateRejected)
}

// handleADP adds the caller's ADP container to a published record, replacing
// any container previously supplied by the same organization. ADP containers
// may be added to records owned by any organization.
func (s *Server) handleADP(w http.ResponseWriter, r *http.Request) {
	adp, ok := readContainer(w, r, "adpContainer")
	if !ok {
		return
	}
	c := callerFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.lookupID(w, r)
	if st == nil {
		return
	}
	if st.record == nil || st.info.State != domain.StatePublished {
		recordDNE(w, st.info.CveID)
		return
	}

	now := s.cfg.Now().UTC()
	stampProvider(adp, c.org, now)
	containers, _ := st.record["containers"].(map[string]any)
	if containers == nil {
		containers = map[string]any{}
		st.record["containers"] = containers
	}
	list, _ := containers["adp"].([]any)
	replaced := false
	for i, existing := range list {
		m, _ := existing.(map[string]any)
		pm, _ := m["providerMetadata"].(map[string]any)
		if pm != nil && pm["orgId"] == c.org.UUID {
			list[i] = adp
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, adp)
	}
	containers["adp"] = list
	touchRecord(st.record, now)

	writeJSON(w, http.StatusOK, domain.RecordResponse{
		Message: fmt.Sprintf("%s ADP container was successfully updated.", st.info.CveID),
		Updated: st.record,
	})
}
