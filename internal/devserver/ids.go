package devserver

import (
	"fmt"
	"math/rand"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cvelib/internal/domain"
)

var yearPattern = regexp.MustCompile(`^\d{4}$`)

const firstSequence = 1000

// reservedCount is the number of RESERVED ids owned by org. Callers hold s.mu.
func (s *Server) reservedCount(org string) int {
	n := 0
	for _, st := range s.ids {
		if st.info.OwningCNA == org && st.info.State == domain.StateReserved {
			n++
		}
	}
	return n
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	q := r.URL.Query()

	amount, err := strconv.Atoi(q.Get("amount"))
	if err != nil || amount < 1 {
		writeBadInput(w, "amount must be a positive integer")
		return
	}
	year := q.Get("cve_year")
	if !yearPattern.MatchString(year) {
		writeBadInput(w, "cve_year must be a four digit year")
		return
	}
	if q.Get("short_name") != c.org.ShortName {
		writeError(w, http.StatusForbidden, codeOrgMismatch, "short_name must be the requester's organization")
		return
	}
	batch := q.Get("batch_type")
	if amount > 1 && batch != "sequential" && batch != "nonsequential" {
		writeBadInput(w, "batch_type must be sequential or nonsequential when amount > 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	available := c.org.Policies.IDQuota - s.reservedCount(c.org.ShortName)
	if amount > available {
		writeError(w, http.StatusForbidden, domain.ErrorExceededIDQuota.String(),
			fmt.Sprintf("The amount of CVE IDs requested (%d) exceeds the remaining quota (%d).", amount, available))
		return
	}

	now := s.cfg.Now().UTC()
	out := make([]domain.CveIDInfo, 0, amount)
	for i := 0; i < amount; i++ {
		id := s.allocate(year, batch == "nonsequential")
		info := domain.CveIDInfo{
			CveID:       id,
			CveYear:     year,
			State:       domain.StateReserved,
			OwningCNA:   c.org.ShortName,
			RequestedBy: domain.RequestedBy{CNA: c.org.ShortName, User: c.username},
			Reserved:    now,
			Time:        domain.Timestamps{Created: now, Modified: now},
		}
		s.ids[id] = &idState{info: info}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, domain.Reservation{
		CveIDs: out,
		Meta:   domain.ReservationMeta{RemainingQuota: available - amount},
	})
}

// allocate picks the next free id for year. Callers hold s.mu.
func (s *Server) allocate(year string, random bool) domain.CveID {
	for {
		seq, ok := s.nextSeq[year]
		if !ok {
			seq = firstSequence
		}
		if random {
			seq += 1 + rand.Intn(50) // #nosec G404 -- id spacing only
		}
		s.nextSeq[year] = seq + 1
		id := domain.CveID(fmt.Sprintf("CVE-%s-%04d", year, seq))
		if _, taken := s.ids[id]; !taken {
			return id
		}
	}
}

func (s *Server) handleListIDs(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	q := r.URL.Query()

	var state domain.State
	if v := q.Get("state"); v != "" {
		st, err := domain.ParseState(v)
		if err != nil {
			writeBadInput(w, err.Error())
			return
		}
		state = st
	}
	year := q.Get("cve_id_year")
	lt, err := parseTimeParam(q.Get("time_reserved.lt"))
	if err != nil {
		writeBadInput(w, "invalid time_reserved.lt")
		return
	}
	gt, err := parseTimeParam(q.Get("time_reserved.gt"))
	if err != nil {
		writeBadInput(w, "invalid time_reserved.gt")
		return
	}

	s.mu.RLock()
	items := sortedIDs(s.ids, func(st *idState) bool {
		i := st.info
		switch {
		case i.OwningCNA != c.org.ShortName:
			return false
		case state != "" && i.State != state:
			return false
		case year != "" && i.CveYear != year:
			return false
		case !lt.IsZero() && !i.Reserved.Before(lt):
			return false
		case !gt.IsZero() && !i.Reserved.After(gt):
			return false
		}
		return true
	})
	s.mu.RUnlock()

	pageItems, meta, err := paginate(r, items, s.cfg.PageSize)
	if err != nil {
		writeBadInput(w, err.Error())
		return
	}
	meta["cve_ids"] = pageItems
	writeJSON(w, http.StatusOK, meta)
}

func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", v)
}

// lookupID resolves the {id} URL parameter. It writes the error response and
// returns nil when the id is malformed or unknown. Callers hold s.mu.
func (s *Server) lookupID(w http.ResponseWriter, r *http.Request) *idState {
	id, err := domain.ParseCveID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadInput(w, err.Error())
		return nil
	}
	st, ok := s.ids[id]
	if !ok {
		writeError(w, http.StatusNotFound, codeIDDNE, fmt.Sprintf("%s does not exist.", id))
		return nil
	}
	return st
}

func (s *Server) handleShowID(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.lookupID(w, r)
	if st == nil {
		return
	}
	writeJSON(w, http.StatusOK, st.info)
}

func (s *Server) handleMoveID(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	target, err := domain.ParseState(r.URL.Query().Get("state"))
	if err != nil || target == domain.StatePublished {
		writeBadInput(w, "state must be RESERVED or REJECTED")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.lookupID(w, r)
	if st == nil {
		return
	}
	if st.info.OwningCNA != c.org.ShortName {
		writeError(w, http.StatusForbidden, codeOrgMismatch, "The CVE ID is owned by another organization.")
		return
	}
	switch {
	case st.info.State == domain.StatePublished:
		writeError(w, http.StatusBadRequest, codeBadState, "A PUBLISHED CVE ID cannot change state through this endpoint.")
		return
	case st.record != nil:
		writeError(w, http.StatusBadRequest, codeBadState, "The CVE ID has a record; update the record instead.")
		return
	}
	st.info.State = target
	st.info.Time.Modified = s.cfg.Now().UTC()
	writeJSON(w, http.StatusOK, domain.StateChange{
		Message: fmt.Sprintf("%s was successfully updated.", st.info.CveID),
		Updated: st.info,
	})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var state domain.State
	if v := r.URL.Query().Get("state"); v != "" {
		st, err := domain.ParseState(v)
		if err != nil || st == domain.StateRejected {
			writeBadInput(w, "state must be RESERVED or PUBLISHED")
			return
		}
		state = st
	}
	s.mu.RLock()
	n := 0
	for _, st := range s.ids {
		if st.info.State == domain.StateRejected {
			continue
		}
		if state == "" || st.info.State == state {
			n++
		}
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, domain.Count{TotalCount: n})
}
