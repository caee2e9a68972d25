package devserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cvelib/internal/domain"
)

func (s *Server) handleShowOrg(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	s.mu.RLock()
	org := *c.org
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	s.mu.RLock()
	reserved := s.reservedCount(c.org.ShortName)
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, domain.Quota{
		IDQuota:       c.org.Policies.IDQuota,
		TotalReserved: reserved,
		Available:     c.org.Policies.IDQuota - reserved,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	s.mu.RLock()
	var users []domain.User
	for _, u := range s.users {
		if u.user.OrgUUID == c.org.UUID {
			users = append(users, u.snapshot())
		}
	}
	s.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	pageItems, meta, err := paginate(r, users, s.cfg.PageSize)
	if err != nil {
		writeBadInput(w, err.Error())
		return
	}
	if pageItems == nil {
		pageItems = []domain.User{}
	}
	meta["users"] = pageItems
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleShowUser(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	name := chi.URLParam(r, "username")
	s.mu.RLock()
	u, ok := s.users[userKey(c.org.ShortName, name)]
	var out domain.User
	if ok {
		out = u.snapshot()
	}
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, codeUserDNE, fmt.Sprintf("The user %s does not exist.", name))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func requireAdmin(w http.ResponseWriter, c caller) bool {
	if !c.admin {
		writeError(w, http.StatusForbidden, codeNotOrgAdmin,
			"This operation can only be performed by an organization admin.")
		return false
	}
	return true
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	if !requireAdmin(w, c) {
		return
	}
	var in domain.NewUser
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&in); err != nil {
		writeBadInput(w, "request body must be a JSON user object")
		return
	}
	if in.Username == "" {
		writeBadInput(w, "username is required")
		return
	}
	for _, role := range in.Authority.ActiveRoles {
		if _, err := domain.ParseRole(role); err != nil {
			writeBadInput(w, err.Error())
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(c.org.ShortName, in.Username)
	if _, exists := s.users[key]; exists {
		writeError(w, http.StatusBadRequest, codeUserExists,
			fmt.Sprintf("The user %s already exists.", in.Username))
		return
	}
	now := s.cfg.Now().UTC()
	roles := append([]string{}, in.Authority.ActiveRoles...)
	u := &userState{
		user: domain.User{
			Username:  in.Username,
			OrgUUID:   c.org.UUID,
			UUID:      uuid.NewString(),
			Name:      in.Name,
			Authority: domain.Authority{ActiveRoles: roles},
			Active:    true,
			Time:      domain.Timestamps{Created: now, Modified: now},
		},
		secret: newSecret(),
	}
	s.users[key] = u

	created := u.user
	created.Secret = u.secret
	writeJSON(w, http.StatusOK, domain.NewUserResult{
		Message: fmt.Sprintf("%s was successfully created.", in.Username),
		Created: created,
	})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	name := chi.URLParam(r, "username")
	q := r.URL.Query()
	self := name == c.username
	admin := c.admin

	touchesRoles := q.Has("active_roles.add") || q.Has("active_roles.remove")
	if !admin && (!self || touchesRoles || q.Has("active")) {
		requireAdmin(w, c)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(c.org.ShortName, name)
	u, ok := s.users[key]
	if !ok {
		writeError(w, http.StatusNotFound, codeUserDNE, fmt.Sprintf("The user %s does not exist.", name))
		return
	}

	var active *bool
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadInput(w, "active must be true or false")
			return
		}
		active = &b
	}
	for _, role := range q["active_roles.add"] {
		if _, err := domain.ParseRole(role); err != nil {
			writeBadInput(w, err.Error())
			return
		}
	}
	nu := q.Get("new_username")
	newKey := userKey(c.org.ShortName, nu)
	if nu != "" && nu != name {
		if _, exists := s.users[newKey]; exists {
			writeError(w, http.StatusBadRequest, codeUserExists, fmt.Sprintf("The user %s already exists.", nu))
			return
		}
	}

	if active != nil {
		u.user.Active = *active
	}
	for field, dst := range map[string]*string{
		"name.first":  &u.user.Name.First,
		"name.last":   &u.user.Name.Last,
		"name.middle": &u.user.Name.Middle,
		"name.suffix": &u.user.Name.Suffix,
	} {
		if q.Has(field) {
			*dst = q.Get(field)
		}
	}
	for _, role := range q["active_roles.add"] {
		if !slices.Contains(u.user.Authority.ActiveRoles, role) {
			u.user.Authority.ActiveRoles = append(u.user.Authority.ActiveRoles, role)
		}
	}
	for _, role := range q["active_roles.remove"] {
		u.user.Authority.ActiveRoles = slices.DeleteFunc(u.user.Authority.ActiveRoles, func(r string) bool { return r == role })
	}
	if nu != "" && nu != name {
		delete(s.users, key)
		u.user.Username = nu
		s.users[newKey] = u
	}
	u.user.Time.Modified = s.cfg.Now().UTC()

	writeJSON(w, http.StatusOK, domain.UserChange{
		Message: fmt.Sprintf("%s was successfully updated.", name),
		Updated: u.user,
	})
}

func (s *Server) handleResetSecret(w http.ResponseWriter, r *http.Request) {
	c := callerFrom(r.Context())
	name := chi.URLParam(r, "username")
	if name != c.username && !requireAdmin(w, c) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userKey(c.org.ShortName, name)]
	if !ok {
		writeError(w, http.StatusNotFound, codeUserDNE, fmt.Sprintf("The user %s does not exist.", name))
		return
	}
	u.secret = newSecret()
	writeJSON(w, http.StatusOK, domain.KeyReset{APISecret: u.secret})
}
