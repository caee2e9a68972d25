package devserver

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cvelib/internal/cveapi"
	"cvelib/internal/domain"
	xlog "cvelib/internal/log"
)

// Config tunes the dev server.
type Config struct {
	// PageSize is the number of items per page for list endpoints.
	PageSize int
	// RateLimit is the number of requests each API user may make per
	// RateWindow. Zero disables throttling.
	RateLimit  int
	RateWindow time.Duration
	// Now returns the current time. It defaults to time.Now.
	Now    func() time.Time
	Logger *zerolog.Logger
}

const defaultPageSize = 500

type userState struct {
	user   domain.User
	secret string
}

// snapshot copies the user so it can be read after the lock is released.
func (u *userState) snapshot() domain.User {
	out := u.user
	out.Authority.ActiveRoles = slices.Clone(u.user.Authority.ActiveRoles)
	return out
}

type idState struct {
	info   domain.CveIDInfo
	record domain.Container
}

// Server is the in-memory CVE Services implementation.
type Server struct {
	cfg    Config
	logger zerolog.Logger
	router chi.Router

	mu      sync.RWMutex
	orgs    map[string]*domain.Org
	users   map[string]*userState // keyed by org|username
	ids     map[domain.CveID]*idState
	nextSeq map[string]int // keyed by year
}

// New returns an empty server. Use AddOrg and AddUser to provision callers.
func New(cfg Config) *Server {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	logger := xlog.WithComponent("devserver")
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str(xlog.FieldComponent, "devserver").Logger()
	}
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		orgs:    make(map[string]*domain.Org),
		users:   make(map[string]*userState),
		ids:     make(map[domain.CveID]*idState),
		nextSeq: make(map[string]int),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API under /api.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health-check", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "OK"})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			if s.cfg.RateLimit > 0 {
				r.Use(s.throttle())
			}

			r.Post("/cve-id", s.handleReserve)
			r.Get("/cve-id", s.handleListIDs)
			r.Get("/cve-id/{id}", s.handleShowID)
			r.Put("/cve-id/{id}", s.handleMoveID)
			r.Get("/cve_count", s.handleCount)

			r.Get("/cve/{id}", s.handleShowRecord)
			r.Post("/cve/{id}/cna", s.handlePublish)
			r.Put("/cve/{id}/cna", s.handleUpdatePublished)
			r.Post("/cve/{id}/reject", s.handleReject)
			r.Put("/cve/{id}/reject", s.handleUpdateRejected)
			r.Put("/cve/{id}/adp", s.handleADP)

			r.Route("/org/{org}", func(r chi.Router) {
				r.Use(s.sameOrg)
				r.Get("/", s.handleShowOrg)
				r.Get("/id_quota", s.handleQuota)
				r.Get("/users", s.handleListUsers)
				r.Post("/user", s.handleCreateUser)
				r.Get("/user/{username}", s.handleShowUser)
				r.Put("/user/{username}", s.handleUpdateUser)
				r.Put("/user/{username}/reset_secret", s.handleResetSecret)
			})
		})
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str(xlog.FieldMethod, r.Method).
			Str(xlog.FieldPath, r.URL.Path).
			Str(xlog.FieldUser, r.Header.Get(cveapi.HeaderAPIUser)).
			Str("remote", r.RemoteAddr).
			Int(xlog.FieldStatus, ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur(xlog.FieldDuration, time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) throttle() func(http.Handler) http.Handler {
	window := s.cfg.RateWindow
	return httprate.Limit(
		s.cfg.RateLimit,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return r.Header.Get(cveapi.HeaderAPIOrg) + "|" + r.Header.Get(cveapi.HeaderAPIUser), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "Too many requests. Please try again later.")
		}),
	)
}

type callerKey struct{}

// caller is the authenticated user behind a request. The user fields are
// copied while the server lock is held; handlers may read them unlocked.
type caller struct {
	org      *domain.Org
	username string
	admin    bool
}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := r.Header.Get(cveapi.HeaderAPIOrg)
		user := r.Header.Get(cveapi.HeaderAPIUser)
		key := r.Header.Get(cveapi.HeaderAPIKey)

		s.mu.RLock()
		o := s.orgs[org]
		u := s.users[userKey(org, user)]
		ok := o != nil && u != nil && key != "" && u.secret == key && u.user.Active
		var c caller
		if ok {
			c = caller{org: o, username: u.user.Username, admin: u.user.IsAdmin()}
		}
		s.mu.RUnlock()

		if !ok {
			writeError(w, http.StatusUnauthorized, domain.ErrorUnauthorized.String(), "Unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, c)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sameOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := callerFrom(r.Context())
		if chi.URLParam(r, "org") != c.org.ShortName {
			writeError(w, http.StatusForbidden, codeOrgMismatch,
				"The requesting user can only access its own organization.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userKey(org, username string) string { return org + "|" + username }

// AddOrg provisions an organization with the given CVE ID quota.
func (s *Server) AddOrg(shortName, name string, quota int) domain.Org {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now().UTC()
	o := &domain.Org{
		UUID:      uuid.NewString(),
		ShortName: shortName,
		Name:      name,
		Authority: domain.Authority{ActiveRoles: []string{"CNA"}},
		Policies:  domain.OrgPolicies{IDQuota: quota},
		Time:      domain.Timestamps{Created: now, Modified: now},
	}
	s.orgs[shortName] = o
	return *o
}

// AddUser provisions an active user and returns its API key.
func (s *Server) AddUser(org, username string, admin bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[org]
	if !ok {
		return "", fmt.Errorf("unknown org %q", org)
	}
	if _, exists := s.users[userKey(org, username)]; exists {
		return "", fmt.Errorf("user %q already exists in %q", username, org)
	}
	roles := []string{}
	if admin {
		roles = append(roles, string(domain.RoleAdmin))
	}
	now := s.cfg.Now().UTC()
	u := &userState{
		user: domain.User{
			Username:  username,
			OrgUUID:   o.UUID,
			UUID:      uuid.NewString(),
			Authority: domain.Authority{ActiveRoles: roles},
			Active:    true,
			Time:      domain.Timestamps{Created: now, Modified: now},
		},
		secret: newSecret(),
	}
	s.users[userKey(org, username)] = u
	return u.secret, nil
}

// CveID returns the stored state of id.
func (s *Server) CveID(id domain.CveID) (domain.CveIDInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.ids[id]
	if !ok {
		return domain.CveIDInfo{}, false
	}
	return st.info, true
}

// Record returns the stored CVE record for id.
func (s *Server) Record(id domain.CveID) (domain.Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.ids[id]
	if !ok || st.record == nil {
		return nil, false
	}
	return st.record, true
}

func newSecret() string { return uuid.NewString() }

// paginate slices items for the requested page and returns the page
// attributes to merge into the response. Short lists carry none.
func paginate[T any](r *http.Request, items []T, pageSize int) ([]T, map[string]any, error) {
	total := len(items)
	if total <= pageSize {
		return items, map[string]any{}, nil
	}
	pageNum := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, nil, fmt.Errorf("invalid page %q", v)
		}
		pageNum = n
	}
	pageCount := (total + pageSize - 1) / pageSize
	start := (pageNum - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	var next, prev any
	if pageNum < pageCount {
		next = pageNum + 1
	}
	if pageNum > 1 {
		prev = pageNum - 1
	}
	meta := map[string]any{
		"totalCount":   total,
		"itemsPerPage": pageSize,
		"pageCount":    pageCount,
		"currentPage":  pageNum,
		"prevPage":     prev,
		"nextPage":     next,
	}
	return items[start:end], meta, nil
}

func sortedIDs(m map[domain.CveID]*idState, keep func(*idState) bool) []domain.CveIDInfo {
	out := make([]domain.CveIDInfo, 0, len(m))
	for _, st := range m {
		if keep(st) {
			out = append(out, st.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CveID.Compare(out[j].CveID) < 0 })
	return out
}
