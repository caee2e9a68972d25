package devserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvelib/internal/cveapi"
	"cvelib/internal/domain"
)

type fixture struct {
	srv      *Server
	adminKey string
	userKey  string
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	quiet := zerolog.Nop()
	cfg.Logger = &quiet
	srv := New(cfg)
	srv.AddOrg("acme", "Acme Corp", 3)
	srv.AddOrg("other", "Other Corp", 3)
	adminKey, err := srv.AddUser("acme", "admin", true)
	require.NoError(t, err)
	userKey, err := srv.AddUser("acme", "dev", false)
	require.NoError(t, err)
	return fixture{srv: srv, adminKey: adminKey, userKey: userKey}
}

func (f fixture) do(t *testing.T, method, target, user, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = strings.NewReader(string(raw))
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, rdr)
	if user != "" {
		req.Header.Set(cveapi.HeaderAPIOrg, "acme")
		req.Header.Set(cveapi.HeaderAPIUser, user)
		req.Header.Set(cveapi.HeaderAPIKey, key)
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheckNeedsNoCredentials(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodGet, "/api/health-check", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodGet, "/api/cve-id", "admin", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodGet, "/api/cve-id", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cve-id", "admin", f.adminKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrgRoutesAreScopedToCaller(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodGet, "/api/org/other", "admin", f.adminKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeOrgMismatch, decodeError(t, rec).Error)
}

func TestReserveQuota(t *testing.T) {
	f := newFixture(t, Config{})

	rec := f.do(t, http.MethodPost, "/api/cve-id?amount=2&cve_year=2024&short_name=acme&batch_type=sequential", "dev", f.userKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.CveIDs, 2)
	assert.Equal(t, domain.CveID("CVE-2024-1000"), res.CveIDs[0].CveID)
	assert.Equal(t, domain.CveID("CVE-2024-1001"), res.CveIDs[1].CveID)
	assert.Equal(t, 1, res.Meta.RemainingQuota)

	rec = f.do(t, http.MethodPost, "/api/cve-id?amount=2&cve_year=2024&short_name=acme&batch_type=sequential", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EXCEEDED_ID_QUOTA", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/cve-id?amount=2&cve_year=2024&short_name=acme", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "batch_type is required for multiple ids")

	rec = f.do(t, http.MethodPost, "/api/cve-id?amount=1&cve_year=24&short_name=acme", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/cve-id?amount=1&cve_year=2024&short_name=other", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRejectedIDsFreeQuota(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodPost, "/api/cve-id?amount=3&cve_year=2024&short_name=acme&batch_type=nonsequential", "dev", f.userKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.CveIDs, 3)

	id := res.CveIDs[0].CveID
	rec = f.do(t, http.MethodPut, "/api/cve-id/"+id.String()+"?state=REJECTED", "dev", f.userKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	info, ok := f.srv.CveID(id)
	require.True(t, ok)
	assert.Equal(t, domain.StateRejected, info.State)

	rec = f.do(t, http.MethodPost, "/api/cve-id?amount=1&cve_year=2024&short_name=acme", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStateTransitions(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodPost, "/api/cve-id?amount=1&cve_year=2024&short_name=acme", "dev", f.userKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := "CVE-2024-1000"

	cna := map[string]any{"descriptions": []any{map[string]any{"lang": "en", "value": "x"}}}
	rec = f.do(t, http.MethodPost, "/api/cve/"+id+"/cna", "dev", f.userKey, map[string]any{"cnaContainer": cna})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, ok := f.srv.Record(domain.CveID(id))
	require.True(t, ok)
	assert.Equal(t, "CVE_RECORD", stored["dataType"])

	rec = f.do(t, http.MethodPost, "/api/cve/"+id+"/cna", "dev", f.userKey, map[string]any{"cnaContainer": cna})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CVE_RECORD_EXISTS", decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPut, "/api/cve-id/"+id+"?state=RESERVED", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeBadState, decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPut, "/api/cve-id/"+id+"?state=PUBLISHED", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/cve/"+id+"/reject", "dev", f.userKey,
		map[string]any{"cnaContainer": map[string]any{"rejectedReasons": []any{}}})
	assert.Equal(t, http.StatusNotFound, rec.Code, "published records are not updated through reject")

	rec = f.do(t, http.MethodGet, "/api/cve-id/CVE-2024-9999", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/cve-id/bogus", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountRejectsRejectedState(t *testing.T) {
	f := newFixture(t, Config{})
	rec := f.do(t, http.MethodGet, "/api/cve_count?state=REJECTED", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserAdministration(t *testing.T) {
	f := newFixture(t, Config{})
	newUser := map[string]any{"username": "new", "name": map[string]any{"first": "N"}}

	rec := f.do(t, http.MethodPost, "/api/org/acme/user", "dev", f.userKey, newUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeNotOrgAdmin, decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/org/acme/user", "admin", f.adminKey, newUser)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/org/acme/user", "admin", f.adminKey, newUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeUserExists, decodeError(t, rec).Error)

	rec = f.do(t, http.MethodPut, "/api/org/acme/user/dev?active_roles.add=ADMIN", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-admins cannot grant roles")

	rec = f.do(t, http.MethodPut, "/api/org/acme/user/dev?name.first=Dev", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/org/acme/user/admin/reset_secret", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/org/acme/user/ghost", "admin", f.adminKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConcurrentUserUpdates(t *testing.T) {
	f := newFixture(t, Config{})

	send := func(method, target, user, key string) {
		req := httptest.NewRequest(method, target, strings.NewReader(""))
		req.Header.Set(cveapi.HeaderAPIOrg, "acme")
		req.Header.Set(cveapi.HeaderAPIUser, user)
		req.Header.Set(cveapi.HeaderAPIKey, key)
		f.srv.Handler().ServeHTTP(httptest.NewRecorder(), req)
	}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(4)
		go func() {
			defer wg.Done()
			send(http.MethodPut, "/api/org/acme/user/dev?new_username=dev2", "admin", f.adminKey)
		}()
		go func() {
			defer wg.Done()
			send(http.MethodPut, "/api/org/acme/user/dev2?new_username=dev&active_roles.add=ADMIN", "admin", f.adminKey)
		}()
		go func() {
			defer wg.Done()
			send(http.MethodPut, "/api/org/acme/user/dev?name.first=n"+strconv.Itoa(i), "dev", f.userKey)
		}()
		go func() {
			defer wg.Done()
			send(http.MethodGet, "/api/org/acme/users", "dev", f.userKey)
			send(http.MethodPut, "/api/org/acme/user/dev?active_roles.remove=ADMIN", "admin", f.adminKey)
		}()
	}
	wg.Wait()

	f.srv.mu.RLock()
	defer f.srv.mu.RUnlock()
	_, dev := f.srv.users[userKey("acme", "dev")]
	_, dev2 := f.srv.users[userKey("acme", "dev2")]
	assert.True(t, dev != dev2, "exactly one of dev and dev2 exists")
	assert.Len(t, f.srv.users, 2)
}

func TestThrottle(t *testing.T) {
	f := newFixture(t, Config{RateLimit: 2, RateWindow: time.Minute})
	for range 2 {
		rec := f.do(t, http.MethodGet, "/api/cve-id", "dev", f.userKey, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/api/cve-id", "dev", f.userKey, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, codeRateLimited, decodeError(t, rec).Error)

	rec = f.do(t, http.MethodGet, "/api/cve-id", "admin", f.adminKey, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "limits are per user")
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	req := httptest.NewRequest(http.MethodGet, "/?page=3", nil)
	got, meta, err := paginate(req, items, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, got)
	assert.Equal(t, 3, meta["pageCount"])
	assert.Equal(t, 2, meta["prevPage"])
	assert.Nil(t, meta["nextPage"])

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	got, meta, err = paginate(req, items, 10)
	require.NoError(t, err)
	assert.Equal(t, items, got)
	assert.Empty(t, meta)

	req = httptest.NewRequest(http.MethodGet, "/?page=0", nil)
	_, _, err = paginate(req, items, 2)
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/?page=9", nil)
	got, _, err = paginate(req, items, 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}
