package cveapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"cvelib/internal/cveapi"
	"cvelib/internal/devserver"
	"cvelib/internal/domain"
)

const (
	testOrg   = "acme"
	testAdmin = "admin@acme.test"
	testUser  = "dev@acme.test"
)

type env struct {
	srv    *devserver.Server
	ts     *httptest.Server
	admin  *cveapi.Client
	user   *cveapi.Client
	orgRef domain.Org
}

func fastOptions(url string) cveapi.Options {
	return cveapi.Options{
		URL:        url,
		RateLimit:  rate.Inf,
		Backoff:    time.Millisecond,
		MaxBackoff: 5 * time.Millisecond,
	}
}

func newEnv(t *testing.T, cfg devserver.Config) *env {
	t.Helper()
	srv := devserver.New(cfg)
	org := srv.AddOrg(testOrg, "Acme Corp", 10)
	adminKey, err := srv.AddUser(testOrg, testAdmin, true)
	require.NoError(t, err)
	userKey, err := srv.AddUser(testOrg, testUser, false)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	mk := func(user, key string) *cveapi.Client {
		opts := fastOptions(ts.URL + "/api/")
		opts.Username, opts.Org, opts.APIKey = user, testOrg, key
		c, err := cveapi.New(opts)
		require.NoError(t, err)
		return c
	}
	return &env{srv: srv, ts: ts, admin: mk(testAdmin, adminKey), user: mk(testUser, userKey), orgRef: org}
}

func TestResolveURL(t *testing.T) {
	u, err := cveapi.ResolveURL("", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cveawg.mitre.org/api/", u)

	u, err = cveapi.ResolveURL("test", "")
	require.NoError(t, err)
	assert.Equal(t, "https://cveawg-test.mitre.org/api/", u)

	u, err = cveapi.ResolveURL("bogus", "http://localhost:3000/api")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/api/", u)

	_, err = cveapi.ResolveURL("bogus", "")
	assert.ErrorIs(t, err, cveapi.ErrMissingURL)
}

func TestNew_RejectsMissingURL(t *testing.T) {
	_, err := cveapi.New(cveapi.Options{Env: "staging"})
	assert.ErrorIs(t, err, cveapi.ErrMissingURL)

	_, err = cveapi.New(cveapi.Options{URL: "not a url"})
	assert.Error(t, err)
}

func TestEnvNames(t *testing.T) {
	assert.Equal(t, []string{"dev", "prod", "test"}, cveapi.EnvNames())
}

func TestRequest_SendsAuthHeadersAndJoinsPath(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cve_ids":[],"meta":{"remaining_quota":3}}`))
	}))
	defer ts.Close()

	opts := fastOptions(ts.URL + "/api")
	opts.Username, opts.Org, opts.APIKey = "u", "o", "k"
	c, err := cveapi.New(opts)
	require.NoError(t, err)

	res, err := c.Reserve(context.Background(), 1, true, "2024")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Meta.RemainingQuota)

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/cve-id", got.URL.Path)
	assert.Equal(t, "k", got.Header.Get(cveapi.HeaderAPIKey))
	assert.Equal(t, "o", got.Header.Get(cveapi.HeaderAPIOrg))
	assert.Equal(t, "u", got.Header.Get(cveapi.HeaderAPIUser))
	q := got.URL.Query()
	assert.Equal(t, "2024", q.Get("cve_year"))
	assert.Equal(t, "1", q.Get("amount"))
	assert.Equal(t, "o", q.Get("short_name"))
	assert.False(t, q.Has("batch_type"), "batch_type is only sent for multi-ID reservations")
}

func TestReserve_RejectsZeroCount(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	_, err := e.admin.Reserve(context.Background(), 0, false, "2024")
	assert.ErrorIs(t, err, cveapi.ErrInvalidCount)
}

func TestReserve_SequentialBatchAndQuota(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()

	res, err := e.user.Reserve(ctx, 3, false, "2024")
	require.NoError(t, err)
	require.Len(t, res.CveIDs, 3)
	assert.Equal(t, domain.CveID("CVE-2024-1000"), res.CveIDs[0].CveID)
	assert.Equal(t, domain.CveID("CVE-2024-1002"), res.CveIDs[2].CveID)
	assert.Equal(t, 7, res.Meta.RemainingQuota)
	for _, id := range res.CveIDs {
		assert.Equal(t, domain.StateReserved, id.State)
		assert.Equal(t, testUser, id.RequestedBy.User)
	}

	q, err := e.user.Quota(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Quota{IDQuota: 10, TotalReserved: 3, Available: 7}, q)

	_, err = e.user.Reserve(ctx, 8, true, "2024")
	require.Error(t, err)
	assert.True(t, cveapi.IsCode(err, domain.ErrorExceededIDQuota))
	assert.Equal(t, http.StatusForbidden, cveapi.StatusCode(err))
}

func TestPublish_ShowAndDuplicate(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()
	res, err := e.user.Reserve(ctx, 1, false, "2024")
	require.NoError(t, err)
	id := res.CveIDs[0].CveID

	cna := domain.Container{
		"providerMetadata": map[string]any{"orgId": e.orgRef.UUID},
		"descriptions":     []any{map[string]any{"lang": "en", "value": "A bug."}},
	}
	pub, err := e.user.Publish(ctx, id, cna)
	require.NoError(t, err)
	assert.Contains(t, pub.Message, "published")
	assert.Equal(t, "CVE_RECORD", pub.Record()["dataType"])

	info, err := e.user.ShowCveID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePublished, info.State)

	rec, err := e.user.ShowCveRecord(ctx, id)
	require.NoError(t, err)
	meta := rec["cveMetadata"].(map[string]any)
	assert.Equal(t, id.String(), meta["cveId"])

	_, err = e.user.Publish(ctx, id, cna)
	require.Error(t, err)
	assert.True(t, cveapi.IsCode(err, domain.ErrorRecordExists))

	var apiErr *cveapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.MethodPost, apiErr.Method)
	assert.Contains(t, apiErr.URL, "/cve/"+id.String()+"/cna")
	assert.Contains(t, apiErr.Error(), "CVE_RECORD_EXISTS")

	upd, err := e.user.UpdatePublished(ctx, id, domain.Container{"descriptions": []any{}})
	require.NoError(t, err)
	assert.Contains(t, upd.Message, "updated")
}

func TestUpdatePublished_MissingRecord(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()
	res, err := e.user.Reserve(ctx, 1, false, "2024")
	require.NoError(t, err)

	_, err = e.user.UpdatePublished(ctx, res.CveIDs[0].CveID, domain.Container{})
	assert.True(t, cveapi.IsCode(err, domain.ErrorRecordDoesNotExist))
	assert.True(t, cveapi.IsNotFound(err))

	_, err = e.user.ShowCveRecord(ctx, res.CveIDs[0].CveID)
	assert.True(t, cveapi.IsCode(err, domain.ErrorRecordDoesNotExist))
}

func TestRejectAndUpdateRejected(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()
	res, err := e.user.Reserve(ctx, 1, false, "2024")
	require.NoError(t, err)
	id := res.CveIDs[0].CveID

	_, err = e.user.UpdateRejected(ctx, id, domain.Container{})
	assert.True(t, cveapi.IsCode(err, domain.ErrorRecordDoesNotExist))

	rej, err := e.user.Reject(ctx, id, domain.Container{"rejectedReasons": []any{}})
	require.NoError(t, err)
	assert.Contains(t, rej.Message, "rejected")

	_, err = e.user.UpdateRejected(ctx, id, domain.Container{"rejectedReasons": []any{}})
	require.NoError(t, err)

	info, ok := e.srv.CveID(id)
	require.True(t, ok)
	assert.Equal(t, domain.StateRejected, info.State)
}

func TestPublishADP(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()
	res, err := e.user.Reserve(ctx, 1, false, "2024")
	require.NoError(t, err)
	id := res.CveIDs[0].CveID

	_, err = e.user.PublishADP(ctx, id, domain.Container{})
	assert.True(t, cveapi.IsCode(err, domain.ErrorRecordDoesNotExist))

	_, err = e.user.Publish(ctx, id, domain.Container{})
	require.NoError(t, err)
	adp := domain.Container{"providerMetadata": map[string]any{"orgId": e.orgRef.UUID}, "title": "first"}
	_, err = e.user.PublishADP(ctx, id, adp)
	require.NoError(t, err)
	adp["title"] = "second"
	_, err = e.user.PublishADP(ctx, id, adp)
	require.NoError(t, err)

	rec, ok := e.srv.Record(id)
	require.True(t, ok)
	list := rec["containers"].(map[string]any)["adp"].([]any)
	require.Len(t, list, 1, "same org replaces its ADP container")
	assert.Equal(t, "second", list[0].(map[string]any)["title"])
}

func TestMoveState(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()
	res, err := e.user.Reserve(ctx, 2, false, "2024")
	require.NoError(t, err)
	a, b := res.CveIDs[0].CveID, res.CveIDs[1].CveID

	moved, err := e.user.MoveToRejected(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, domain.StateRejected, moved.Updated.State)

	moved, err = e.user.MoveToReserved(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReserved, moved.Updated.State)

	_, err = e.user.Publish(ctx, b, domain.Container{})
	require.NoError(t, err)
	_, err = e.user.MoveToRejected(ctx, b)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, cveapi.StatusCode(err))
}

func TestCountCveRecords(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	ctx := context.Background()
	res, err := e.user.Reserve(ctx, 3, false, "2024")
	require.NoError(t, err)
	_, err = e.user.Publish(ctx, res.CveIDs[0].CveID, domain.Container{})
	require.NoError(t, err)

	all, err := e.user.CountCveRecords(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalCount)

	published, err := e.user.CountCveRecords(ctx, domain.StatePublished)
	require.NoError(t, err)
	assert.Equal(t, 1, published.TotalCount)

	_, err = e.user.CountCveRecords(ctx, domain.StateRejected)
	assert.Equal(t, http.StatusBadRequest, cveapi.StatusCode(err))
}

func TestUnauthorized(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	opts := fastOptions(e.ts.URL + "/api/")
	opts.Username, opts.Org, opts.APIKey = testUser, testOrg, "wrong"
	c, err := cveapi.New(opts)
	require.NoError(t, err)

	_, err = c.ShowOrg(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, cveapi.StatusCode(err))
	assert.True(t, cveapi.IsCode(err, domain.ErrorUnauthorized))
}

func TestPing(t *testing.T) {
	e := newEnv(t, devserver.Config{})
	assert.NoError(t, e.user.Ping(context.Background()))

	opts := fastOptions("http://127.0.0.1:1/api/")
	opts.MaxRetries = -1
	c, err := cveapi.New(opts)
	require.NoError(t, err)
	assert.Error(t, c.Ping(context.Background()))
}

func TestRetry_GetRecoversFromServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id_quota":5,"total_reserved":1,"available":4}`))
	}))
	defer ts.Close()

	c, err := cveapi.New(fastOptions(ts.URL))
	require.NoError(t, err)
	q, err := c.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, q.Available)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetry_HonoursRetryAfterOn429(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"totalCount":2}`))
	}))
	defer ts.Close()

	c, err := cveapi.New(fastOptions(ts.URL))
	require.NoError(t, err)
	n, err := c.CountCveRecords(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, n.TotalCount)
	assert.EqualValues(t, 2, calls.Load())
}

func TestRetry_PostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := cveapi.New(fastOptions(ts.URL))
	require.NoError(t, err)
	_, err = c.Reserve(context.Background(), 1, false, "2024")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, cveapi.StatusCode(err))
	assert.EqualValues(t, 1, calls.Load())

	_, err = c.ResetAPIKey(context.Background(), "someone")
	require.Error(t, err)
	assert.EqualValues(t, 2, calls.Load(), "key resets are never retried")
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	opts := fastOptions(ts.URL)
	opts.Backoff = time.Hour
	opts.MaxBackoff = time.Hour
	c, err := cveapi.New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.ShowOrg(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPIError_NonJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer ts.Close()

	c, err := cveapi.New(fastOptions(ts.URL))
	require.NoError(t, err)
	_, err = c.ShowOrg(context.Background())
	var apiErr *cveapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTeapot, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "teapot", apiErr.Message)
}

func TestAPIError_LongBodyIsCutOnRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("é", 600)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	c, err := cveapi.New(fastOptions(ts.URL))
	require.NoError(t, err)
	_, err = c.ShowOrg(context.Background())
	var apiErr *cveapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, utf8.ValidString(apiErr.Message), "message is valid UTF-8")
	assert.True(t, strings.HasSuffix(apiErr.Message, "..."))
	assert.LessOrEqual(t, len(apiErr.Message), 512+len("..."))
}
