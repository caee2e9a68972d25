package accounts_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"cvelib/internal/cveapi"
	"cvelib/internal/devserver"
	"cvelib/internal/domain"
	"cvelib/internal/services/accounts"
)

func newService(t *testing.T, user string, admin bool) *accounts.Service {
	t.Helper()
	quiet := zerolog.Nop()
	srv := devserver.New(devserver.Config{PageSize: 1, Logger: &quiet})
	srv.AddOrg("acme", "Acme", 5)
	key, err := srv.AddUser("acme", user, admin)
	require.NoError(t, err)
	_, err = srv.AddUser("acme", "aaron", false)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	client, err := cveapi.New(cveapi.Options{
		URL: ts.URL + "/api/", Username: user, Org: "acme", APIKey: key,
		RateLimit: rate.Inf, Backoff: time.Millisecond,
	})
	require.NoError(t, err)
	return accounts.New(client, user)
}

func TestOrgAndQuota(t *testing.T) {
	svc := newService(t, "zed", true)
	org, err := svc.Org(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme", org.ShortName)

	q, err := svc.Quota(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, q.IDQuota)
	assert.Equal(t, 5, q.Available)
}

func TestUserDefaultsToSelf(t *testing.T) {
	svc := newService(t, "zed", false)
	u, err := svc.User(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "zed", u.Username)

	u, err = svc.User(context.Background(), "aaron")
	require.NoError(t, err)
	assert.Equal(t, "aaron", u.Username)
}

func TestUsersAreSorted(t *testing.T) {
	svc := newService(t, "zed", true)
	_, err := svc.CreateUser(context.Background(), domain.NewUser{Username: "mia"})
	require.NoError(t, err)

	users, err := svc.Users(context.Background())
	require.NoError(t, err)
	names := []string{}
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"aaron", "mia", "zed"}, names)
}

func TestCreateAndUpdateValidation(t *testing.T) {
	svc := newService(t, "zed", true)
	_, err := svc.CreateUser(context.Background(), domain.NewUser{Username: "  "})
	assert.ErrorIs(t, err, accounts.ErrNoUsername)

	_, err = svc.UpdateUser(context.Background(), "aaron", domain.UserUpdate{})
	assert.ErrorIs(t, err, accounts.ErrNoChanges)

	res, err := svc.UpdateUser(context.Background(), "aaron", domain.UserUpdate{Name: domain.Name{Last: "Smith"}})
	require.NoError(t, err)
	assert.Equal(t, "Smith", res.Updated.Name.Last)
}

func TestResetAPIKey(t *testing.T) {
	svc := newService(t, "zed", false)
	res, err := svc.ResetAPIKey(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.APISecret)

	_, err = svc.ResetAPIKey(context.Background(), "aaron")
	assert.Equal(t, 403, cveapi.StatusCode(err))
}
