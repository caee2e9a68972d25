package cveapi

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"cvelib/internal/domain"
)

func (c *Client) orgPath(parts ...string) string {
	p := "org/" + url.PathEscape(c.org)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// ShowOrg returns the client's organization.
func (c *Client) ShowOrg(ctx context.Context) (domain.Org, error) {
	var out domain.Org
	err := c.get(ctx, c.orgPath(), nil, &out)
	return out, err
}

// Quota returns the organization's CVE ID quota.
func (c *Client) Quota(ctx context.Context) (domain.Quota, error) {
	var out domain.Quota
	err := c.get(ctx, c.orgPath("id_quota"), nil, &out)
	return out, err
}

// ShowUser returns a user of the organization.
func (c *Client) ShowUser(ctx context.Context, username string) (domain.User, error) {
	var out domain.User
	err := c.get(ctx, c.orgPath("user", username), nil, &out)
	return out, err
}

// CreateUser adds a user to the organization.
func (c *Client) CreateUser(ctx context.Context, user domain.NewUser) (domain.NewUserResult, error) {
	var out domain.NewUserResult
	err := c.post(ctx, c.orgPath("user"), nil, user, &out)
	return out, err
}

// UpdateUser applies update to username. Changes travel as query parameters.
func (c *Client) UpdateUser(ctx context.Context, username string, update domain.UserUpdate) (domain.UserChange, error) {
	var out domain.UserChange
	err := c.put(ctx, c.orgPath("user", username), userUpdateQuery(update), nil, &out)
	return out, err
}

func userUpdateQuery(u domain.UserUpdate) url.Values {
	q := url.Values{}
	if u.NewUsername != "" {
		q.Set("new_username", u.NewUsername)
	}
	if u.Name.First != "" {
		q.Set("name.first", u.Name.First)
	}
	if u.Name.Last != "" {
		q.Set("name.last", u.Name.Last)
	}
	if u.Name.Middle != "" {
		q.Set("name.middle", u.Name.Middle)
	}
	if u.Name.Suffix != "" {
		q.Set("name.suffix", u.Name.Suffix)
	}
	if u.Active != nil {
		q.Set("active", strconv.FormatBool(*u.Active))
	}
	for _, r := range u.AddRoles {
		q.Add("active_roles.add", string(r))
	}
	for _, r := range u.RemoveRoles {
		q.Add("active_roles.remove", string(r))
	}
	return q
}

// ResetAPIKey issues a new API secret for username. It is never retried: a
// second reset would invalidate the key returned by the first.
func (c *Client) ResetAPIKey(ctx context.Context, username string) (domain.KeyReset, error) {
	var out domain.KeyReset
	err := c.do(ctx, request{
		method:  http.MethodPut,
		path:    c.orgPath("user", username, "reset_secret"),
		noRetry: true,
	}, &out)
	return out, err
}

// ListUsers yields every user of the organization.
func (c *Client) ListUsers(ctx context.Context) iter.Seq2[domain.User, error] {
	return getPaged[domain.User](ctx, c, c.orgPath("users"), "users", nil)
}
