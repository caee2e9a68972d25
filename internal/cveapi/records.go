package cveapi

import (
	"context"
	"net/url"

	"cvelib/internal/domain"
)

func cvePath(id domain.CveID, suffix string) string {
	p := "cve/" + url.PathEscape(id.String())
	if suffix != "" {
		p += "/" + suffix
	}
	return p
}

// Publish creates the CVE record for a RESERVED id from a CNA container.
func (c *Client) Publish(ctx context.Context, id domain.CveID, cna domain.Container) (domain.RecordResponse, error) {
	var out domain.RecordResponse
	err := c.post(ctx, cvePath(id, "cna"), nil, map[string]any{"cnaContainer": cna}, &out)
	return out, err
}

// UpdatePublished replaces the CNA container of a PUBLISHED record.
func (c *Client) UpdatePublished(ctx context.Context, id domain.CveID, cna domain.Container) (domain.RecordResponse, error) {
	var out domain.RecordResponse
	err := c.put(ctx, cvePath(id, "cna"), nil, map[string]any{"cnaContainer": cna}, &out)
	return out, err
}

// PublishADP adds or replaces the caller's ADP container on a record.
func (c *Client) PublishADP(ctx context.Context, id domain.CveID, adp domain.Container) (domain.RecordResponse, error) {
	var out domain.RecordResponse
	err := c.put(ctx, cvePath(id, "adp"), nil, map[string]any{"adpContainer": adp}, &out)
	return out, err
}

// Reject creates a REJECTED record for id from a rejected CNA container.
func (c *Client) Reject(ctx context.Context, id domain.CveID, cna domain.Container) (domain.RecordResponse, error) {
	var out domain.RecordResponse
	err := c.post(ctx, cvePath(id, "reject"), nil, map[string]any{"cnaContainer": cna}, &out)
	return out, err
}

// UpdateRejected replaces the CNA container of a REJECTED record.
func (c *Client) UpdateRejected(ctx context.Context, id domain.CveID, cna domain.Container) (domain.RecordResponse, error) {
	var out domain.RecordResponse
	err := c.put(ctx, cvePath(id, "reject"), nil, map[string]any{"cnaContainer": cna}, &out)
	return out, err
}

// ShowCveRecord returns the full CVE JSON 5 record for id.
func (c *Client) ShowCveRecord(ctx context.Context, id domain.CveID) (domain.Container, error) {
	var out domain.Container
	err := c.get(ctx, cvePath(id, ""), nil, &out)
	return out, err
}
