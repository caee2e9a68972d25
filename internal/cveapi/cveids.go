package cveapi

import (
	"context"
	"iter"
	"net/url"
	"strconv"
	"time"

	"cvelib/internal/domain"
)

func cveIDPath(id domain.CveID) string { return "cve-id/" + url.PathEscape(id.String()) }

// Reserve reserves count CVE IDs in year for the client's organization. Batch
// ordering is only sent for multi-ID requests.
func (c *Client) Reserve(ctx context.Context, count int, random bool, year string) (domain.Reservation, error) {
	var out domain.Reservation
	if count < 1 {
		return out, ErrInvalidCount
	}
	q := url.Values{}
	q.Set("cve_year", year)
	q.Set("amount", strconv.Itoa(count))
	q.Set("short_name", c.org)
	if count > 1 {
		if random {
			q.Set("batch_type", "nonsequential")
		} else {
			q.Set("batch_type", "sequential")
		}
	}
	err := c.post(ctx, "cve-id", q, nil, &out)
	return out, err
}

// ShowCveID returns the API's view of a single CVE ID.
func (c *Client) ShowCveID(ctx context.Context, id domain.CveID) (domain.CveIDInfo, error) {
	var out domain.CveIDInfo
	err := c.get(ctx, cveIDPath(id), nil, &out)
	return out, err
}

// ListCveIDs yields the organization's CVE IDs matching filter.
func (c *Client) ListCveIDs(ctx context.Context, filter domain.ListFilter) iter.Seq2[domain.CveIDInfo, error] {
	q := url.Values{}
	if filter.Year != "" {
		q.Set("cve_id_year", filter.Year)
	}
	if filter.State != "" {
		q.Set("state", string(filter.State))
	}
	if !filter.ReservedLT.IsZero() {
		q.Set("time_reserved.lt", filter.ReservedLT.UTC().Format(time.RFC3339))
	}
	if !filter.ReservedGT.IsZero() {
		q.Set("time_reserved.gt", filter.ReservedGT.UTC().Format(time.RFC3339))
	}
	return getPaged[domain.CveIDInfo](ctx, c, "cve-id", "cve_ids", q)
}

// CountCveRecords counts CVE records, optionally restricted to one state.
// CVE Services only counts RESERVED and PUBLISHED records.
func (c *Client) CountCveRecords(ctx context.Context, state domain.State) (domain.Count, error) {
	var out domain.Count
	q := url.Values{}
	if state != "" {
		q.Set("state", string(state))
	}
	err := c.get(ctx, "cve_count", q, &out)
	return out, err
}

// MoveToRejected moves a RESERVED id to REJECTED without a record. It is
// refused for PUBLISHED ids.
func (c *Client) MoveToRejected(ctx context.Context, id domain.CveID) (domain.StateChange, error) {
	return c.moveState(ctx, id, domain.StateRejected)
}

// MoveToReserved moves a record-less REJECTED id back to RESERVED. It is
// refused for PUBLISHED ids.
func (c *Client) MoveToReserved(ctx context.Context, id domain.CveID) (domain.StateChange, error) {
	return c.moveState(ctx, id, domain.StateReserved)
}

func (c *Client) moveState(ctx context.Context, id domain.CveID, state domain.State) (domain.StateChange, error) {
	var out domain.StateChange
	q := url.Values{}
	q.Set("state", string(state))
	err := c.put(ctx, cveIDPath(id), q, nil, &out)
	return out, err
}
