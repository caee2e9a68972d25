package cveapi

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	xlog "cvelib/internal/log"
)

// page is one response of a paged endpoint. Responses shorter than the
// server's page size carry no pagination attributes at all.
type page struct {
	TotalCount   int                        `json:"totalCount"`
	ItemsPerPage int                        `json:"itemsPerPage"`
	PageCount    int                        `json:"pageCount"`
	CurrentPage  int                        `json:"currentPage"`
	PrevPage     *int                       `json:"prevPage"`
	NextPage     *int                       `json:"nextPage"`
	Data         map[string]json.RawMessage `json:"-"`
}

func (p *page) UnmarshalJSON(b []byte) error {
	type alias page
	if err := json.Unmarshal(b, (*alias)(p)); err != nil {
		return err
	}
	return json.Unmarshal(b, &p.Data)
}

// getPaged fetches path page by page and yields the items found under attr.
// Iteration ends when nextPage is null or absent. The query values are copied
// and never modified.
func getPaged[T any](ctx context.Context, c *Client, path, attr string, query url.Values) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		params := url.Values{}
		for k, v := range query {
			params[k] = append([]string(nil), v...)
		}
		seen := map[int]bool{}

		for {
			var p page
			if err := c.get(ctx, path, params, &p); err != nil {
				yield(zero, err)
				return
			}
			raw, ok := p.Data[attr]
			if !ok {
				yield(zero, fmt.Errorf("cve api %s: response has no %q attribute", path, attr))
				return
			}
			var items []T
			if err := json.Unmarshal(raw, &items); err != nil {
				yield(zero, fmt.Errorf("decode %s %q: %w", path, attr, err))
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}

			if p.NextPage == nil {
				return
			}
			next := *p.NextPage
			if seen[next] {
				yield(zero, fmt.Errorf("cve api %s: pagination loops back to page %d", path, next))
				return
			}
			seen[next] = true
			c.logger.Debug().Str(xlog.FieldPath, path).Int(xlog.FieldPage, next).Msg("fetching next page")
			params.Set("page", strconv.Itoa(next))
		}
	}
}

// Collect drains a paged sequence into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
