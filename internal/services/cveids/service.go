package cveids

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"cvelib/internal/cveapi"
	"cvelib/internal/domain"
	xlog "cvelib/internal/log"
)

// DefaultConcurrency bounds the requests ShowMany keeps in flight.
const DefaultConcurrency = 4

// RecordSource fetches full CVE records.
type RecordSource interface {
	ShowCveRecord(ctx context.Context, id domain.CveID) (domain.Container, error)
}

// Service works with CVE IDs through the CVE Services API.
type Service struct {
	api         domain.CveIDAPI
	records     RecordSource
	now         func() time.Time
	concurrency int
}

// Option customises a Service.
type Option func(*Service)

// WithClock sets the clock used to pick the default reservation year.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithConcurrency bounds the parallel lookups made by ShowMany.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New returns a CVE ID service.
func New(api domain.CveIDAPI, records RecordSource, opts ...Option) *Service {
	s := &Service{api: api, records: records, now: time.Now, concurrency: DefaultConcurrency}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Reserve reserves count ids for year, or for the current year when year is empty.
func (s *Service) Reserve(ctx context.Context, count int, random bool, year string) (domain.Reservation, error) {
	if year == "" {
		year = strconv.Itoa(s.now().Year())
	}
	res, err := s.api.Reserve(ctx, count, random, year)
	if err != nil {
		return domain.Reservation{}, err
	}
	logger := xlog.WithComponentFromContext(ctx, "cveids")
	logger.Info().
		Str(xlog.FieldEvent, "cve_id.reserve").
		Int("count", len(res.CveIDs)).
		Int("remaining_quota", res.Meta.RemainingQuota).
		Msg("reserved CVE IDs")
	return res, nil
}

// Show returns one id. With withRecord set, the record of a PUBLISHED or
// REJECTED id is fetched as well; an id without a record is not an error.
func (s *Service) Show(ctx context.Context, id domain.CveID, withRecord bool) (domain.CveIDDetail, error) {
	info, err := s.api.ShowCveID(ctx, id)
	if err != nil {
		return domain.CveIDDetail{}, err
	}
	detail := domain.CveIDDetail{Info: info}
	if !withRecord || info.State == domain.StateReserved {
		return detail, nil
	}
	rec, err := s.records.ShowCveRecord(ctx, id)
	switch {
	case cveapi.IsNotFound(err):
	case err != nil:
		return domain.CveIDDetail{}, err
	default:
		detail.Record = rec
	}
	return detail, nil
}

// ShowMany looks up ids concurrently and returns them in the order given.
// The first failure cancels the remaining lookups.
func (s *Service) ShowMany(ctx context.Context, ids []domain.CveID, withRecord bool) ([]domain.CveIDDetail, error) {
	out := make([]domain.CveIDDetail, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			d, err := s.Show(gctx, id, withRecord)
			if err != nil {
				return err
			}
			out[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// List collects every id matching filter, sorted by sortBy (cve_id when empty).
func (s *Service) List(ctx context.Context, filter domain.ListFilter, sortBy domain.SortKey) ([]domain.CveIDInfo, error) {
	var out []domain.CveIDInfo
	for info, err := range s.api.ListCveIDs(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	Sort(out, sortBy)
	return out, nil
}

// Sort orders infos in place by key. Ties fall back to CVE ID order.
func Sort(infos []domain.CveIDInfo, key domain.SortKey) {
	byID := func(a, b domain.CveIDInfo) int { return a.CveID.Compare(b.CveID) }
	switch key {
	case domain.SortByState:
		slices.SortStableFunc(infos, func(a, b domain.CveIDInfo) int {
			return cmp.Or(cmp.Compare(a.State, b.State), byID(a, b))
		})
	case domain.SortByReserved:
		slices.SortStableFunc(infos, func(a, b domain.CveIDInfo) int {
			return cmp.Or(a.Reserved.Compare(b.Reserved), byID(a, b))
		})
	default:
		slices.SortStableFunc(infos, byID)
	}
}

// Count returns the number of records in state, or all records when state is empty.
func (s *Service) Count(ctx context.Context, state domain.State) (int, error) {
	c, err := s.api.CountCveRecords(ctx, state)
	if err != nil {
		return 0, err
	}
	return c.TotalCount, nil
}

// MoveToRejected rejects a reserved id that has no record.
func (s *Service) MoveToRejected(ctx context.Context, id domain.CveID) (domain.StateChange, error) {
	return s.move(ctx, id, domain.StateRejected, s.api.MoveToRejected)
}

// MoveToReserved returns a record-less REJECTED id to RESERVED.
func (s *Service) MoveToReserved(ctx context.Context, id domain.CveID) (domain.StateChange, error) {
	return s.move(ctx, id, domain.StateReserved, s.api.MoveToReserved)
}

func (s *Service) move(ctx context.Context, id domain.CveID, to domain.State, fn func(context.Context, domain.CveID) (domain.StateChange, error)) (domain.StateChange, error) {
	res, err := fn(ctx, id)
	if err != nil {
		return domain.StateChange{}, err
	}
	logger := xlog.WithComponentFromContext(ctx, "cveids")
	logger.Info().
		Str(xlog.FieldEvent, "cve_id.move").
		Str(xlog.FieldCveID, id.String()).
		Str(xlog.FieldState, to.String()).
		Msg("CVE ID state changed")
	return res, nil
}

// Compile-time assertion that Service implements domain.CveIDService.
var _ domain.CveIDService = (*Service)(nil)
