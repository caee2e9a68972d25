package records

import (
	"context"
	"fmt"
	"sync"

	"cvelib/internal/domain"
	xlog "cvelib/internal/log"
	"cvelib/internal/record"
)

// OrgSource looks up the caller's organization.
type OrgSource interface {
	ShowOrg(ctx context.Context) (domain.Org, error)
}

// Service submits CVE records on behalf of the configured user.
type Service struct {
	api       domain.RecordAPI
	orgs      OrgSource
	generator string

	mu    sync.Mutex
	orgID string
}

// New returns a record service. generator is the x_generator engine name;
// record.GeneratorDisabled leaves the field off.
func New(api domain.RecordAPI, orgs OrgSource, generator string) *Service {
	return &Service{api: api, orgs: orgs, generator: generator}
}

type submission struct {
	op      string
	extract func(domain.Container) (domain.Container, error)
	schema  record.Schema
	send    func(context.Context, domain.CveID, domain.Container) (domain.RecordResponse, error)
}

// Publish creates the CVE record for a RESERVED id from a CNA container.
func (s *Service) Publish(ctx context.Context, id domain.CveID, c domain.Container, opts domain.SubmitOptions) (domain.RecordResponse, error) {
	return s.submit(ctx, id, c, opts, submission{
		op:      "publish",
		extract: record.ExtractCNAContainer,
		schema:  record.SchemaCNAPublished,
		send:    s.api.Publish,
	})
}

// UpdatePublished replaces the CNA container of a published record.
func (s *Service) UpdatePublished(ctx context.Context, id domain.CveID, c domain.Container, opts domain.SubmitOptions) (domain.RecordResponse, error) {
	return s.submit(ctx, id, c, opts, submission{
		op:      "update published",
		extract: record.ExtractCNAContainer,
		schema:  record.SchemaCNAPublished,
		send:    s.api.UpdatePublished,
	})
}

// PublishADP adds or replaces the caller's ADP container on a published record.
func (s *Service) PublishADP(ctx context.Context, id domain.CveID, c domain.Container, opts domain.SubmitOptions) (domain.RecordResponse, error) {
	return s.submit(ctx, id, c, opts, submission{
		op:      "publish ADP",
		extract: record.ExtractADPContainer,
		schema:  record.SchemaADP,
		send:    s.api.PublishADP,
	})
}

// Reject creates a REJECTED record for an id that has none.
func (s *Service) Reject(ctx context.Context, id domain.CveID, c domain.Container, opts domain.SubmitOptions) (domain.RecordResponse, error) {
	return s.submit(ctx, id, c, opts, submission{
		op:      "reject",
		extract: record.ExtractCNAContainer,
		schema:  record.SchemaCNARejected,
		send:    s.api.Reject,
	})
}

// UpdateRejected replaces the CNA container of a rejected record.
func (s *Service) UpdateRejected(ctx context.Context, id domain.CveID, c domain.Container, opts domain.SubmitOptions) (domain.RecordResponse, error) {
	return s.submit(ctx, id, c, opts, submission{
		op:      "update rejected",
		extract: record.ExtractCNAContainer,
		schema:  record.SchemaCNARejected,
		send:    s.api.UpdateRejected,
	})
}

func (s *Service) submit(ctx context.Context, id domain.CveID, c domain.Container, opts domain.SubmitOptions, sub submission) (domain.RecordResponse, error) {
	logger := xlog.WithComponentFromContext(ctx, "records")

	prepared, err := s.Prepare(ctx, c, sub.extract)
	if err != nil {
		return domain.RecordResponse{}, fmt.Errorf("%s %s: %w", sub.op, id, err)
	}
	if opts.SkipValidation {
		logger.Debug().Str(xlog.FieldCveID, id.String()).Msg("schema validation skipped")
	} else if err := record.Validate(prepared, sub.schema); err != nil {
		return domain.RecordResponse{}, err
	}

	res, err := sub.send(ctx, id, prepared)
	if err != nil {
		return domain.RecordResponse{}, err
	}
	logger.Info().
		Str(xlog.FieldEvent, "record."+sub.op).
		Str(xlog.FieldCveID, id.String()).
		Msg("record submitted")
	return res, nil
}

// Prepare extracts the container from c and adds provider metadata and the
// generator block. c is not modified.
func (s *Service) Prepare(ctx context.Context, c domain.Container, extract func(domain.Container) (domain.Container, error)) (domain.Container, error) {
	container, err := extract(c)
	if err != nil {
		return nil, err
	}
	container, err = record.AddProviderMetadata(ctx, container, s.lookupOrgID)
	if err != nil {
		return nil, err
	}
	return record.AddGenerator(container, s.generator), nil
}

// lookupOrgID fetches the org UUID once and reuses it afterwards.
func (s *Service) lookupOrgID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orgID != "" {
		return s.orgID, nil
	}
	org, err := s.orgs.ShowOrg(ctx)
	if err != nil {
		return "", err
	}
	s.orgID = org.UUID
	return s.orgID, nil
}

// Compile-time assertion that Service implements domain.RecordService.
var _ domain.RecordService = (*Service)(nil)
