package accounts

import (
	"context"
	"errors"
	"slices"
	"strings"

	"cvelib/internal/domain"
	xlog "cvelib/internal/log"
)

var (
	// ErrNoChanges is returned by UpdateUser when the update is empty.
	ErrNoChanges = errors.New("no user changes requested")
	// ErrNoUsername is returned when a new user has no username.
	ErrNoUsername = errors.New("username is required")
)

// Service wraps the organization endpoints of CVE Services.
type Service struct {
	api      domain.OrgAPI
	username string
}

// New returns an account service acting as username.
func New(api domain.OrgAPI, username string) *Service {
	return &Service{api: api, username: username}
}

func (s *Service) target(username string) string {
	if username == "" {
		return s.username
	}
	return username
}

// Org returns the caller's organization.
func (s *Service) Org(ctx context.Context) (domain.Org, error) { return s.api.ShowOrg(ctx) }

// Quota returns the organization's CVE ID quota.
func (s *Service) Quota(ctx context.Context) (domain.Quota, error) { return s.api.Quota(ctx) }

// User returns one user of the organization.
func (s *Service) User(ctx context.Context, username string) (domain.User, error) {
	return s.api.ShowUser(ctx, s.target(username))
}

// Users lists the organization's users sorted by username.
func (s *Service) Users(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	for u, err := range s.api.ListUsers(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b domain.User) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}

// CreateUser adds a user to the organization.
func (s *Service) CreateUser(ctx context.Context, user domain.NewUser) (domain.NewUserResult, error) {
	if strings.TrimSpace(user.Username) == "" {
		return domain.NewUserResult{}, ErrNoUsername
	}
	res, err := s.api.CreateUser(ctx, user)
	if err != nil {
		return domain.NewUserResult{}, err
	}
	logger := xlog.WithComponentFromContext(ctx, "accounts")
	logger.Info().
		Str(xlog.FieldEvent, "user.create").
		Str(xlog.FieldUser, user.Username).
		Msg("user created")
	return res, nil
}

// UpdateUser applies update to username.
func (s *Service) UpdateUser(ctx context.Context, username string, update domain.UserUpdate) (domain.UserChange, error) {
	if update.IsEmpty() {
		return domain.UserChange{}, ErrNoChanges
	}
	name := s.target(username)
	res, err := s.api.UpdateUser(ctx, name, update)
	if err != nil {
		return domain.UserChange{}, err
	}
	logger := xlog.WithComponentFromContext(ctx, "accounts")
	logger.Info().
		Str(xlog.FieldEvent, "user.update").
		Str(xlog.FieldUser, name).
		Msg("user updated")
	return res, nil
}

// ResetAPIKey issues a new API key for username. The old key stops working
// immediately.
func (s *Service) ResetAPIKey(ctx context.Context, username string) (domain.KeyReset, error) {
	name := s.target(username)
	res, err := s.api.ResetAPIKey(ctx, name)
	if err != nil {
		return domain.KeyReset{}, err
	}
	logger := xlog.WithComponentFromContext(ctx, "accounts")
	logger.Info().
		Str(xlog.FieldEvent, "user.reset_key").
		Str(xlog.FieldUser, name).
		Msg("API key reset")
	return res, nil
}

// Compile-time assertion that Service implements domain.AccountService.
var _ domain.AccountService = (*Service)(nil)
