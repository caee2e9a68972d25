package interfaces

import (
	"context"

	domaintypes "cvelib/internal/domain/types"
)

// RecordService prepares containers and submits them as CVE records.
type RecordService interface {
	Publish(ctx context.Context, id domaintypes.CveID, c domaintypes.Container, opts domaintypes.SubmitOptions) (domaintypes.RecordResponse, error)
	UpdatePublished(ctx context.Context, id domaintypes.CveID, c domaintypes.Container, opts domaintypes.SubmitOptions) (domaintypes.RecordResponse, error)
	PublishADP(ctx context.Context, id domaintypes.CveID, c domaintypes.Container, opts domaintypes.SubmitOptions) (domaintypes.RecordResponse, error)
	Reject(ctx context.Context, id domaintypes.CveID, c domaintypes.Container, opts domaintypes.SubmitOptions) (domaintypes.RecordResponse, error)
	UpdateRejected(ctx context.Context, id domaintypes.CveID, c domaintypes.Container, opts domaintypes.SubmitOptions) (domaintypes.RecordResponse, error)
}

// CveIDService reserves and inspects the caller's CVE IDs.
type CveIDService interface {
	Reserve(ctx context.Context, count int, random bool, year string) (domaintypes.Reservation, error)
	Show(ctx context.Context, id domaintypes.CveID, withRecord bool) (domaintypes.CveIDDetail, error)
	ShowMany(ctx context.Context, ids []domaintypes.CveID, withRecord bool) ([]domaintypes.CveIDDetail, error)
	List(ctx context.Context, filter domaintypes.ListFilter, sortBy domaintypes.SortKey) ([]domaintypes.CveIDInfo, error)
	Count(ctx context.Context, state domaintypes.State) (int, error)
	MoveToRejected(ctx context.Context, id domaintypes.CveID) (domaintypes.StateChange, error)
	MoveToReserved(ctx context.Context, id domaintypes.CveID) (domaintypes.StateChange, error)
}

// AccountService manages the caller's organization and users.
type AccountService interface {
	Org(ctx context.Context) (domaintypes.Org, error)
	Quota(ctx context.Context) (domaintypes.Quota, error)
	User(ctx context.Context, username string) (domaintypes.User, error)
	Users(ctx context.Context) ([]domaintypes.User, error)
	CreateUser(ctx context.Context, user domaintypes.NewUser) (domaintypes.NewUserResult, error)
	UpdateUser(ctx context.Context, username string, update domaintypes.UserUpdate) (domaintypes.UserChange, error)
	ResetAPIKey(ctx context.Context, username string) (domaintypes.KeyReset, error)
}
