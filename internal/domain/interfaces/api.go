package interfaces

import (
	"context"
	"iter"

	domaintypes "cvelib/internal/domain/types"
)

// RecordAPI publishes and rejects CVE records.
type RecordAPI interface {
	Publish(ctx context.Context, id domaintypes.CveID, cna domaintypes.Container) (domaintypes.RecordResponse, error)
	UpdatePublished(ctx context.Context, id domaintypes.CveID, cna domaintypes.Container) (domaintypes.RecordResponse, error)
	PublishADP(ctx context.Context, id domaintypes.CveID, adp domaintypes.Container) (domaintypes.RecordResponse, error)
	Reject(ctx context.Context, id domaintypes.CveID, cna domaintypes.Container) (domaintypes.RecordResponse, error)
	UpdateRejected(ctx context.Context, id domaintypes.CveID, cna domaintypes.Container) (domaintypes.RecordResponse, error)
	ShowCveRecord(ctx context.Context, id domaintypes.CveID) (domaintypes.Container, error)
}

// CveIDAPI reserves, inspects and moves CVE IDs.
type CveIDAPI interface {
	Reserve(ctx context.Context, count int, random bool, year string) (domaintypes.Reservation, error)
	ShowCveID(ctx context.Context, id domaintypes.CveID) (domaintypes.CveIDInfo, error)
	ListCveIDs(ctx context.Context, filter domaintypes.ListFilter) iter.Seq2[domaintypes.CveIDInfo, error]
	CountCveRecords(ctx context.Context, state domaintypes.State) (domaintypes.Count, error)
	MoveToRejected(ctx context.Context, id domaintypes.CveID) (domaintypes.StateChange, error)
	MoveToReserved(ctx context.Context, id domaintypes.CveID) (domaintypes.StateChange, error)
}

// OrgAPI manages the caller's organization and its users.
type OrgAPI interface {
	ShowOrg(ctx context.Context) (domaintypes.Org, error)
	Quota(ctx context.Context) (domaintypes.Quota, error)
	ShowUser(ctx context.Context, username string) (domaintypes.User, error)
	CreateUser(ctx context.Context, user domaintypes.NewUser) (domaintypes.NewUserResult, error)
	UpdateUser(ctx context.Context, username string, update domaintypes.UserUpdate) (domaintypes.UserChange, error)
	ResetAPIKey(ctx context.Context, username string) (domaintypes.KeyReset, error)
	ListUsers(ctx context.Context) iter.Seq2[domaintypes.User, error]
}

// API is the full CVE Services surface used by the CLI.
type API interface {
	RecordAPI
	CveIDAPI
	OrgAPI
	Ping(ctx context.Context) error
}
