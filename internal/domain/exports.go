package domain

import (
	interfaces "cvelib/internal/domain/interfaces"
	types "cvelib/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	CveID           = types.CveID
	State           = types.State
	ErrorCode       = types.ErrorCode
	Role            = types.Role
	CveIDInfo       = types.CveIDInfo
	RequestedBy     = types.RequestedBy
	Timestamps      = types.Timestamps
	Reservation     = types.Reservation
	ListFilter      = types.ListFilter
	Count           = types.Count
	Quota           = types.Quota
	StateChange     = types.StateChange
	Org             = types.Org
	Authority       = types.Authority
	OrgPolicies     = types.OrgPolicies
	ReservationMeta = types.ReservationMeta
	Name            = types.Name
	User            = types.User
	NewUser         = types.NewUser
	UserUpdate      = types.UserUpdate
	UserChange      = types.UserChange
	NewUserResult   = types.NewUserResult
	KeyReset        = types.KeyReset
	Container       = types.Container
	RecordResponse  = types.RecordResponse
	Profile         = types.Profile
	SortKey         = types.SortKey
	CveIDDetail     = types.CveIDDetail
	SubmitOptions   = types.SubmitOptions
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RecordAPI    = interfaces.RecordAPI
	CveIDAPI     = interfaces.CveIDAPI
	OrgAPI       = interfaces.OrgAPI
	API          = interfaces.API
	ProfileStore = interfaces.ProfileStore

	RecordService  = interfaces.RecordService
	CveIDService   = interfaces.CveIDService
	AccountService = interfaces.AccountService
)

// Re-exported constants and helpers.
const (
	StateReserved  = types.StateReserved
	StatePublished = types.StatePublished
	StateRejected  = types.StateRejected

	ErrorRecordExists       = types.ErrorRecordExists
	ErrorRecordDoesNotExist = types.ErrorRecordDoesNotExist
	ErrorExceededIDQuota    = types.ErrorExceededIDQuota
	ErrorUnauthorized       = types.ErrorUnauthorized
	ErrorBadInput           = types.ErrorBadInput
	ErrorNotFound           = types.ErrorNotFound

	RoleAdmin = types.RoleAdmin

	SortByCveID    = types.SortByCveID
	SortByState    = types.SortByState
	SortByReserved = types.SortByReserved
)

var (
	ErrInvalidCveID = types.ErrInvalidCveID
	ErrInvalidState = types.ErrInvalidState

	ParseCveID = types.ParseCveID
	ParseState = types.ParseState
	ParseRole  = types.ParseRole
	States     = types.States
	UserRoles  = types.UserRoles

	ParseSortKey = types.ParseSortKey
	SortKeys     = types.SortKeys
)
