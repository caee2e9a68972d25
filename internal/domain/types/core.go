package types

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCveID is returned when a string is not a well-formed CVE ID.
var ErrInvalidCveID = errors.New("invalid CVE ID")

// ErrInvalidState is returned when a string does not name a CVE ID state.
var ErrInvalidState = errors.New("invalid CVE ID state")

var cveIDPattern = regexp.MustCompile(`^CVE-\d{4}-\d{4,}$`)

// CveID is a CVE identifier such as CVE-2024-1234.
type CveID string

// String returns the string form of the CVE ID.
func (id CveID) String() string { return string(id) }

// Year returns the year segment of the CVE ID.
func (id CveID) Year() string {
	parts := strings.SplitN(string(id), "-", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Compare orders CVE IDs by year and then by sequence number, so that
// CVE-2024-9999 sorts before CVE-2024-10000. Malformed IDs compare as strings.
func (id CveID) Compare(other CveID) int {
	ay, an, aok := id.parts()
	by, bn, bok := other.parts()
	if !aok || !bok {
		return strings.Compare(string(id), string(other))
	}
	if c := cmp.Compare(ay, by); c != 0 {
		return c
	}
	return cmp.Compare(an, bn)
}

func (id CveID) parts() (year, seq int, ok bool) {
	p := strings.SplitN(string(id), "-", 3)
	if len(p) != 3 {
		return 0, 0, false
	}
	y, err := strconv.Atoi(p[1])
	if err != nil {
		return 0, 0, false
	}
	n, err := strconv.Atoi(p[2])
	if err != nil {
		return 0, 0, false
	}
	return y, n, true
}

// ParseCveID trims and upper-cases s and checks it against the CVE ID format.
func ParseCveID(s string) (CveID, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if !cveIDPattern.MatchString(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCveID, s)
	}
	return CveID(v), nil
}

// State is the lifecycle state of a CVE ID.
type State string

const (
	StateReserved  State = "RESERVED"
	StatePublished State = "PUBLISHED"
	StateRejected  State = "REJECTED"
)

// States lists every known state in lifecycle order.
func States() []State {
	return []State{StateReserved, StatePublished, StateRejected}
}

// String returns the string form of the state.
func (s State) String() string { return string(s) }

// ParseState matches s case-insensitively against the known states.
func ParseState(s string) (State, error) {
	v := State(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range States() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// ErrorCode is the machine-readable "error" field of a CVE Services error body.
type ErrorCode string

const (
	ErrorRecordExists       ErrorCode = "CVE_RECORD_EXISTS"
	ErrorRecordDoesNotExist ErrorCode = "CVE_RECORD_DNE"
	ErrorExceededIDQuota    ErrorCode = "EXCEEDED_ID_QUOTA"
	ErrorUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorBadInput           ErrorCode = "BAD_INPUT"
	ErrorNotFound           ErrorCode = "NOT_FOUND"
)

// String returns the string form of the error code.
func (c ErrorCode) String() string { return string(c) }

// Role is a user role granted by the organization.
type Role string

// RoleAdmin is the only role a CNA can assign to its users.
const RoleAdmin Role = "ADMIN"

// UserRoles lists the assignable user roles.
func UserRoles() []Role { return []Role{RoleAdmin} }

// ParseRole matches s case-insensitively against the assignable roles.
func ParseRole(s string) (Role, error) {
	v := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range UserRoles() {
		if v == r {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}
