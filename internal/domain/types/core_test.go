package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvelib/internal/domain/types"
)

func TestParseCveID(t *testing.T) {
	tests := []struct {
		in   string
		want types.CveID
		ok   bool
	}{
		{"CVE-2024-1234", "CVE-2024-1234", true},
		{" cve-2021-123456 ", "CVE-2021-123456", true},
		{"CVE-2024-123", "", false},
		{"CVE-24-1234", "", false},
		{"2024-1234", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := types.ParseCveID(tt.in)
		if !tt.ok {
			require.Error(t, err, tt.in)
			assert.True(t, errors.Is(err, types.ErrInvalidCveID))
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestCveID_Year(t *testing.T) {
	assert.Equal(t, "2023", types.CveID("CVE-2023-0001").Year())
	assert.Equal(t, "", types.CveID("junk").Year())
}

func TestParseState(t *testing.T) {
	s, err := types.ParseState("published")
	require.NoError(t, err)
	assert.Equal(t, types.StatePublished, s)

	_, err = types.ParseState("DELETED")
	assert.ErrorIs(t, err, types.ErrInvalidState)
}

func TestParseRole(t *testing.T) {
	r, err := types.ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, r)

	_, err = types.ParseRole("root")
	assert.Error(t, err)
}

func TestNameFull(t *testing.T) {
	n := types.Name{First: "Ada", Middle: "K", Last: "Lovelace"}
	assert.Equal(t, "Ada K Lovelace", n.Full())
	assert.Equal(t, "", types.Name{}.Full())
}

func TestUserUpdateIsEmpty(t *testing.T) {
	assert.True(t, types.UserUpdate{}.IsEmpty())
	active := false
	assert.False(t, types.UserUpdate{Active: &active}.IsEmpty())
	assert.False(t, types.UserUpdate{Name: types.Name{Last: "X"}}.IsEmpty())
}

func TestRecordResponseRecord(t *testing.T) {
	r := types.RecordResponse{Updated: types.Container{"a": 1}}
	assert.Equal(t, types.Container{"a": 1}, r.Record())
	r.Created = types.Container{"b": 2}
	assert.Equal(t, types.Container{"b": 2}, r.Record())
}

func TestCveID_Compare(t *testing.T) {
	assert.Equal(t, -1, types.CveID("CVE-2024-9999").Compare("CVE-2024-10000"))
	assert.Equal(t, 1, types.CveID("CVE-2025-0001").Compare("CVE-2024-10000"))
	assert.Equal(t, 0, types.CveID("CVE-2024-0001").Compare("CVE-2024-0001"))
}
