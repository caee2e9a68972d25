package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ProvisionsUsersAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	cmd := newCommand()
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0", "--user", "admin@acme.test", "--user", "dev@acme.test", "--log-level", "error"})
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.ExecuteContext(ctx))

	assert.Contains(t, out.String(), "CVE_API_URL=http://127.0.0.1:")
	assert.Contains(t, out.String(), "user admin@acme.test API key: ")
	assert.Contains(t, out.String(), "user dev@acme.test API key: ")
}

func TestRun_RequiresAUser(t *testing.T) {
	cmd := newCommand()
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0", "--user", ""})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	require.Error(t, cmd.ExecuteContext(context.Background()))
}
