package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Deepreo/mathengine/modules/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenCmd(t *testing.T) {
	t.Setenv("MATHENGINE_AUTH_SECRET_KEY", testSecret)

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"token", "--subject", "ci", "--ttl", "1m"})
	require.NoError(t, root.Execute())

	provider := auth.NewJWTTokenProvider(auth.Config{SecretKey: testSecret, Issuer: "mathengine", TokenTTL: time.Minute}, nil)
	principal, err := provider.Validate(strings.TrimSpace(stdout.String()))
	require.NoError(t, err)
	assert.Equal(t, "ci", principal.Subject)
	assert.True(t, principal.HasScope(auth.ScopeWrite))
	assert.Contains(t, stderr.String(), "expires at")
}

func TestTokenCmd_NoSecret(t *testing.T) {
	t.Setenv("MATHENGINE_AUTH_SECRET_KEY", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token"})
	assert.ErrorContains(t, root.Execute(), "secret key")
}
