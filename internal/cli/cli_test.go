package cli

import (
	"bytes"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/fieldcrypt"
)

const cliSecret = "cli-test-secret-0123456789abcdefgh"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestTokenVerifies(t *testing.T) {
	const user = "6f1c2a8e-3b7d-4c51-9a0e-2d4f8b6c1e3a"
	out, err := execute(t, "token", "--user", user, "--secret", cliSecret)
	require.NoError(t, err)

	p := authz.NewResolver(cliSecret, "").Resolve("Bearer " + out)
	assert.True(t, p.IsUser())
	assert.Equal(t, user, p.UserID())
}

func TestTokenBearerAndEnvSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", cliSecret)
	out, err := execute(t, "token", "--bearer")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Bearer "))
	assert.True(t, authz.NewResolver(cliSecret, "").Resolve(out).IsUser())
}

func TestTokenRejectsBadInput(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := execute(t, "token")
	assert.ErrorContains(t, err, "no secret")

	_, err = execute(t, "token", "--secret", cliSecret, "--user", "alice")
	assert.ErrorContains(t, err, "UUID")
}

func TestKeygen(t *testing.T) {
	out, err := execute(t, "keygen")
	require.NoError(t, err)
	_, err = fieldcrypt.ParseKey(out)
	assert.NoError(t, err)
}

func TestMigrateSQLite(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "m.db"))
	t.Setenv("JWT_SECRET", cliSecret)
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))

	envFile := filepath.Join(t.TempDir(), "none.env")
	for i := 0; i < 2; i++ {
		out, err := execute(t, "migrate", "--env-file", envFile)
		require.NoError(t, err)
		assert.Equal(t, "schema applied (sqlite)", out)
	}
}
