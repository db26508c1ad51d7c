package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerCmdLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pokertables.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
  port       = 9000
  jwt_secret = "from-file"
}

table "micro" {
  seats       = 4
  small_blind = 1
  big_blind   = 2
}
`), 0o600))

	seed := int64(99)
	cmd := ServerCmd{Config: path, Address: "0.0.0.0", LogLevel: "debug", Seed: &seed}
	cfg, err := cmd.load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "from-file", cfg.Server.JWTSecret)
	assert.Equal(t, int64(99), cfg.Server.Seed)
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, 200, cfg.Tables[0].InitialBalance)
}

func TestServerCmdLoadRejectsBadOverride(t *testing.T) {
	cmd := ServerCmd{Config: filepath.Join(t.TempDir(), "absent.hcl"), TokenTTL: "whenever"}
	_, err := cmd.load()
	assert.ErrorContains(t, err, "token_ttl")
}
