package configs

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Second, cfg.HTTPClientTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "us-west-2", cfg.AWSRegion)
	assert.Equal(t, time.Hour, cfg.JWKSRefreshInterval)
	assert.Equal(t, slog.LevelInfo, cfg.ParsedLogLevel())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ampgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  user_pool_id: us-east-1_FilePool
  required_scopes:
    - mcp/invoke
aws:
  region: us-east-1
`), 0o644))
	t.Setenv("AMPGATE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-east-1_FilePool", cfg.UserPoolID)
	assert.Equal(t, []string{"mcp/invoke"}, cfg.RequiredScopes)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t,
		"https://cognito-idp.us-east-1.amazonaws.com/us-east-1_FilePool",
		cfg.Issuer())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ampgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  user_pool_id: us-east-1_FilePool
aws:
  region: us-east-1
`), 0o644))
	t.Setenv("AMPGATE_CONFIG_FILE", path)
	t.Setenv("AMPGATE_USER_POOL_ID", "us-west-2_EnvPool")
	t.Setenv("AMPGATE_AWS_REGION", "eu-central-1")
	t.Setenv("AMPGATE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "us-west-2_EnvPool", cfg.UserPoolID)
	assert.Equal(t, "eu-central-1", cfg.AWSRegion)
	assert.Equal(t, slog.LevelDebug, cfg.ParsedLogLevel())
}

func TestLoad_MissingFileFails(t *testing.T) {
	t.Setenv("AMPGATE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestConfig_ExplicitIssuerWins(t *testing.T) {
	cfg := Config{AWSRegion: "us-west-2", UserPoolID: "us-west-2_Pool", CognitoIssuer: "https://issuer.example"}
	assert.Equal(t, "https://issuer.example", cfg.Issuer())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg.UserPoolID = "us-west-2_Pool"
	assert.NoError(t, cfg.Validate())
}

func TestParsedLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		cfg := Config{LogLevel: in}
		assert.Equal(t, want, cfg.ParsedLogLevel(), in)
	}
}
