package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every REVIEWLENS_ env var that Load() reads.
var allConfigKeys = []string{
	"REVIEWLENS_GITHUB_TOKEN",
	"REVIEWLENS_GITHUB_USERNAME",
	"REVIEWLENS_REPO",
	"REVIEWLENS_PR",
	"REVIEWLENS_GIT_DIR",
	"REVIEWLENS_POLL_INTERVAL",
	"REVIEWLENS_LISTEN_ADDR",
	"REVIEWLENS_DB_PATH",
}

// isolateConfigEnv saves and unsets all REVIEWLENS_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REVIEWLENS_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("REVIEWLENS_GITHUB_USERNAME", "testuser")
	t.Setenv("REVIEWLENS_REPO", "octo/widgets")
	t.Setenv("REVIEWLENS_PR", "7")
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("REVIEWLENS_GIT_DIR", "/src/widgets")
	t.Setenv("REVIEWLENS_POLL_INTERVAL", "10m")
	t.Setenv("REVIEWLENS_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("REVIEWLENS_DB_PATH", "/tmp/test.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "testuser", cfg.GitHubUsername)
	assert.Equal(t, "octo/widgets", cfg.RepoFullName)
	assert.Equal(t, 7, cfg.PRNumber)
	assert.Equal(t, "/src/widgets", cfg.GitDir)
	assert.Equal(t, 10*time.Minute, cfg.PollInterval)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ".", cfg.GitDir)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "reviewlens.db", cfg.DBPath)
}

func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWLENS_GITHUB_USERNAME", "testuser")
	t.Setenv("REVIEWLENS_REPO", "octo/widgets")
	t.Setenv("REVIEWLENS_PR", "7")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWLENS_GITHUB_TOKEN")
}

func TestLoad_MissingUsername(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("REVIEWLENS_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("REVIEWLENS_REPO", "octo/widgets")
	t.Setenv("REVIEWLENS_PR", "7")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWLENS_GITHUB_USERNAME")
}

func TestLoad_InvalidRepo(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("REVIEWLENS_REPO", "not-a-repo")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWLENS_REPO")
}

func TestLoad_InvalidPRNumber(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)

	for _, bad := range []string{"zero", "0", "-3"} {
		t.Setenv("REVIEWLENS_PR", bad)

		cfg, err := Load()

		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REVIEWLENS_PR")
	}
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("REVIEWLENS_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVIEWLENS_POLL_INTERVAL")
}
