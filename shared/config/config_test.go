package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600))
	if private != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600))
	}
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := writeConfig(t, "log_level: debug\n", "")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Public.LogLevel)
	assert.Equal(t, 10, cfg.Public.ThreadsPerBoard)
	assert.Equal(t, 3, cfg.Public.RepliesPerPreview)
	assert.Equal(t, DriverMemory, cfg.Public.Storage.Driver)
	assert.Nil(t, cfg.Public.MaxThreadsPerBoard)
	assert.Equal(t, []string{"*"}, cfg.Public.AllowedOrigins)
}

func TestLoad_FullFile(t *testing.T) {
	public := `
http_port: 9000
threads_per_board: 5
replies_per_preview: 2
sanitize_html: true
max_threads_per_board: 100
thread_gc_interval: 30s
storage:
  driver: postgres
  pg:
    host: db
    port: 5433
    user: board
    dbname: anonboard
    sslmode: disable
`
	private := "pg_password: secret\n"
	dir := writeConfig(t, public, private)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Public.HttpPort)
	assert.Equal(t, 5, cfg.Public.ThreadsPerBoard)
	assert.True(t, cfg.Public.SanitizeHTML)
	require.NotNil(t, cfg.Public.MaxThreadsPerBoard)
	assert.Equal(t, 100, *cfg.Public.MaxThreadsPerBoard)
	assert.Equal(t, 30*time.Second, cfg.Public.ThreadGCInterval)
	assert.Equal(t, "secret", cfg.Private.PgPassword)
	assert.Equal(t, "host=db port=5433 user=board password=secret dbname=anonboard sslmode=disable", cfg.PgConnString())
}

func TestLoad_PortEnvOverride(t *testing.T) {
	dir := writeConfig(t, "http_port: 9000\n", "")
	t.Setenv("PORT", "3000")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Public.HttpPort)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		public string
	}{
		{"unknown driver", "storage:\n  driver: mongo\n"},
		{"sqlite without path", "storage:\n  driver: sqlite\n"},
		{"gcs without bucket", "storage:\n  driver: gcs\n"},
		{"zero threads per board", "threads_per_board: 0\n"},
		{"unknown field", "no_such_field: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeConfig(t, tt.public, "")
			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic due to missing public.yaml, got none")
		}
	}()

	_ = MustLoad(t.TempDir())
}
