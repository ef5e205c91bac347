package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/typed-eventstore-go/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func Test_Load_Defaults(t *testing.T) {
	// setup
	t.Setenv(config.EnvConfigDir, t.TempDir())

	// act
	cfg, err := config.Load("")

	// assert
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, config.AdapterPGX, cfg.Storage.Postgres.Adapter)
	assert.Equal(t, int32(20), cfg.Storage.Postgres.MaxConns)
	assert.Equal(t, "1.0", cfg.Events.SpecVersion)
	assert.Equal(t, config.MetricsPrometheus, cfg.Telemetry.Metrics)
}

func Test_Load_FileAndEnvironment(t *testing.T) {
	// setup
	path := writeConfig(t, `
server:
  addr: ":9090"
  write_timeout: 30s
storage:
  backend: postgres
  postgres:
    adapter: sqlx
    table: tenant_events
logging:
  level: debug
`)
	t.Setenv("EVENTS_STORAGE_POSTGRES_ADAPTER", "sql")
	t.Setenv("EVENTS_LOGGING_FORMAT", "text")

	// act
	cfg, err := config.Load(path)

	// assert
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, config.BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, config.AdapterSQL, cfg.Storage.Postgres.Adapter)
	assert.Equal(t, "tenant_events", cfg.Storage.Postgres.Table)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func Test_Load_MissingFileUsesDefaults(t *testing.T) {
	// act
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Storage.Backend)
}

func Test_Load_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{
			name:    "unknown backend",
			content: "storage:\n  backend: cassandra\n",
			message: "storage.backend",
		},
		{
			name:    "unknown adapter",
			content: "storage:\n  backend: postgres\n  postgres:\n    adapter: gorm\n",
			message: "storage.postgres.adapter",
		},
		{
			name:    "unknown metrics exporter",
			content: "telemetry:\n  metrics: statsd\n",
			message: "telemetry.metrics",
		},
		{
			name:    "malformed yaml",
			content: "server: [",
			message: "failed to read config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// act
			_, err := config.Load(writeConfig(t, tt.content))

			// assert
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func Test_Config_YAMLRedactsSecrets(t *testing.T) {
	// setup
	path := writeConfig(t, `
storage:
  postgres:
    dsn: postgres://events:s3cret@db:5432/events
  opensearch:
    password: hunter2
  redis:
    url: redis://:r3dis@cache:6379/0
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	// act
	rendered, err := cfg.YAML()

	// assert
	require.NoError(t, err)
	assert.NotContains(t, string(rendered), "s3cret")
	assert.NotContains(t, string(rendered), "hunter2")
	assert.NotContains(t, string(rendered), "r3dis")
	assert.Contains(t, string(rendered), "postgres://events:******@db:5432/events")

	var roundTrip map[string]any
	require.NoError(t, yaml.Unmarshal(rendered, &roundTrip))
	assert.Equal(t, "15s", roundTrip["server"].(map[string]any)["read_timeout"])
}
