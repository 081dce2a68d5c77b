package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/asrs-service/internal/application"
	"github.com/wms-platform/asrs-service/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendMongoDB, cfg.Store.Backend)
	assert.Equal(t, DispatcherInProcess, cfg.Dispatcher)
	assert.Equal(t, application.DefaultRouteConfig(), cfg.Routing)
	assert.Equal(t, domain.DefaultLayoutGeometry(), cfg.Layout)
	assert.Equal(t, domain.DefaultRobotSpeed, cfg.Robot.DefaultSpeed)
	assert.Equal(t, application.DefaultLockTTL, cfg.Redis.LockTTL)
	assert.Equal(t, application.DefaultExecutorConfig(), cfg.Executor())
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ASRS_STORE_BACKEND", "memory")
	t.Setenv("ASRS_SERVER_ADDR", ":9090")
	t.Setenv("ASRS_ROUTING_FIXEDPICKSECONDS", "20")
	t.Setenv("ASRS_MONITOR_STALLTHRESHOLD", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 20.0, cfg.Routing.FixedPickSeconds)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.StallThreshold)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asrs.yaml")
	body := "dispatcher: temporal\ntemporal:\n  hostPort: temporal:7233\nscoring:\n  unitDistance: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("ASRS_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DispatcherTemporal, cfg.Dispatcher)
	assert.Equal(t, "temporal:7233", cfg.Temporal.HostPort)
	assert.Equal(t, 8.0, cfg.Scoring.UnitDistance)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown backend", env: map[string]string{"ASRS_STORE_BACKEND": "postgres"}},
		{name: "unknown dispatcher", env: map[string]string{"ASRS_DISPATCHER": "cron"}},
		{name: "temporal with memory store", env: map[string]string{"ASRS_DISPATCHER": "temporal", "ASRS_STORE_BACKEND": "memory"}},
		{name: "zero robot speed", env: map[string]string{"ASRS_ROBOT_DEFAULTSPEED": "0"}},
		{name: "negative level height", env: map[string]string{"ASRS_LAYOUT_LEVELHEIGHT": "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("ASRS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
