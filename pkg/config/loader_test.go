package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrameworkConfig(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "test.yaml", `
dagsched:
  general:
    instance_name: "test-sched"
    log_level: "debug"
    env: "test"
  analysis:
    processors: 2
    workers: 4
    timeout: "30s"
    max_depth: 100
    early_exit: false
    verbose: true
    engine:
      type: "nptest"
      binary: "/opt/np/nptest"
  storage:
    database:
      type: "sqlite"
      dsn: "./test.db"
      max_open_conns: 5
      conn_max_lifetime: "1h"
    cache:
      enabled: true
      size: 16
  server:
    port: 9090
  schedule:
    enabled: true
    entries:
      - name: nightly
        cron: "0 0 2 * * *"
        taskset: ./tasksets/reference.yaml
`)

	cfg, err := LoadFrameworkConfig(configPath)
	require.NoError(t, err)

	a := cfg.DagSched.Analysis
	assert.Equal(t, "test-sched", cfg.DagSched.General.InstanceName)
	assert.Equal(t, "debug", cfg.DagSched.General.LogLevel)
	assert.Equal(t, 2, a.Processors)
	assert.Equal(t, 4, cfg.GetWorkers())
	assert.Equal(t, 30*time.Second, a.Timeout)
	assert.Equal(t, uint(100), a.MaxDepth)
	assert.False(t, cfg.EarlyExit())
	assert.True(t, a.Verbose)
	assert.Equal(t, EngineNPTest, a.Engine.Type)
	assert.Equal(t, "/opt/np/nptest", a.Engine.Binary)
	assert.Equal(t, "sqlite", cfg.GetDatabaseType())
	assert.True(t, cfg.StorageEnabled())
	assert.Equal(t, time.Hour, cfg.DagSched.Storage.Database.ConnMaxLifetime)
	assert.Equal(t, 16, cfg.DagSched.Storage.Cache.Size)
	assert.Equal(t, ":9090", cfg.ListenAddr())
	require.Len(t, cfg.DagSched.Schedule.Entries, 1)
	// 未配置时跟随 analysis.processors
	assert.Equal(t, 2, cfg.DagSched.Schedule.Entries[0].Processors)
}

func TestLoadFrameworkConfig_WithDefaults(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "minimal.yaml", "dagsched: {}\n")

	cfg, err := LoadFrameworkConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "dagsched", cfg.DagSched.General.InstanceName)
	assert.Equal(t, 1, cfg.GetProcessors())
	assert.Equal(t, 8, cfg.GetWorkers())
	assert.True(t, cfg.EarlyExit())
	assert.Equal(t, EngineSim, cfg.DagSched.Analysis.Engine.Type)
	assert.False(t, cfg.StorageEnabled())
	assert.Equal(t, 8080, cfg.DagSched.Server.Port)
}

func TestLoadFrameworkConfig_WithEnvVars(t *testing.T) {
	t.Setenv("TEST_ENV", "test-value")
	t.Setenv(EnvDatabaseDSN, "file:override.db")
	t.Setenv(EnvNPTestBinary, "/usr/local/bin/nptest")

	configPath := writeFile(t, t.TempDir(), "env-test.yaml", `
dagsched:
  general:
    instance_name: "${TEST_ENV}"
  storage:
    database:
      type: "sqlite"
      dsn: "./ignored.db"
`)

	cfg, err := LoadFrameworkConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "test-value", cfg.DagSched.General.InstanceName)
	assert.Equal(t, "file:override.db", cfg.GetDatabaseDSN())
	assert.Equal(t, "/usr/local/bin/nptest", cfg.DagSched.Analysis.Engine.Binary)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", EnvLogLevel+"=warn\n")
	require.NoError(t, os.Unsetenv(EnvLogLevel))
	t.Cleanup(func() { os.Unsetenv(EnvLogLevel) })

	LoadDotEnv(envPath)
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.DagSched.General.LogLevel)

	// 文件不存在时忽略
	LoadDotEnv(filepath.Join(dir, "missing.env"))
}

func TestLoadFrameworkConfig_Errors(t *testing.T) {
	_, err := LoadFrameworkConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = LoadFrameworkConfig(writeFile(t, dir, "bad.yaml", "dagsched: ["))
	assert.ErrorContains(t, err, "解析配置文件失败")

	_, err = LoadFrameworkConfig(writeFile(t, dir, "engine.yaml", "dagsched:\n  analysis:\n    engine:\n      type: magic\n"))
	assert.ErrorContains(t, err, "analysis.engine.type")
}

func TestValidateFrameworkConfig(t *testing.T) {
	assert.Error(t, ValidateFrameworkConfig(nil))
	assert.NoError(t, ValidateFrameworkConfig(DefaultConfig()))

	cases := map[string]func(c *EngineConfig){
		"log_level":           func(c *EngineConfig) { c.DagSched.General.LogLevel = "trace" },
		"analysis.processors": func(c *EngineConfig) { c.DagSched.Analysis.Processors = 0 },
		"analysis.workers":    func(c *EngineConfig) { c.DagSched.Analysis.Workers = 0 },
		"analysis.timeout":    func(c *EngineConfig) { c.DagSched.Analysis.Timeout = -time.Second },
		"database.type":       func(c *EngineConfig) { c.DagSched.Storage.Database.Type = "oracle" },
		"database.dsn":        func(c *EngineConfig) { c.DagSched.Storage.Database.Type = "mysql" },
		"server.port":         func(c *EngineConfig) { c.DagSched.Server.Port = 70000 },
		"cron": func(c *EngineConfig) {
			c.DagSched.Schedule.Entries = []ScheduleEntry{{Name: "x", Cron: "not a cron", Taskset: "a.yaml"}}
		},
		"name重复": func(c *EngineConfig) {
			e := ScheduleEntry{Name: "x", Cron: "*/5 * * * * *", Taskset: "a.yaml"}
			c.DagSched.Schedule.Entries = []ScheduleEntry{e, e}
		},
	}
	for want, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.ErrorContains(t, ValidateFrameworkConfig(cfg), want)
	}
}
