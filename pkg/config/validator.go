package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// ValidateFrameworkConfig 校验框架配置合法性
func ValidateFrameworkConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}

	// 校验General
	if cfg.DagSched.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	if cfg.DagSched.General.LogLevel != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLevels[cfg.DagSched.General.LogLevel] {
			return fmt.Errorf("log_level必须是debug/info/warn/error之一")
		}
	}

	// 校验Analysis
	a := cfg.DagSched.Analysis
	if a.Processors < 1 {
		return fmt.Errorf("analysis.processors必须大于等于1")
	}
	if a.Workers < 1 {
		return fmt.Errorf("analysis.workers必须大于等于1")
	}
	if a.Timeout < 0 {
		return fmt.Errorf("analysis.timeout不能为负数")
	}
	switch a.Engine.Type {
	case EngineNPTest, EngineSim, EngineNone:
	default:
		return fmt.Errorf("analysis.engine.type必须是nptest/sim/none之一")
	}

	// 校验Storage.Database（未配置时不持久化）
	db := cfg.DagSched.Storage.Database
	if db.Type != "" {
		validDBTypes := map[string]bool{
			"sqlite":     true,
			"postgres":   true,
			"postgresql": true,
			"mysql":      true,
		}
		if !validDBTypes[db.Type] {
			return fmt.Errorf("database.type必须是sqlite/postgres/mysql之一")
		}
		if db.DSN == "" {
			return fmt.Errorf("database.dsn不能为空")
		}
	}
	if db.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns必须大于0")
	}
	if db.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns不能为负数")
	}

	// 校验Server
	if cfg.DagSched.Server.Port <= 0 || cfg.DagSched.Server.Port > 65535 {
		return fmt.Errorf("server.port必须在1-65535之间")
	}

	// 校验Schedule
	// 与调度器一致，秒级精度
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	names := make(map[string]bool)
	for i, e := range cfg.DagSched.Schedule.Entries {
		if e.Name == "" {
			return fmt.Errorf("schedule.entries[%d].name不能为空", i)
		}
		if names[e.Name] {
			return fmt.Errorf("schedule.entries[%d].name重复: %s", i, e.Name)
		}
		names[e.Name] = true
		if e.Taskset == "" {
			return fmt.Errorf("schedule.entries[%d].taskset不能为空", i)
		}
		if _, err := parser.Parse(e.Cron); err != nil {
			return fmt.Errorf("schedule.entries[%d].cron无效: %w", i, err)
		}
	}

	return nil
}
