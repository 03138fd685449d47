package config

import (
	"strconv"
	"time"
)

// EngineConfig 引擎框架配置（对外导出）
type EngineConfig struct {
	DagSched struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Analysis AnalysisConfig `yaml:"analysis"`
		Storage  struct {
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
			Cache struct {
				Enabled bool `yaml:"enabled"`
				Size    int  `yaml:"size"`
			} `yaml:"cache"`
		} `yaml:"storage"`
		Server struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"server"`
		Schedule struct {
			Enabled bool            `yaml:"enabled"`
			Entries []ScheduleEntry `yaml:"entries"`
		} `yaml:"schedule"`
	} `yaml:"dagsched"`
}

// AnalysisConfig 分析选项
type AnalysisConfig struct {
	Processors int           `yaml:"processors"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxDepth   uint          `yaml:"max_depth"`
	EarlyExit  *bool         `yaml:"early_exit"`
	BeNaive    bool          `yaml:"be_naive"`
	Verbose    bool          `yaml:"verbose"`
	MaxJobs    int64         `yaml:"max_jobs"`
	Engine     struct {
		Type      string `yaml:"type"` // nptest / sim / none
		Binary    string `yaml:"binary"`
		WorkDir   string `yaml:"work_dir"`
		KeepFiles bool   `yaml:"keep_files"`
	} `yaml:"engine"`
}

// ScheduleEntry 定时分析条目
type ScheduleEntry struct {
	Name       string `yaml:"name"`
	Cron       string `yaml:"cron"`
	Taskset    string `yaml:"taskset"`
	Processors int    `yaml:"processors"`
}

// 引擎类型
const (
	EngineNPTest = "nptest"
	EngineSim    = "sim"
	EngineNone   = "none"
)

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.DagSched.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.DagSched.Storage.Database.DSN
}

// StorageEnabled 是否持久化分析记录
func (c *EngineConfig) StorageEnabled() bool {
	return c.DagSched.Storage.Database.Type != "" && c.DagSched.Storage.Database.DSN != ""
}

// GetWorkers 获取分析引擎工作线程数
func (c *EngineConfig) GetWorkers() int {
	workers := c.DagSched.Analysis.Workers
	if workers <= 0 {
		return 8 // 默认值
	}
	return workers
}

// GetProcessors 获取默认处理器数量
func (c *EngineConfig) GetProcessors() int {
	if c.DagSched.Analysis.Processors <= 0 {
		return 1
	}
	return c.DagSched.Analysis.Processors
}

// EarlyExit 未配置时为 true
func (c *EngineConfig) EarlyExit() bool {
	if c.DagSched.Analysis.EarlyExit == nil {
		return true
	}
	return *c.DagSched.Analysis.EarlyExit
}

// ListenAddr HTTP监听地址
func (c *EngineConfig) ListenAddr() string {
	return c.DagSched.Server.Host + ":" + strconv.Itoa(c.DagSched.Server.Port)
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	// General默认值
	if c.DagSched.General.InstanceName == "" {
		c.DagSched.General.InstanceName = "dagsched"
	}
	if c.DagSched.General.LogLevel == "" {
		c.DagSched.General.LogLevel = "info"
	}
	if c.DagSched.General.Env == "" {
		c.DagSched.General.Env = "dev"
	}

	// Analysis默认值
	if c.DagSched.Analysis.Processors <= 0 {
		c.DagSched.Analysis.Processors = 1
	}
	if c.DagSched.Analysis.Workers <= 0 {
		c.DagSched.Analysis.Workers = 8
	}
	if c.DagSched.Analysis.MaxJobs <= 0 {
		c.DagSched.Analysis.MaxJobs = 5_000_000
	}
	if c.DagSched.Analysis.Engine.Type == "" {
		c.DagSched.Analysis.Engine.Type = EngineSim
	}
	if c.DagSched.Analysis.Engine.Binary == "" {
		c.DagSched.Analysis.Engine.Binary = "nptest"
	}

	// Database默认值
	if c.DagSched.Storage.Database.MaxOpenConns <= 0 {
		c.DagSched.Storage.Database.MaxOpenConns = 10
	}
	if c.DagSched.Storage.Database.MaxIdleConns <= 0 {
		c.DagSched.Storage.Database.MaxIdleConns = 5
	}
	if c.DagSched.Storage.Database.ConnMaxLifetime <= 0 {
		c.DagSched.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if c.DagSched.Storage.Database.ConnMaxIdleTime <= 0 {
		c.DagSched.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	// Cache默认值
	if c.DagSched.Storage.Cache.Size <= 0 {
		c.DagSched.Storage.Cache.Size = 128
	}

	// Server默认值
	if c.DagSched.Server.Port <= 0 {
		c.DagSched.Server.Port = 8080
	}
	if c.DagSched.Server.ReadTimeout <= 0 {
		c.DagSched.Server.ReadTimeout = 30 * time.Second
	}
	if c.DagSched.Server.WriteTimeout <= 0 {
		c.DagSched.Server.WriteTimeout = 5 * time.Minute
	}

	// Schedule条目默认处理器数量跟随analysis
	for i := range c.DagSched.Schedule.Entries {
		if c.DagSched.Schedule.Entries[i].Processors <= 0 {
			c.DagSched.Schedule.Entries[i].Processors = c.DagSched.Analysis.Processors
		}
	}
}

// DefaultConfig 没有配置文件时使用的配置
func DefaultConfig() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.ApplyDefaults()
	return cfg
}
