package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 覆盖配置文件的环境变量
const (
	EnvDatabaseDSN  = "DAGSCHED_DB_DSN"
	EnvNPTestBinary = "DAGSCHED_NPTEST_BIN"
	EnvLogLevel     = "DAGSCHED_LOG_LEVEL"
)

// LoadDotEnv 加载 .env 文件，文件不存在时忽略
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadFrameworkConfig 加载框架配置
// 支持 ${VAR} 形式的环境变量替换，加载后应用默认值并校验
func LoadFrameworkConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return ParseFrameworkConfig(data)
}

// ParseFrameworkConfig 解析框架配置内容
func ParseFrameworkConfig(data []byte) (*EngineConfig, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg EngineConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	applyEnvOverrides(&cfg)
	cfg.ApplyDefaults()

	if err := ValidateFrameworkConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault 路径为空时返回默认配置（仍应用环境变量覆盖）
func LoadOrDefault(path string) (*EngineConfig, error) {
	if path == "" {
		cfg := &EngineConfig{}
		applyEnvOverrides(cfg)
		cfg.ApplyDefaults()
		return cfg, ValidateFrameworkConfig(cfg)
	}
	return LoadFrameworkConfig(path)
}

func applyEnvOverrides(cfg *EngineConfig) {
	if dsn := os.Getenv(EnvDatabaseDSN); dsn != "" {
		cfg.DagSched.Storage.Database.DSN = dsn
		if cfg.DagSched.Storage.Database.Type == "" {
			cfg.DagSched.Storage.Database.Type = "sqlite"
		}
	}
	if bin := os.Getenv(EnvNPTestBinary); bin != "" {
		cfg.DagSched.Analysis.Engine.Binary = bin
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.DagSched.General.LogLevel = level
	}
}
