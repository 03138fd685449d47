package engine

import (
	"fmt"
	"io"
	"log"

	"github.com/LENAX/dagsched/internal/logx"
	internalstorage "github.com/LENAX/dagsched/internal/storage"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/events"
)

// EngineBuilder 按配置文件组装Engine（对外导出）
type EngineBuilder struct {
	configPath     string
	cfg            *config.EngineConfig
	verbose        io.Writer
	eventBus       bool
	analysisEngine analysis.Engine
	analysisSet    bool
	overrides      []func(*config.EngineConfig)
}

// NewEngineBuilder 创建构建器，configPath 为空时使用默认配置
func NewEngineBuilder(configPath string) *EngineBuilder {
	return &EngineBuilder{configPath: configPath}
}

// WithConfig 直接使用给定配置，忽略配置文件
func (b *EngineBuilder) WithConfig(cfg *config.EngineConfig) *EngineBuilder {
	b.cfg = cfg
	return b
}

// WithVerbose 可调度时输出每个作业的响应时间
func (b *EngineBuilder) WithVerbose(w io.Writer) *EngineBuilder {
	b.verbose = w
	return b
}

// WithEventBus 创建进程内事件总线，供事件流订阅
func (b *EngineBuilder) WithEventBus() *EngineBuilder {
	b.eventBus = true
	return b
}

// WithAnalysisEngine 使用指定分析引擎而不是按配置创建
func (b *EngineBuilder) WithAnalysisEngine(e analysis.Engine) *EngineBuilder {
	b.analysisEngine = e
	b.analysisSet = true
	return b
}

// Override 在配置加载之后、校验之前修改配置（命令行参数覆盖）
func (b *EngineBuilder) Override(fn func(*config.EngineConfig)) *EngineBuilder {
	b.overrides = append(b.overrides, fn)
	return b
}

// Build 构建Engine
func (b *EngineBuilder) Build() (*Engine, error) {
	cfg := b.cfg
	if cfg == nil {
		var err error
		cfg, err = config.LoadOrDefault(b.configPath)
		if err != nil {
			return nil, fmt.Errorf("加载配置失败: %w", err)
		}
	}
	if len(b.overrides) > 0 {
		for _, fn := range b.overrides {
			fn(cfg)
		}
		cfg.ApplyDefaults()
		if err := config.ValidateFrameworkConfig(cfg); err != nil {
			return nil, err
		}
	}
	logx.SetLevelString(cfg.DagSched.General.LogLevel)

	var opts []Option
	var closers []io.Closer

	repo, err := internalstorage.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if repo != nil {
		opts = append(opts, WithRepository(repo))
		closers = append(closers, repo)
		log.Printf("✅ [分析引擎] 已连接存储: Type=%s", cfg.GetDatabaseType())
	}

	if b.eventBus {
		bus := events.NewBus(events.WithDebug(logx.Enabled(logx.LevelDebug), false))
		opts = append(opts, WithEventBus(bus))
		closers = append(closers, bus)
	}
	if b.verbose != nil {
		opts = append(opts, WithVerbose(b.verbose))
	}
	if b.analysisSet {
		opts = append(opts, WithAnalysisEngine(b.analysisEngine))
	}

	eng, err := NewEngine(cfg, opts...)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	eng.closers = closers
	return eng, nil
}
