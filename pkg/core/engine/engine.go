package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/LENAX/dagsched/internal/logx"
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/cache"
	"github.com/LENAX/dagsched/pkg/core/events"
	"github.com/LENAX/dagsched/pkg/core/taskset"
	"github.com/LENAX/dagsched/pkg/core/unfold"
	"github.com/LENAX/dagsched/pkg/engine/nptest"
	"github.com/LENAX/dagsched/pkg/engine/sim"
	"github.com/LENAX/dagsched/pkg/storage"
)

// ErrNoRepository 未配置分析记录存储
var ErrNoRepository = errors.New("未配置分析记录存储")

// VerdictFailed 引擎失败时写入记录的结论
const VerdictFailed = "failed"

// Engine 分析服务核心结构体（对外导出）
// 负责任务集加载、展开缓存、分析去重、记录持久化和事件发布
type Engine struct {
	cfg           *config.EngineConfig
	harness       *analysis.Harness
	cache         cache.JobSetCache
	repo          storage.AnalysisRunRepository // 可为nil
	publisher     events.Publisher
	bus           *events.Bus // 可为nil，供事件流订阅
	group         singleflight.Group
	unfoldOpts    unfold.Options
	cronScheduler *CronScheduler
	closers       []io.Closer // 由 EngineBuilder 创建、随 Close 释放的资源
	running       bool
	mu            sync.RWMutex
}

// Option Engine构造选项
type Option func(*engineOptions)

type engineOptions struct {
	analysisEngine analysis.Engine
	analysisSet    bool
	repo           storage.AnalysisRunRepository
	bus            *events.Bus
	publisher      events.Publisher
	cache          cache.JobSetCache
	verbose        io.Writer
}

// WithAnalysisEngine 指定分析引擎，nil 表示不配置引擎
func WithAnalysisEngine(e analysis.Engine) Option {
	return func(o *engineOptions) {
		o.analysisEngine = e
		o.analysisSet = true
	}
}

// WithRepository 指定分析记录存储
func WithRepository(repo storage.AnalysisRunRepository) Option {
	return func(o *engineOptions) {
		o.repo = repo
	}
}

// WithEventBus 指定事件总线，同时作为发布者
func WithEventBus(bus *events.Bus) Option {
	return func(o *engineOptions) {
		o.bus = bus
		o.publisher = bus
	}
}

// WithPublisher 指定事件发布者（不提供订阅）
func WithPublisher(p events.Publisher) Option {
	return func(o *engineOptions) {
		o.publisher = p
	}
}

// WithCache 指定展开结果缓存
func WithCache(c cache.JobSetCache) Option {
	return func(o *engineOptions) {
		o.cache = c
	}
}

// WithVerbose 可调度时把每个作业的响应时间写到 w
func WithVerbose(w io.Writer) Option {
	return func(o *engineOptions) {
		o.verbose = w
	}
}

// NewEngine 创建Engine实例（对外导出的工厂方法）
// cfg 为nil时使用默认配置；未通过选项指定的分析引擎按 cfg 的 analysis.engine 创建
func NewEngine(cfg *config.EngineConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	analysisEngine := o.analysisEngine
	if !o.analysisSet {
		var err error
		analysisEngine, err = NewAnalysisEngine(cfg)
		if err != nil {
			return nil, err
		}
	}

	jobCache := o.cache
	if jobCache == nil {
		jobCache = cache.NopJobSetCache{}
		if cfg.DagSched.Storage.Cache.Enabled {
			lruCache, err := cache.NewLRUJobSetCache(cfg.DagSched.Storage.Cache.Size)
			if err != nil {
				return nil, err
			}
			jobCache = lruCache
		}
	}

	publisher := o.publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	harnessOpts := []analysis.HarnessOption{analysis.WithWorkers(cfg.GetWorkers())}
	if o.verbose != nil {
		harnessOpts = append(harnessOpts, analysis.WithVerbose(o.verbose))
	}

	unfoldOpts := unfold.DefaultOptions()
	if cfg.DagSched.Analysis.MaxJobs != 0 {
		unfoldOpts.MaxJobs = cfg.DagSched.Analysis.MaxJobs
	}

	eng := &Engine{
		cfg:        cfg,
		harness:    analysis.NewHarness(analysisEngine, harnessOpts...),
		cache:      jobCache,
		repo:       o.repo,
		publisher:  publisher,
		bus:        o.bus,
		unfoldOpts: unfoldOpts,
	}
	eng.cronScheduler = NewCronScheduler(eng)
	return eng, nil
}

// NewAnalysisEngine 按配置创建分析引擎，类型为 none 时返回 nil
func NewAnalysisEngine(cfg *config.EngineConfig) (analysis.Engine, error) {
	engineCfg := cfg.DagSched.Analysis.Engine
	switch engineCfg.Type {
	case config.EngineNPTest:
		return nptest.New(nptest.Config{
			Binary:    engineCfg.Binary,
			WorkDir:   engineCfg.WorkDir,
			KeepFiles: engineCfg.KeepFiles,
		}), nil
	case config.EngineSim, "":
		return sim.New(), nil
	case config.EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: 不支持的分析引擎类型 %q", taskset.ErrConfig, engineCfg.Type)
	}
}

// Start 启动引擎，注册并启动配置中的定时分析条目（对外导出）
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil
	}

	schedule := e.cfg.DagSched.Schedule
	if schedule.Enabled {
		for _, entry := range schedule.Entries {
			if err := e.cronScheduler.RegisterEntry(entry); err != nil {
				return fmt.Errorf("注册定时分析失败: %w", err)
			}
		}
		e.cronScheduler.Start()
	}

	e.running = true
	log.Printf("✅ [分析引擎] 已启动: Engine=%s, Workers=%d, Schedule=%d",
		e.harness.EngineName(), e.cfg.GetWorkers(), len(e.cronScheduler.GetRegisteredEntries()))
	return nil
}

// Stop 停止引擎（对外导出）
// 存储和事件总线由创建者负责关闭
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.cronScheduler.Stop()
	e.running = false
	log.Println("✅ [分析引擎] 已停止")
}

// Close 停止引擎并释放构建时创建的存储和事件总线
func (e *Engine) Close() error {
	e.Stop()
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Config 当前配置
func (e *Engine) Config() *config.EngineConfig {
	return e.cfg
}

// Harness 分析会话
func (e *Engine) Harness() *analysis.Harness {
	return e.harness
}

// LastCPUTime 最近一次成功分析的CPU时间
func (e *Engine) LastCPUTime() time.Duration {
	return e.harness.LastCPUTime()
}

// AnalysisCount 成功完成的分析次数
func (e *Engine) AnalysisCount() int {
	return e.harness.Recorder().Runs()
}

// EventBus 事件总线，未配置时为nil
func (e *Engine) EventBus() *events.Bus {
	return e.bus
}

// CronScheduler 定时调度器
func (e *Engine) CronScheduler() *CronScheduler {
	return e.cronScheduler
}

// CacheStats 展开缓存命中统计
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// LoadTaskset 从文件加载任务集（对外导出）
func (e *Engine) LoadTaskset(path string) (*taskset.Taskset, error) {
	ts, err := config.LoadTaskset(path)
	if err != nil {
		return nil, err
	}
	logx.Debugf("[分析引擎] 已加载任务集: Path=%s, Tasks=%d, Fingerprint=%s", path, ts.Len(), ts.Fingerprint())
	return ts, nil
}

// Hyperperiod 计算任务集超周期
func (e *Engine) Hyperperiod(ts *taskset.Taskset) (int64, error) {
	if ts == nil {
		return 0, taskset.ErrEmptyTaskset
	}
	return ts.Hyperperiod()
}

// Unfold 展开任务集（按指纹缓存）
// 返回的 JobSet 可能被多个调用方共享，不得修改
func (e *Engine) Unfold(ctx context.Context, ts *taskset.Taskset) (*unfold.JobSet, error) {
	if ts == nil {
		return nil, taskset.ErrEmptyTaskset
	}
	fingerprint := ts.Fingerprint()
	if set, ok := e.cache.Get(fingerprint); ok {
		logx.Debugf("[分析引擎] 展开缓存命中: Fingerprint=%s", fingerprint)
		return set, nil
	}

	set, err := unfold.UnfoldWithOptions(ts, e.unfoldOpts)
	if err != nil {
		return nil, err
	}
	e.cache.Set(fingerprint, set)

	event := events.NewAnalysisEvent(events.EventTasksetUnfolded, fingerprint)
	event.JobCount = set.Len()
	event.Hyperperiod = set.Hyperperiod
	e.publish(ctx, event)
	return set, nil
}

// Analyze 对任务集做可调度性分析（对外导出）
// m<=0 时使用配置的处理器数量
func (e *Engine) Analyze(ctx context.Context, ts *taskset.Taskset, m int) (*analysis.Report, error) {
	return e.AnalyzeFrom(ctx, ts, m, "")
}

// AnalyzeFrom 同 Analyze，source 记录任务集来源（文件路径、api、定时条目名）
func (e *Engine) AnalyzeFrom(ctx context.Context, ts *taskset.Taskset, m int, source string) (*analysis.Report, error) {
	return e.AnalyzeWithAborts(ctx, ts, m, source, nil)
}

// AnalyzeWithAborts 同 AnalyzeFrom，aborts 原样透传给分析引擎（对外导出）
// 任务集指纹、处理器数量和中止动作都相同的并发请求只执行一次分析，共享同一份报告。
// 分析不随发起者的 ctx 取消而中止；调用方取消后立即返回 ctx 的错误。
func (e *Engine) AnalyzeWithAborts(ctx context.Context, ts *taskset.Taskset, m int, source string, aborts []analysis.AbortAction) (*analysis.Report, error) {
	if m <= 0 {
		m = e.cfg.GetProcessors()
	}
	if ts == nil {
		return nil, taskset.ErrEmptyTaskset
	}
	fingerprint := ts.Fingerprint()
	if err := ts.Validate(); err != nil {
		e.publishFailure(ctx, fingerprint, source, m, "", err)
		return nil, err
	}

	key := fingerprint + "/m=" + strconv.Itoa(m)
	if len(aborts) > 0 {
		key += "/aborts=" + abortsDigest(aborts)
	}
	shared := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key, func() (interface{}, error) {
		return e.analyze(shared, ts, fingerprint, m, source, aborts)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logx.Debugf("[分析引擎] 复用并发分析结果: Key=%s", key)
		}
		return res.Val.(*analysis.Report), nil
	}
}

// abortsDigest 中止动作的摘要，参与并发去重的键
func abortsDigest(aborts []analysis.AbortAction) string {
	h := sha256.New()
	for _, a := range aborts {
		fmt.Fprintf(h, "%d,%d,%d,%d,%d,%d;", a.TaskID, a.JobID, a.EarliestTrigger, a.LatestTrigger, a.EarliestCleanup, a.LatestCleanup)
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}

func (e *Engine) analyze(ctx context.Context, ts *taskset.Taskset, fingerprint string, m int, source string, aborts []analysis.AbortAction) (*analysis.Report, error) {
	hyperperiod, err := ts.Hyperperiod()
	if err != nil {
		e.publishFailure(ctx, fingerprint, source, m, "", err)
		return nil, err
	}

	started := events.NewAnalysisEvent(events.EventAnalysisStarted, fingerprint)
	started.Source = source
	started.Processors = m
	started.Hyperperiod = hyperperiod
	e.publish(ctx, started)

	set, err := e.Unfold(ctx, ts)
	if err != nil {
		e.publishFailure(ctx, fingerprint, source, m, started.ID, err)
		return nil, err
	}

	problem, err := analysis.ProblemFromJobSet(set, aborts, m)
	if err != nil {
		e.publishFailure(ctx, fingerprint, source, m, started.ID, err)
		return nil, err
	}

	opts := e.analysisOptions(problem)
	startedAt := time.Now()
	report, err := e.harness.Run(ctx, problem, opts)
	if err != nil {
		if errors.Is(err, analysis.ErrEngine) {
			e.saveRun(ctx, &storage.AnalysisRun{
				ID:          uuid.NewString(),
				Fingerprint: fingerprint,
				Source:      source,
				Engine:      e.harness.EngineName(),
				Processors:  m,
				JobCount:    set.Len(),
				Hyperperiod: hyperperiod,
				Verdict:     VerdictFailed,
				Error:       err.Error(),
				StartedAt:   startedAt,
				FinishedAt:  time.Now(),
			})
		}
		e.publishFailure(ctx, fingerprint, source, m, started.ID, err)
		return nil, err
	}

	e.saveRun(ctx, storage.RunFromReport(report, fingerprint, source, hyperperiod))

	completed := events.NewAnalysisEvent(events.EventAnalysisCompleted, fingerprint).
		WithCorrelationID(started.ID)
	completed.RunID = report.RunID
	completed.Source = source
	completed.Processors = m
	completed.JobCount = report.JobCount
	completed.Hyperperiod = hyperperiod
	completed.Verdict = string(report.Verdict)
	completed.CPUTime = report.CPUTime
	e.publish(ctx, completed)
	return report, nil
}

// analysisOptions 默认选项叠加配置项
func (e *Engine) analysisOptions(p *analysis.Problem) analysis.Options {
	opts := e.harness.Options(p)
	a := e.cfg.DagSched.Analysis
	opts.Timeout = a.Timeout
	opts.MaxDepth = a.MaxDepth
	opts.EarlyExit = e.cfg.EarlyExit()
	opts.BeNaive = a.BeNaive
	return opts
}

// BatchResult 批量分析中单个任务集的结果
type BatchResult struct {
	Path   string           `json:"path"`
	Report *analysis.Report `json:"report,omitempty"`
	Err    error            `json:"-"`
}

// AnalyzeBatch 并发分析多个任务集文件，并发度受 workers 限制
// aborts 透传给每个任务集的分析，可以为空
// 单个文件的失败记录在对应结果中，不影响其它文件；结果顺序与 paths 一致
func (e *Engine) AnalyzeBatch(ctx context.Context, paths []string, m int, aborts []analysis.AbortAction) ([]BatchResult, error) {
	results := make([]BatchResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.GetWorkers())

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].Path = path
			ts, err := e.LoadTaskset(path)
			if err != nil {
				results[i].Err = err
				return nil
			}
			report, err := e.AnalyzeWithAborts(gctx, ts, m, path, aborts)
			results[i].Report = report
			results[i].Err = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logx.Infof("✅ [分析引擎] 批量分析完成: Total=%d, Failed=%d", len(paths), failed)
	return results, nil
}

// ListRuns 列出分析记录
func (e *Engine) ListRuns(ctx context.Context, filter storage.RunFilter) ([]*storage.AnalysisRun, error) {
	if e.repo == nil {
		return nil, ErrNoRepository
	}
	return e.repo.List(ctx, filter)
}

// GetRun 查询分析记录
func (e *Engine) GetRun(ctx context.Context, id string) (*storage.AnalysisRun, error) {
	if e.repo == nil {
		return nil, ErrNoRepository
	}
	return e.repo.GetByID(ctx, id)
}

// saveRun 持久化失败只记录日志，分析结论仍然有效
func (e *Engine) saveRun(ctx context.Context, run *storage.AnalysisRun) {
	if e.repo == nil {
		return
	}
	if err := e.repo.Save(ctx, run); err != nil {
		logx.Warnf("[分析引擎] 保存分析记录失败: RunID=%s, Error=%v", run.ID, err)
	}
}

func (e *Engine) publish(ctx context.Context, event *events.AnalysisEvent) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		logx.Warnf("[分析引擎] 发布事件失败: Type=%s, Error=%v", event.Type, err)
	}
}

func (e *Engine) publishFailure(ctx context.Context, fingerprint, source string, m int, correlationID string, cause error) {
	event := events.NewAnalysisEvent(events.EventAnalysisFailed, fingerprint).
		WithCorrelationID(correlationID)
	event.Source = source
	event.Processors = m
	event.Error = cause.Error()
	if errors.Is(cause, taskset.ErrConfig) {
		event.WithMetadata("kind", "config")
	} else {
		event.WithMetadata("kind", "engine")
	}
	e.publish(ctx, event)
}
