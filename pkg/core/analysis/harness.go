package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// Harness 分析会话入口（对外导出）
// 组装问题、配置选项、调用外部引擎并提取结论
type Harness struct {
	engine   Engine
	workers  int
	verbose  io.Writer
	recorder *Recorder
}

// HarnessOption 函数式选项
type HarnessOption func(*Harness)

// WithWorkers 设置引擎内部工作线程数，<=0 时使用默认值
func WithWorkers(n int) HarnessOption {
	return func(h *Harness) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithVerbose 可调度时输出每个作业的最好响应时间
func WithVerbose(w io.Writer) HarnessOption {
	return func(h *Harness) {
		h.verbose = w
	}
}

// WithRecorder 使用外部提供的记录器
func WithRecorder(r *Recorder) HarnessOption {
	return func(h *Harness) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewHarness 创建分析会话入口
func NewHarness(engine Engine, opts ...HarnessOption) *Harness {
	h := &Harness{
		engine:   engine,
		workers:  DefaultWorkers,
		recorder: NewRecorder(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Options 默认分析选项，工作线程数取自本会话配置
func (h *Harness) Options(p *Problem) Options {
	opts := ConfigureAnalysis(p)
	opts.Workers = h.workers
	return opts
}

// Recorder 本会话的CPU时间记录器
func (h *Harness) Recorder() *Recorder {
	return h.recorder
}

// LastCPUTime 最近一次成功分析的CPU时间
func (h *Harness) LastCPUTime() time.Duration {
	return h.recorder.LastCPUTime()
}

// EngineName 当前引擎名称
func (h *Harness) EngineName() string {
	if h.engine == nil {
		return ""
	}
	return h.engine.Name()
}

// Run 执行一次可调度性分析
// 不可调度是正常结论；引擎失败以 *EngineError 返回，记录器保持不变
func (h *Harness) Run(ctx context.Context, p *Problem, opts Options) (*Report, error) {
	if h.engine == nil {
		return nil, ErrNoEngine
	}
	if p == nil || len(p.Jobs) == 0 {
		return nil, ErrEmptyJobSet
	}
	if p.Processors < 1 {
		return nil, fmt.Errorf("m=%d: %w", p.Processors, ErrInvalidProcessors)
	}

	report := &Report{
		RunID:      uuid.NewString(),
		Engine:     h.engine.Name(),
		Processors: p.Processors,
		JobCount:   len(p.Jobs),
		StartedAt:  time.Now(),
	}
	log.Printf("🚀 [分析会话] 开始分析: RunID=%s, Engine=%s, Jobs=%d, m=%d",
		report.RunID, report.Engine, report.JobCount, p.Processors)

	space, err := h.engine.Explore(ctx, p, opts)
	if err != nil {
		log.Printf("❌ [分析会话] 引擎执行失败: RunID=%s, Error=%v", report.RunID, err)
		var engineErr *EngineError
		if errors.As(err, &engineErr) {
			return nil, err
		}
		return nil, &EngineError{Engine: report.Engine, Err: err}
	}

	report.FinishedAt = time.Now()
	report.Schedulable = space.IsSchedulable()
	report.Verdict = VerdictOf(report.Schedulable)
	report.CPUTime = space.CPUTime()
	report.Jobs = collectResults(p.Jobs, space)
	h.recorder.Store(report.CPUTime)

	log.Printf("✅ [分析会话] 分析完成: RunID=%s, Verdict=%s, CPUTime=%s",
		report.RunID, report.Verdict, report.CPUTime)

	if report.Schedulable && h.verbose != nil {
		writeBCRT(h.verbose, p.Jobs, report.Jobs)
	}
	return report, nil
}

// Analyze 组装问题并以默认选项执行分析
func (h *Harness) Analyze(ctx context.Context, set *unfold.JobSet, aborts []AbortAction, m int) (*Report, error) {
	p, err := ProblemFromJobSet(set, aborts, m)
	if err != nil {
		return nil, err
	}
	return h.Run(ctx, p, h.Options(p))
}

func collectResults(jobs []unfold.Job, space Space) []JobResult {
	results := make([]JobResult, 0, len(jobs))
	for _, j := range jobs {
		r := JobResult{
			TaskID:   j.TaskID,
			JobID:    j.JobID,
			Arrival:  j.EarliestArrival(),
			Deadline: j.Deadline,
		}
		if finish, ok := space.FinishTimes(j); ok {
			r.Finish = finish
			r.HasFinish = true
			r.BCRT = BestCaseResponseTime(j, finish)
			r.WCRT = WorstCaseResponseTime(j, finish)
		}
		results = append(results, r)
	}
	return results
}

// writeBCRT 输出格式: \tBCRT: [t, j] v [t, j] v ...
func writeBCRT(w io.Writer, jobs []unfold.Job, results []JobResult) {
	var sb strings.Builder
	sb.WriteString("\tBCRT: ")
	for i, j := range jobs {
		fmt.Fprintf(&sb, "%s %d ", j.Key(), results[i].BCRT)
	}
	sb.WriteString("\n")
	_, _ = io.WriteString(w, sb.String())
}
