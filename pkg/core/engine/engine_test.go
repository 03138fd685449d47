package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/events"
	"github.com/LENAX/dagsched/pkg/core/taskset"
	"github.com/LENAX/dagsched/pkg/core/unfold"
	"github.com/LENAX/dagsched/pkg/engine/nptest"
	"github.com/LENAX/dagsched/pkg/engine/sim"
	"github.com/LENAX/dagsched/pkg/storage"
	"github.com/LENAX/dagsched/pkg/storage/sqlite"
)

const referenceYAML = `
tasks:
  - name: A
    period: 10
    subtasks:
      - {id: 0, cost: 1}
  - name: B
    period: 30
    subtasks:
      - {id: 0, cost: 7, successors: [1]}
      - {id: 1, cost: 1}
  - name: C
    period: 60
    subtasks:
      - {id: 0, cost: 3, successors: [1, 2]}
      - {id: 1, cost: 2}
      - {id: 2, cost: 1}
`

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.AnalysisEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e *events.AnalysisEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) last() *events.AnalysisEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type blockingSpace struct{}

func (blockingSpace) IsSchedulable() bool    { return true }
func (blockingSpace) CPUTime() time.Duration { return time.Millisecond }
func (blockingSpace) FinishTimes(unfold.Job) (analysis.Interval, bool) {
	return analysis.Interval{}, false
}

// blockingEngine 在 release 关闭前阻塞
// honorCtx 为 true 时放行后检查 ctx，已取消则返回错误
type blockingEngine struct {
	calls    atomic.Int32
	entered  chan struct{}
	release  chan struct{}
	err      error
	honorCtx bool
	last     atomic.Pointer[analysis.Problem]
}

func (e *blockingEngine) Name() string { return "blocking" }

func (e *blockingEngine) Explore(ctx context.Context, p *analysis.Problem, opts analysis.Options) (analysis.Space, error) {
	if e.calls.Add(1) == 1 && e.entered != nil {
		close(e.entered)
	}
	e.last.Store(p)
	if e.release != nil {
		<-e.release
	}
	if e.honorCtx {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return blockingSpace{}, nil
}

func writeTaskset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func loadReference(t *testing.T) *taskset.Taskset {
	t.Helper()
	ts, err := config.ParseTaskset([]byte(referenceYAML))
	require.NoError(t, err)
	return ts
}

func openRepo(t *testing.T) storage.AnalysisRunRepository {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "runs.db"), storage.PoolConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestNewAnalysisEngine(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.DagSched.Analysis.Engine.Type = config.EngineSim
	e, err := NewAnalysisEngine(cfg)
	require.NoError(t, err)
	assert.IsType(t, &sim.Engine{}, e)

	cfg.DagSched.Analysis.Engine.Type = config.EngineNPTest
	cfg.DagSched.Analysis.Engine.Binary = "/opt/np/nptest"
	e, err = NewAnalysisEngine(cfg)
	require.NoError(t, err)
	assert.IsType(t, &nptest.Engine{}, e)

	cfg.DagSched.Analysis.Engine.Type = config.EngineNone
	e, err = NewAnalysisEngine(cfg)
	require.NoError(t, err)
	assert.Nil(t, e)

	cfg.DagSched.Analysis.Engine.Type = "quantum"
	_, err = NewAnalysisEngine(cfg)
	assert.ErrorIs(t, err, taskset.ErrConfig)
}

func TestEngine_UnfoldCached(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DagSched.Storage.Cache.Enabled = true
	pub := &recordingPublisher{}
	eng, err := NewEngine(cfg, WithPublisher(pub))
	require.NoError(t, err)

	ts := loadReference(t)
	first, err := eng.Unfold(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, 13, first.Len())

	second, err := eng.Unfold(context.Background(), loadReference(t))
	require.NoError(t, err)
	assert.Same(t, first, second)

	stats := eng.CacheStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, []events.EventType{events.EventTasksetUnfolded}, pub.types())
	assert.Equal(t, int64(60), pub.last().Hyperperiod)
}

func TestEngine_AnalyzeWithSim(t *testing.T) {
	repo := openRepo(t)
	pub := &recordingPublisher{}
	eng, err := NewEngine(config.DefaultConfig(), WithRepository(repo), WithPublisher(pub))
	require.NoError(t, err)

	report, err := eng.AnalyzeFrom(context.Background(), loadReference(t), 1, "reference.yaml")
	require.NoError(t, err)
	assert.True(t, report.Schedulable)
	assert.Equal(t, "sim", report.Engine)
	assert.Equal(t, 13, report.JobCount)
	assert.Equal(t, report.CPUTime, eng.LastCPUTime())

	assert.Equal(t, []events.EventType{
		events.EventAnalysisStarted,
		events.EventTasksetUnfolded,
		events.EventAnalysisCompleted,
	}, pub.types())
	completed := pub.last()
	assert.Equal(t, report.RunID, completed.RunID)
	assert.Equal(t, "schedulable", completed.Verdict)
	assert.NotEmpty(t, completed.CorrelationID)

	run, err := eng.GetRun(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, "reference.yaml", run.Source)
	assert.Equal(t, int64(60), run.Hyperperiod)
	assert.Len(t, run.Results, 13)

	runs, err := eng.ListRuns(context.Background(), storage.RunFilter{Fingerprint: loadReference(t).Fingerprint()})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestEngine_AnalyzeDefaultsProcessors(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DagSched.Analysis.Processors = 2
	eng, err := NewEngine(cfg)
	require.NoError(t, err)

	report, err := eng.Analyze(context.Background(), loadReference(t), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processors)
}

func TestEngine_AnalyzeConfigError(t *testing.T) {
	pub := &recordingPublisher{}
	eng, err := NewEngine(config.DefaultConfig(), WithPublisher(pub))
	require.NoError(t, err)

	bad := taskset.New(taskset.NewTask("bad", 0, 10))
	_, err = eng.Analyze(context.Background(), bad, 1)
	assert.ErrorIs(t, err, taskset.ErrConfig)
	assert.ErrorIs(t, err, taskset.ErrInvalidPeriod)

	failed := pub.last()
	assert.Equal(t, events.EventAnalysisFailed, failed.Type)
	assert.Equal(t, "config", failed.Metadata["kind"])

	_, err = eng.Analyze(context.Background(), nil, 1)
	assert.ErrorIs(t, err, taskset.ErrEmptyTaskset)
}

func TestEngine_NoAnalysisEngine(t *testing.T) {
	eng, err := NewEngine(config.DefaultConfig(), WithAnalysisEngine(nil))
	require.NoError(t, err)

	_, err = eng.Analyze(context.Background(), loadReference(t), 1)
	assert.ErrorIs(t, err, analysis.ErrNoEngine)

	_, err = eng.ListRuns(context.Background(), storage.RunFilter{})
	assert.ErrorIs(t, err, ErrNoRepository)
	_, err = eng.GetRun(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestEngine_EngineFailurePersisted(t *testing.T) {
	repo := openRepo(t)
	pub := &recordingPublisher{}
	failing := &blockingEngine{err: errors.New("segfault")}
	eng, err := NewEngine(config.DefaultConfig(), WithAnalysisEngine(failing), WithRepository(repo), WithPublisher(pub))
	require.NoError(t, err)

	_, err = eng.Analyze(context.Background(), loadReference(t), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrEngine)
	assert.Equal(t, "engine", pub.last().Metadata["kind"])

	runs, err := eng.ListRuns(context.Background(), storage.RunFilter{Verdict: VerdictFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "segfault")
	assert.Equal(t, "blocking", runs[0].Engine)
}

func TestEngine_ConcurrentAnalysesShareOneRun(t *testing.T) {
	blocking := &blockingEngine{entered: make(chan struct{}), release: make(chan struct{})}
	eng, err := NewEngine(config.DefaultConfig(), WithAnalysisEngine(blocking))
	require.NoError(t, err)

	reports := make([]*analysis.Report, 2)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := eng.Analyze(context.Background(), loadReference(t), 1)
		assert.NoError(t, err)
		reports[0] = r
	}()
	<-blocking.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := eng.Analyze(context.Background(), loadReference(t), 1)
		assert.NoError(t, err)
		reports[1] = r
	}()
	time.Sleep(100 * time.Millisecond)
	close(blocking.release)
	wg.Wait()

	assert.Equal(t, int32(1), blocking.calls.Load())
	require.NotNil(t, reports[0])
	assert.Same(t, reports[0], reports[1])

	// 不同处理器数量不共享
	_, err = eng.Analyze(context.Background(), loadReference(t), 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), blocking.calls.Load())
}

func TestEngine_SharedAnalysisSurvivesFirstCallerCancel(t *testing.T) {
	blocking := &blockingEngine{entered: make(chan struct{}), release: make(chan struct{}), honorCtx: true}
	eng, err := NewEngine(config.DefaultConfig(), WithAnalysisEngine(blocking))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := eng.Analyze(ctx, loadReference(t), 1)
		firstErr <- err
	}()
	<-blocking.entered

	type result struct {
		report *analysis.Report
		err    error
	}
	second := make(chan result, 1)
	go func() {
		r, err := eng.Analyze(context.Background(), loadReference(t), 1)
		second <- result{r, err}
	}()
	time.Sleep(50 * time.Millisecond)

	// 发起者取消后立即返回，共享的分析继续执行
	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(blocking.release)
	res := <-second
	require.NoError(t, res.err)
	assert.True(t, res.report.Schedulable)
	assert.Equal(t, int32(1), blocking.calls.Load())
}

func TestEngine_AnalyzeWithAborts(t *testing.T) {
	capturing := &blockingEngine{}
	eng, err := NewEngine(config.DefaultConfig(), WithAnalysisEngine(capturing))
	require.NoError(t, err)
	ts := loadReference(t)

	_, err = eng.Analyze(context.Background(), ts, 1)
	require.NoError(t, err)
	assert.Empty(t, capturing.last.Load().Aborts)

	aborts := []analysis.AbortAction{{TaskID: 0, JobID: 1, EarliestTrigger: 0, LatestTrigger: 1, EarliestCleanup: 0, LatestCleanup: 1}}
	_, err = eng.AnalyzeWithAborts(context.Background(), ts, 1, "aborts", aborts)
	require.NoError(t, err)
	assert.Equal(t, aborts, capturing.last.Load().Aborts)
	assert.Equal(t, int32(2), capturing.calls.Load())
	assert.Equal(t, 2, eng.AnalysisCount())

	_, err = eng.AnalyzeWithAborts(context.Background(), ts, 1, "aborts", []analysis.AbortAction{{TaskID: 7, JobID: 1}})
	assert.ErrorIs(t, err, analysis.ErrUnknownAbortJob)
	assert.ErrorIs(t, err, taskset.ErrConfig)
	assert.Equal(t, int32(2), capturing.calls.Load())
}

func TestAbortsDigest(t *testing.T) {
	a := []analysis.AbortAction{{TaskID: 0, JobID: 1, LatestTrigger: 1}}
	b := []analysis.AbortAction{{TaskID: 0, JobID: 1, LatestTrigger: 2}}
	assert.Equal(t, abortsDigest(a), abortsDigest(a))
	assert.NotEqual(t, abortsDigest(a), abortsDigest(b))
}

func TestEngine_AnalyzeBatch(t *testing.T) {
	dir := t.TempDir()
	good := writeTaskset(t, dir, "good.yaml", referenceYAML)
	bad := writeTaskset(t, dir, "bad.yaml", "tasks:\n  - name: X\n    period: -1\n    subtasks:\n      - {id: 0, cost: 1}\n")
	missing := filepath.Join(dir, "missing.yaml")

	cfg := config.DefaultConfig()
	cfg.DagSched.Analysis.Workers = 2
	eng, err := NewEngine(cfg)
	require.NoError(t, err)

	results, err := eng.AnalyzeBatch(context.Background(), []string{good, bad, missing}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, good, results[0].Path)
	require.NoError(t, results[0].Err)
	assert.True(t, results[0].Report.Schedulable)

	assert.ErrorIs(t, results[1].Err, taskset.ErrConfig)
	assert.Nil(t, results[1].Report)
	assert.Error(t, results[2].Err)
}

func TestEngine_AnalyzeBatchCancelled(t *testing.T) {
	eng, err := NewEngine(config.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.AnalyzeBatch(ctx, []string{"a.yaml"}, 1, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
