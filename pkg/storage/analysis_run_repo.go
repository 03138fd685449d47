package storage

import (
	"context"
	"time"

	"github.com/LENAX/dagsched/pkg/core/analysis"
)

// AnalysisRun 一次可调度性分析的持久化记录（对外导出）
type AnalysisRun struct {
	ID          string               `json:"id"` // 与 Report.RunID 相同
	Fingerprint string               `json:"fingerprint"`
	Source      string               `json:"source"`
	Engine      string               `json:"engine"`
	Processors  int                  `json:"processors"`
	JobCount    int                  `json:"job_count"`
	Hyperperiod int64                `json:"hyperperiod"`
	Verdict     string               `json:"verdict"`
	Schedulable bool                 `json:"schedulable"`
	CPUTime     time.Duration        `json:"cpu_time"`
	Error       string               `json:"error,omitempty"`
	Results     []analysis.JobResult `json:"results,omitempty"` // 列表查询时不加载
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	CreateTime  time.Time            `json:"create_time"`
}

// RunFromReport 由分析报告构造记录
func RunFromReport(report *analysis.Report, fingerprint, source string, hyperperiod int64) *AnalysisRun {
	return &AnalysisRun{
		ID:          report.RunID,
		Fingerprint: fingerprint,
		Source:      source,
		Engine:      report.Engine,
		Processors:  report.Processors,
		JobCount:    report.JobCount,
		Hyperperiod: hyperperiod,
		Verdict:     string(report.Verdict),
		Schedulable: report.Schedulable,
		CPUTime:     report.CPUTime,
		Results:     report.Jobs,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		CreateTime:  time.Now(),
	}
}

// RunFilter 列表查询条件
type RunFilter struct {
	Fingerprint string
	Verdict     string
	Limit       int // <=0 时使用默认值 100
	Offset      int
}

// AnalysisRunRepository 分析记录存储接口（对外导出）
type AnalysisRunRepository interface {
	BaseRepository
	// Save 保存分析记录（创建或更新）
	Save(ctx context.Context, run *AnalysisRun) error
	// GetByID 根据ID查询，包含作业结果；不存在时返回 ErrRunNotFound
	GetByID(ctx context.Context, id string) (*AnalysisRun, error)
	// List 按开始时间倒序列出，不包含作业结果
	List(ctx context.Context, filter RunFilter) ([]*AnalysisRun, error)
	// Delete 删除分析记录
	Delete(ctx context.Context, id string) error
	// Close 关闭数据库连接
	Close() error
}
