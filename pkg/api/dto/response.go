package dto

import (
	"time"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/unfold"
	"github.com/LENAX/dagsched/pkg/storage"
)

// APIResponse 通用API响应结构
type APIResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) APIResponse[any] {
	return APIResponse[any]{
		Code:    code,
		Message: message,
	}
}

// HyperperiodResponse 超周期响应
type HyperperiodResponse struct {
	Hyperperiod int64  `json:"hyperperiod"`
	Fingerprint string `json:"fingerprint"`
	JobCount    int64  `json:"job_count"`
}

// JobItem 展开后的作业
type JobItem struct {
	TaskID     int   `json:"task_id"`
	JobID      int64 `json:"job_id"`
	ArrivalMin int64 `json:"arrival_min"`
	ArrivalMax int64 `json:"arrival_max"`
	CostMin    int64 `json:"cost_min"`
	CostMax    int64 `json:"cost_max"`
	Deadline   int64 `json:"deadline"`
	Priority   int64 `json:"priority"`
}

// EdgeItem 展开后的前驱边
type EdgeItem struct {
	PredecessorTaskID int   `json:"predecessor_task_id"`
	PredecessorJobID  int64 `json:"predecessor_job_id"`
	SuccessorTaskID   int   `json:"successor_task_id"`
	SuccessorJobID    int64 `json:"successor_job_id"`
}

// UnfoldResponse 展开结果响应
type UnfoldResponse struct {
	Hyperperiod int64      `json:"hyperperiod"`
	Jobs        []JobItem  `json:"jobs"`
	Precedence  []EdgeItem `json:"precedence"`
}

// NewUnfoldResponse 由展开结果构造响应
func NewUnfoldResponse(set *unfold.JobSet) UnfoldResponse {
	resp := UnfoldResponse{
		Hyperperiod: set.Hyperperiod,
		Jobs:        make([]JobItem, len(set.Jobs)),
		Precedence:  make([]EdgeItem, len(set.Edges)),
	}
	for i, j := range set.Jobs {
		resp.Jobs[i] = JobItem{
			TaskID:     j.TaskID,
			JobID:      j.JobID,
			ArrivalMin: j.ArrivalMin,
			ArrivalMax: j.ArrivalMax,
			CostMin:    j.CostMin,
			CostMax:    j.CostMax,
			Deadline:   j.Deadline,
			Priority:   j.Priority,
		}
	}
	for i, e := range set.Edges {
		resp.Precedence[i] = EdgeItem{
			PredecessorTaskID: e.From.TaskID,
			PredecessorJobID:  e.From.JobID,
			SuccessorTaskID:   e.To.TaskID,
			SuccessorJobID:    e.To.JobID,
		}
	}
	return resp
}

// AnalyzeResponse 分析响应
type AnalyzeResponse struct {
	RunID       string               `json:"run_id"`
	Engine      string               `json:"engine"`
	Processors  int                  `json:"processors"`
	JobCount    int                  `json:"job_count"`
	Verdict     string               `json:"verdict"`
	Schedulable bool                 `json:"schedulable"`
	CPUTime     string               `json:"cpu_time"`
	Duration    string               `json:"duration"`
	MaxWCRT     map[int]int64        `json:"max_wcrt,omitempty"`
	Jobs        []analysis.JobResult `json:"jobs,omitempty"`
}

// NewAnalyzeResponse 由分析报告构造响应
func NewAnalyzeResponse(report *analysis.Report) AnalyzeResponse {
	resp := AnalyzeResponse{
		RunID:       report.RunID,
		Engine:      report.Engine,
		Processors:  report.Processors,
		JobCount:    report.JobCount,
		Verdict:     string(report.Verdict),
		Schedulable: report.Schedulable,
		CPUTime:     report.CPUTime.String(),
		Duration:    formatDuration(report.FinishedAt.Sub(report.StartedAt)),
		Jobs:        report.Jobs,
	}
	if report.Schedulable {
		resp.MaxWCRT = report.MaxWCRT()
	}
	return resp
}

// RunSummary 分析记录摘要
type RunSummary struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source,omitempty"`
	Engine      string    `json:"engine"`
	Processors  int       `json:"processors"`
	JobCount    int       `json:"job_count"`
	Hyperperiod int64     `json:"hyperperiod"`
	Verdict     string    `json:"verdict"`
	CPUTime     string    `json:"cpu_time"`
	StartedAt   time.Time `json:"started_at"`
	Duration    string    `json:"duration,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewRunSummary 由分析记录构造摘要
func NewRunSummary(run *storage.AnalysisRun) RunSummary {
	summary := RunSummary{
		ID:          run.ID,
		Fingerprint: run.Fingerprint,
		Source:      run.Source,
		Engine:      run.Engine,
		Processors:  run.Processors,
		JobCount:    run.JobCount,
		Hyperperiod: run.Hyperperiod,
		Verdict:     run.Verdict,
		CPUTime:     run.CPUTime.String(),
		StartedAt:   run.StartedAt,
		Error:       run.Error,
	}
	if !run.FinishedAt.IsZero() {
		summary.Duration = formatDuration(run.FinishedAt.Sub(run.StartedAt))
	}
	return summary
}

// RunDetail 分析记录详情
type RunDetail struct {
	RunSummary
	Jobs []analysis.JobResult `json:"jobs"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Engine    string `json:"engine"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
	Analyses  int    `json:"analyses"`
	LastCPU   string `json:"last_cpu_time"`
}

// ListResponse 列表响应
type ListResponse[T any] struct {
	Total   int  `json:"total"`
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

// formatDuration 格式化持续时间
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
