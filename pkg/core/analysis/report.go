package analysis

import (
	"time"

	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// Verdict 可调度性结论
type Verdict string

const (
	VerdictSchedulable   Verdict = "schedulable"
	VerdictUnschedulable Verdict = "unschedulable"
)

// VerdictOf 布尔结论转换为 Verdict
func VerdictOf(schedulable bool) Verdict {
	if schedulable {
		return VerdictSchedulable
	}
	return VerdictUnschedulable
}

// JobResult 单个作业的分析结果
type JobResult struct {
	TaskID    int      `json:"task_id"`
	JobID     int64    `json:"job_id"`
	Arrival   int64    `json:"arrival"`
	Deadline  int64    `json:"deadline"`
	Finish    Interval `json:"finish"`
	HasFinish bool     `json:"has_finish"`
	BCRT      int64    `json:"bcrt"`
	WCRT      int64    `json:"wcrt"`
}

// Report 一次分析会话的结果（对外导出）
// CPU 时间随报告返回，不依赖进程级全局状态
type Report struct {
	RunID       string        `json:"run_id"`
	Engine      string        `json:"engine"`
	Processors  int           `json:"processors"`
	JobCount    int           `json:"job_count"`
	Verdict     Verdict       `json:"verdict"`
	Schedulable bool          `json:"schedulable"`
	CPUTime     time.Duration `json:"cpu_time"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Jobs        []JobResult   `json:"jobs"`
}

// Result 查找某个作业的结果
func (r *Report) Result(key unfold.JobKey) (JobResult, bool) {
	for _, j := range r.Jobs {
		if j.TaskID == key.TaskID && j.JobID == key.JobID {
			return j, true
		}
	}
	return JobResult{}, false
}

// MaxWCRT 各任务的最大最坏响应时间
func (r *Report) MaxWCRT() map[int]int64 {
	out := make(map[int]int64)
	for _, j := range r.Jobs {
		if !j.HasFinish {
			continue
		}
		if j.WCRT > out[j.TaskID] {
			out[j.TaskID] = j.WCRT
		}
	}
	return out
}

// BestCaseResponseTime 最好响应时间，不小于0
func BestCaseResponseTime(job unfold.Job, finish Interval) int64 {
	return nonNegative(finish.From - job.EarliestArrival())
}

// WorstCaseResponseTime 最坏响应时间，不小于0
func WorstCaseResponseTime(job unfold.Job, finish Interval) int64 {
	return nonNegative(finish.Until - job.EarliestArrival())
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
