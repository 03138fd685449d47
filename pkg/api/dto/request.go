package dto

import (
	"github.com/LENAX/dagsched/pkg/config"
	"github.com/LENAX/dagsched/pkg/core/analysis"
)

// TasksetRequest 请求体中的任务集（与任务集文件同构）
type TasksetRequest struct {
	Taskset config.TasksetConfig `json:"taskset" binding:"required"`
}

// AnalyzeRequest 可调度性分析请求
type AnalyzeRequest struct {
	Taskset    config.TasksetConfig `json:"taskset" binding:"required"`
	Processors int                  `json:"processors" binding:"omitempty,min=1"` // 省略时使用配置值
	Aborts     []AbortItem          `json:"aborts,omitempty" binding:"omitempty,dive"`
}

// AbortItem 作业中止动作，作业用展开后的任务下标与作业ID指定
type AbortItem struct {
	TaskID          int   `json:"task_id" binding:"min=0"`
	JobID           int64 `json:"job_id" binding:"min=1"`
	EarliestTrigger int64 `json:"earliest_trigger"`
	LatestTrigger   int64 `json:"latest_trigger"`
	EarliestCleanup int64 `json:"earliest_cleanup"`
	LatestCleanup   int64 `json:"latest_cleanup"`
}

// AbortActions 转换为分析引擎的中止动作
func (r *AnalyzeRequest) AbortActions() []analysis.AbortAction {
	if len(r.Aborts) == 0 {
		return nil
	}
	out := make([]analysis.AbortAction, len(r.Aborts))
	for i, a := range r.Aborts {
		out[i] = analysis.AbortAction{
			TaskID:          a.TaskID,
			JobID:           a.JobID,
			EarliestTrigger: a.EarliestTrigger,
			LatestTrigger:   a.LatestTrigger,
			EarliestCleanup: a.EarliestCleanup,
			LatestCleanup:   a.LatestCleanup,
		}
	}
	return out
}

// NewAbortItems 由中止动作构造请求项
func NewAbortItems(aborts []analysis.AbortAction) []AbortItem {
	if len(aborts) == 0 {
		return nil
	}
	out := make([]AbortItem, len(aborts))
	for i, a := range aborts {
		out[i] = AbortItem{
			TaskID:          a.TaskID,
			JobID:           a.JobID,
			EarliestTrigger: a.EarliestTrigger,
			LatestTrigger:   a.LatestTrigger,
			EarliestCleanup: a.EarliestCleanup,
			LatestCleanup:   a.LatestCleanup,
		}
	}
	return out
}

// UnfoldQueryRequest 展开结果格式，csv 时 part 选择作业表或前驱表
type UnfoldQueryRequest struct {
	Format string `form:"format" binding:"omitempty,oneof=json csv"`
	Part   string `form:"part" binding:"omitempty,oneof=jobs precedence"`
}

// RunsQueryRequest 分析记录查询请求
type RunsQueryRequest struct {
	Fingerprint string `form:"fingerprint" binding:"omitempty"`
	Verdict     string `form:"verdict" binding:"omitempty,oneof=schedulable unschedulable failed"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// GetDefaultLimit 获取默认limit
func (r *RunsQueryRequest) GetDefaultLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}

// EventsQueryRequest 事件流过滤条件，types 以逗号分隔
type EventsQueryRequest struct {
	Types string `form:"types" binding:"omitempty"`
}
