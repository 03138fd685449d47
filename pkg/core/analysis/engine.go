package analysis

import (
	"context"
	"time"

	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// Interval 完成时间区间 [From, Until)
type Interval struct {
	From  int64
	Until int64
}

// Space 引擎探索结果
type Space interface {
	// IsSchedulable 所有作业是否都能满足截止期
	IsSchedulable() bool
	// FinishTimes 作业的完成时间区间，引擎未给出时第二个返回值为 false
	FinishTimes(job unfold.Job) (Interval, bool)
	// CPUTime 引擎报告的分析CPU时间
	CPUTime() time.Duration
}

// Engine 外部可调度性分析引擎（对外导出）
// Explore 阻塞直到引擎完成、超时或提前退出
type Engine interface {
	Name() string
	Explore(ctx context.Context, p *Problem, opts Options) (Space, error)
}
