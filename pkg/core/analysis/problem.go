package analysis

import (
	"fmt"

	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// AbortAction 作业中止/跳过动作，原样透传给分析引擎
type AbortAction struct {
	TaskID          int
	JobID           int64
	EarliestTrigger int64
	LatestTrigger   int64
	EarliestCleanup int64
	LatestCleanup   int64
}

// Key 中止动作作用的作业
func (a AbortAction) Key() unfold.JobKey {
	return unfold.JobKey{TaskID: a.TaskID, JobID: a.JobID}
}

// Problem 调度问题（对外导出）
type Problem struct {
	Jobs       []unfold.Job
	Precedence []unfold.PrecedenceEdge
	Aborts     []AbortAction
	Processors int
}

// BuildProblem 组装调度问题
// aborts 可以为空
func BuildProblem(jobs []unfold.Job, edges []unfold.PrecedenceEdge, aborts []AbortAction, m int) (*Problem, error) {
	if m < 1 {
		return nil, fmt.Errorf("m=%d: %w", m, ErrInvalidProcessors)
	}
	if len(jobs) == 0 {
		return nil, ErrEmptyJobSet
	}
	if aborts == nil {
		aborts = []AbortAction{}
	}
	if err := checkAborts(jobs, aborts); err != nil {
		return nil, err
	}
	if edges == nil {
		edges = []unfold.PrecedenceEdge{}
	}
	return &Problem{
		Jobs:       jobs,
		Precedence: edges,
		Aborts:     aborts,
		Processors: m,
	}, nil
}

// ProblemFromJobSet 由展开结果组装调度问题
func ProblemFromJobSet(set *unfold.JobSet, aborts []AbortAction, m int) (*Problem, error) {
	if set == nil {
		return nil, ErrEmptyJobSet
	}
	return BuildProblem(set.Jobs, set.Edges, aborts, m)
}

// checkAborts 中止动作必须指向作业集中的作业，且触发与清理窗口不能倒置
func checkAborts(jobs []unfold.Job, aborts []AbortAction) error {
	if len(aborts) == 0 {
		return nil
	}
	known := make(map[unfold.JobKey]struct{}, len(jobs))
	for _, j := range jobs {
		known[j.Key()] = struct{}{}
	}
	for _, a := range aborts {
		if _, ok := known[a.Key()]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAbortJob, a.Key())
		}
		if a.EarliestTrigger > a.LatestTrigger || a.EarliestCleanup > a.LatestCleanup {
			return fmt.Errorf("%w: %s", ErrInvalidAbort, a.Key())
		}
	}
	return nil
}
