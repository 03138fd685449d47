package unfold

import (
	"errors"
	"fmt"
)

// ErrUnfoldingDefect 展开结果违反内部不变式（ID冲突、悬空边、跨激活边）
// 出现即说明展开实现有缺陷，不属于可恢复的输入错误
var ErrUnfoldingDefect = errors.New("展开结果违反内部不变式")

// Verify 校验展开结果
func Verify(set *JobSet) error {
	byID := make(map[int64]int, len(set.Jobs))
	for i, j := range set.Jobs {
		if prev, exists := byID[j.JobID]; exists {
			return fmt.Errorf("%w: 作业ID %d 重复 (jobs[%d], jobs[%d])", ErrUnfoldingDefect, j.JobID, prev, i)
		}
		byID[j.JobID] = i
		if set.Hyperperiod > 0 && (j.ArrivalMin < 0 || j.ArrivalMin >= set.Hyperperiod) {
			return fmt.Errorf("%w: 作业 %s 到达时间 %d 超出超周期 %d", ErrUnfoldingDefect, j.Key(), j.ArrivalMin, set.Hyperperiod)
		}
	}

	for i, e := range set.Edges {
		fi, ok := byID[e.From.JobID]
		if !ok {
			return fmt.Errorf("%w: edges[%d] 前驱 %s 不存在", ErrUnfoldingDefect, i, e.From)
		}
		ti, ok := byID[e.To.JobID]
		if !ok {
			return fmt.Errorf("%w: edges[%d] 后继 %s 不存在", ErrUnfoldingDefect, i, e.To)
		}
		from, to := set.Jobs[fi], set.Jobs[ti]
		if from.TaskID != e.From.TaskID || to.TaskID != e.To.TaskID || from.TaskID != to.TaskID {
			return fmt.Errorf("%w: edges[%d] %s -> %s 跨越任务", ErrUnfoldingDefect, i, e.From, e.To)
		}
		if from.Activation != to.Activation || from.Activation != e.Activation {
			return fmt.Errorf("%w: edges[%d] %s -> %s 跨越激活", ErrUnfoldingDefect, i, e.From, e.To)
		}
	}
	return nil
}
