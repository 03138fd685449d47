package unfold

import (
	"fmt"
	"math"

	"github.com/LENAX/dagsched/pkg/core/taskset"
)

// DefaultMaxJobs 默认的作业数量上限
const DefaultMaxJobs int64 = 5_000_000

// ErrJobSetTooLarge 展开后的作业数量超过上限
var ErrJobSetTooLarge = fmt.Errorf("%w: 展开后的作业数量超过上限", taskset.ErrConfig)

// Options 展开选项
type Options struct {
	MaxJobs int64 // <=0 表示不限制
}

// DefaultOptions 默认展开选项
func DefaultOptions() Options {
	return Options{MaxJobs: DefaultMaxJobs}
}

// Activations 返回 horizon 内完整周期的激活次数
// 最后一个不完整的周期被丢弃而不是补齐；horizon 为周期整数倍时等价于 k*period < horizon 的 k 的个数
func Activations(period, horizon int64) int64 {
	if period <= 0 || horizon <= 0 {
		return 0
	}
	return horizon / period
}

// JobID 计算作业ID
// base 为之前所有任务发射的作业总数，ID 从1开始连续且全局唯一
func JobID(base, activation int64, vertices, index int) int64 {
	return base + activation*int64(vertices) + int64(index) + 1
}

// activationFunc 遍历回调：任务下标、任务、激活序号、该任务的ID基址
type activationFunc func(taskID int, t *taskset.Task, k int64, base int64)

// walk 按任务集顺序、激活序号递增遍历所有激活
// 作业展开和前驱展开共用同一遍历，保证两者的ID推导一致
func walk(ts *taskset.Taskset, hyperperiod int64, fn activationFunc) {
	base := int64(0)
	for x, t := range ts.Tasks() {
		n := Activations(t.Period(), hyperperiod)
		for k := int64(0); k < n; k++ {
			fn(x, t, k, base)
		}
		base += n * int64(t.Len())
	}
}

// CountJobs 不展开直接计算作业总数
// 总数超出 int64 时返回 ErrJobSetTooLarge
func CountJobs(ts *taskset.Taskset) (int64, error) {
	hp, err := ts.Hyperperiod()
	if err != nil {
		return 0, err
	}
	total := int64(0)
	for _, t := range ts.Tasks() {
		n, per := Activations(t.Period(), hp), int64(t.Len())
		if per == 0 || n == 0 {
			continue
		}
		// 乘法和累加都可能溢出 int64
		if n > (math.MaxInt64-total)/per {
			return 0, fmt.Errorf("%w: 任务 %s 的作业数量溢出 (hyperperiod=%d)", ErrJobSetTooLarge, t.Label(), hp)
		}
		total += n * per
	}
	return total, nil
}

// prepare 校验任务集并返回超周期
func prepare(ts *taskset.Taskset, opts Options) (int64, error) {
	if ts == nil {
		return 0, taskset.ErrEmptyTaskset
	}
	if err := ts.Validate(); err != nil {
		return 0, err
	}
	hp, err := ts.Hyperperiod()
	if err != nil {
		return 0, err
	}
	// 不限制数量时也要计数，溢出的作业集同样无法展开
	total, err := CountJobs(ts)
	if err != nil {
		return 0, err
	}
	if opts.MaxJobs > 0 && total > opts.MaxJobs {
		return 0, fmt.Errorf("%w: %d > %d (hyperperiod=%d)", ErrJobSetTooLarge, total, opts.MaxJobs, hp)
	}
	return hp, nil
}

// Unfold 同时展开作业与前驱边并校验结果（对外导出）
func Unfold(ts *taskset.Taskset) (*JobSet, error) {
	return UnfoldWithOptions(ts, DefaultOptions())
}

// UnfoldWithOptions 带选项的展开
func UnfoldWithOptions(ts *taskset.Taskset, opts Options) (*JobSet, error) {
	hp, err := prepare(ts, opts)
	if err != nil {
		return nil, err
	}
	set := &JobSet{
		Hyperperiod: hp,
		Jobs:        unfoldJobs(ts, hp),
		Edges:       unfoldPrecedence(ts, hp),
	}
	if err := Verify(set); err != nil {
		return nil, err
	}
	return set, nil
}

func unfoldJobs(ts *taskset.Taskset, hp int64) []Job {
	jobs := make([]Job, 0)
	walk(ts, hp, func(x int, t *taskset.Task, k int64, base int64) {
		arrival := k * t.Period()
		vertices := t.Vertices()
		for i, v := range vertices {
			jobs = append(jobs, Job{
				TaskID:     x,
				JobID:      JobID(base, k, len(vertices), i),
				Activation: k,
				Vertex:     i,
				SubTaskID:  v.ID(),
				ArrivalMin: arrival,
				ArrivalMax: arrival, // 不考虑抖动
				CostMin:    v.Cost(),
				CostMax:    v.Cost(),
				Deadline:   arrival + t.Deadline(),
				Priority:   t.Period(), // RM
			})
		}
	})
	return jobs
}

func unfoldPrecedence(ts *taskset.Taskset, hp int64) []PrecedenceEdge {
	edges := make([]PrecedenceEdge, 0)
	walk(ts, hp, func(x int, t *taskset.Task, k int64, base int64) {
		vertices := t.Vertices()
		for i, v := range vertices {
			from := JobKey{TaskID: x, JobID: JobID(base, k, len(vertices), i)}
			for _, succID := range v.Successors() {
				// 模板已校验，后继一定存在
				j, _ := t.IndexOf(succID)
				edges = append(edges, PrecedenceEdge{
					From:       from,
					To:         JobKey{TaskID: x, JobID: JobID(base, k, len(vertices), j)},
					Activation: k,
				})
			}
		}
	})
	return edges
}
