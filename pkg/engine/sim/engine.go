// Package sim 进程内的非抢占全局固定优先级调度仿真
//
// 作业到达与执行时间均为单点时调度是确定的，一次仿真即可给出结论。
// 优先级数值越小越优先，相同时按到达时间、任务下标、作业ID决定。
package sim

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/LENAX/dagsched/pkg/core/analysis"
	"github.com/LENAX/dagsched/pkg/core/unfold"
)

// ErrDeadlock 存在无法满足的前驱约束
var ErrDeadlock = errors.New("仿真停滞：前驱约束无法满足")

// ErrUncertainJob 作业的到达或执行时间不是单点
var ErrUncertainJob = errors.New("仿真只支持单点到达与执行时间")

// Engine 仿真引擎（对外导出）
type Engine struct{}

// New 创建仿真引擎
func New() *Engine {
	return &Engine{}
}

// Name 引擎名称
func (e *Engine) Name() string {
	return "sim"
}

type simJob struct {
	job     unfold.Job
	succs   []int
	waiting int   // 尚未分派的前驱数量
	readyAt int64 // 到达且所有已分派前驱完成的时刻
	rank    int   // 优先级次序
}

// Explore 执行一次仿真
// 中止动作不参与仿真；EarlyExit 时遇到第一个截止期错过即停止
func (e *Engine) Explore(ctx context.Context, p *analysis.Problem, opts analysis.Options) (analysis.Space, error) {
	begin := time.Now()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	jobs, err := prepare(p)
	if err != nil {
		return nil, err
	}

	// released: 前驱都已分派、按 readyAt 排序；pending: 当前时刻可分派、按优先级排序
	released := &jobHeap{less: func(a, b int) bool {
		if jobs[a].readyAt != jobs[b].readyAt {
			return jobs[a].readyAt < jobs[b].readyAt
		}
		return jobs[a].rank < jobs[b].rank
	}}
	pending := &jobHeap{less: func(a, b int) bool { return jobs[a].rank < jobs[b].rank }}
	for i := range jobs {
		if jobs[i].waiting == 0 {
			released.items = append(released.items, i)
		}
	}
	heap.Init(released)

	procs := make(procHeap, p.Processors)
	sp := &space{finish: make(map[unfold.JobKey]analysis.Interval, len(jobs)), schedulable: true}
	remaining := len(jobs)
	now := int64(0)

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			sp.schedulable = false
			sp.timedOut = true
			break
		}

		// 当前时刻尽可能多地分派作业（零执行时间的作业会立即释放其后继）
		for {
			for released.Len() > 0 && jobs[released.items[0]].readyAt <= now {
				heap.Push(pending, heap.Pop(released))
			}
			if pending.Len() == 0 || procs[0] > now {
				break
			}
			i := heap.Pop(pending).(int)
			j := &jobs[i]
			finish := now + j.job.CostMax
			procs[0] = finish
			heap.Fix(&procs, 0)
			remaining--

			sp.finish[j.job.Key()] = analysis.Interval{From: finish, Until: finish}
			if finish > j.job.Deadline {
				sp.schedulable = false
			}
			for _, s := range j.succs {
				succ := &jobs[s]
				succ.waiting--
				if finish > succ.readyAt {
					succ.readyAt = finish
				}
				if succ.waiting == 0 {
					heap.Push(released, s)
				}
			}
		}
		if remaining == 0 || (!sp.schedulable && opts.EarlyExit) {
			break
		}

		next := nextEvent(jobs, released, procs, now)
		if next == math.MaxInt64 {
			return nil, fmt.Errorf("%w: 剩余 %d 个作业", ErrDeadlock, remaining)
		}
		now = next
	}

	sp.cpu = time.Since(begin)
	return sp, nil
}

func prepare(p *analysis.Problem) ([]simJob, error) {
	jobs := make([]simJob, len(p.Jobs))
	index := make(map[unfold.JobKey]int, len(p.Jobs))
	for i, j := range p.Jobs {
		if j.ArrivalMin != j.ArrivalMax || j.CostMin != j.CostMax {
			return nil, fmt.Errorf("%w: %s", ErrUncertainJob, j.Key())
		}
		jobs[i] = simJob{job: j, readyAt: j.ArrivalMin}
		index[j.Key()] = i
	}
	for _, e := range p.Precedence {
		from, ok := index[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: 未知前驱 %s", ErrDeadlock, e.From)
		}
		to, ok := index[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: 未知后继 %s", ErrDeadlock, e.To)
		}
		jobs[from].succs = append(jobs[from].succs, to)
		jobs[to].waiting++
	}

	order := make([]int, len(jobs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := jobs[order[a]].job, jobs[order[b]].job
		if x.Priority != y.Priority {
			return x.Priority < y.Priority
		}
		if x.ArrivalMin != y.ArrivalMin {
			return x.ArrivalMin < y.ArrivalMin
		}
		if x.TaskID != y.TaskID {
			return x.TaskID < y.TaskID
		}
		return x.JobID < y.JobID
	})
	for k, i := range order {
		jobs[i].rank = k
	}
	return jobs, nil
}

// nextEvent 下一个处理器空闲或作业就绪的时刻
func nextEvent(jobs []simJob, released *jobHeap, procs procHeap, now int64) int64 {
	next := int64(math.MaxInt64)
	for _, t := range procs {
		if t > now && t < next {
			next = t
		}
	}
	if released.Len() > 0 {
		if t := jobs[released.items[0]].readyAt; t > now && t < next {
			next = t
		}
	}
	return next
}

// jobHeap 作业下标的最小堆
type jobHeap struct {
	items []int
	less  func(a, b int) bool
}

func (h *jobHeap) Len() int           { return len(h.items) }
func (h *jobHeap) Less(a, b int) bool { return h.less(h.items[a], h.items[b]) }
func (h *jobHeap) Swap(a, b int)      { h.items[a], h.items[b] = h.items[b], h.items[a] }
func (h *jobHeap) Push(x any)         { h.items = append(h.items, x.(int)) }

func (h *jobHeap) Pop() any {
	n := len(h.items)
	x := h.items[n-1]
	h.items = h.items[:n-1]
	return x
}

// procHeap 各处理器空闲时刻的最小堆
type procHeap []int64

func (h procHeap) Len() int           { return len(h) }
func (h procHeap) Less(a, b int) bool { return h[a] < h[b] }
func (h procHeap) Swap(a, b int)      { h[a], h[b] = h[b], h[a] }
func (h *procHeap) Push(x any)        { *h = append(*h, x.(int64)) }

func (h *procHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type space struct {
	schedulable bool
	timedOut    bool
	cpu         time.Duration
	finish      map[unfold.JobKey]analysis.Interval
}

func (s *space) IsSchedulable() bool    { return s.schedulable }
func (s *space) CPUTime() time.Duration { return s.cpu }

func (s *space) FinishTimes(j unfold.Job) (analysis.Interval, bool) {
	iv, ok := s.finish[j.Key()]
	return iv, ok
}
