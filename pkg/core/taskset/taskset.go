package taskset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Taskset 有序的周期任务集合（对外导出）
// 任务在集合中的下标即展开后作业的 Task ID
type Taskset struct {
	tasks []*Task
}

// New 创建任务集
func New(tasks ...*Task) *Taskset {
	ts := &Taskset{tasks: make([]*Task, 0, len(tasks))}
	ts.tasks = append(ts.tasks, tasks...)
	return ts
}

// Add 追加任务
func (ts *Taskset) Add(t *Task) {
	ts.tasks = append(ts.tasks, t)
}

// Tasks 任务列表（返回副本）
func (ts *Taskset) Tasks() []*Task {
	out := make([]*Task, len(ts.tasks))
	copy(out, ts.tasks)
	return out
}

// Task 按下标获取任务
func (ts *Taskset) Task(i int) *Task {
	return ts.tasks[i]
}

// Len 任务数量
func (ts *Taskset) Len() int {
	return len(ts.tasks)
}

// Validate 校验整个任务集
func (ts *Taskset) Validate() error {
	if len(ts.tasks) == 0 {
		return ErrEmptyTaskset
	}
	for i, t := range ts.tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}
	_, err := ts.Hyperperiod()
	return err
}

// Hyperperiod 计算超周期（所有周期的最小公倍数）
// 每次调用都重新计算，任务集修改后无需失效处理
func (ts *Taskset) Hyperperiod() (int64, error) {
	if len(ts.tasks) == 0 {
		return 0, ErrEmptyTaskset
	}
	hp := int64(1)
	for i, t := range ts.tasks {
		if t.period <= 0 {
			return 0, fmt.Errorf("tasks[%d] %s period=%d: %w", i, t.Label(), t.period, ErrInvalidPeriod)
		}
		next, err := LCM(hp, t.period)
		if err != nil {
			return 0, fmt.Errorf("tasks[%d] %s: %w", i, t.Label(), err)
		}
		hp = next
	}
	return hp, nil
}

// GCD 最大公约数（a、b 需为正数）
func GCD(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM 最小公倍数，结果超出 int64 时返回 ErrHyperperiodOverflow
func LCM(a, b int64) (int64, error) {
	if a <= 0 || b <= 0 {
		return 0, ErrInvalidPeriod
	}
	q := a / GCD(a, b)
	if q > math.MaxInt64/b {
		return 0, fmt.Errorf("lcm(%d, %d): %w", a, b, ErrHyperperiodOverflow)
	}
	return q * b, nil
}

// Fingerprint 任务集结构指纹，用于缓存和运行记录关联
// 名称不参与计算，只反映周期、截止期与模板结构
func (ts *Taskset) Fingerprint() string {
	var sb strings.Builder
	for _, t := range ts.tasks {
		fmt.Fprintf(&sb, "T%d,%d[", t.period, t.deadline)
		for _, v := range t.vertices {
			fmt.Fprintf(&sb, "%d:%d>", v.id, v.cost)
			for _, s := range v.successors {
				fmt.Fprintf(&sb, "%d,", s)
			}
			sb.WriteByte('|')
		}
		sb.WriteByte(']')
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:16])
}
