package taskset

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/LENAX/dagsched/pkg/core/dag"
)

// Task 周期性DAG任务模型（对外导出）
// vertices 的插入顺序即展开时的发射顺序
type Task struct {
	name     string
	period   int64
	deadline int64
	vertices []*SubTask
	index    map[int]int // 子作业ID -> vertices下标
}

// NewTask 创建周期任务
func NewTask(name string, period, deadline int64) *Task {
	return &Task{
		name:     name,
		period:   period,
		deadline: deadline,
		vertices: make([]*SubTask, 0),
		index:    make(map[int]int),
	}
}

// AddSubTask 追加子作业
// successors 可以引用之后才添加的子作业，引用是否存在在 Validate 时检查
func (t *Task) AddSubTask(id int, cost int64, successors ...int) (*SubTask, error) {
	if cost < 0 {
		return nil, fmt.Errorf("任务 %s 子作业 %d: %w", t.Label(), id, ErrInvalidCost)
	}
	if _, exists := t.index[id]; exists {
		return nil, fmt.Errorf("任务 %s 子作业 %d: %w", t.Label(), id, ErrDuplicateSubTask)
	}
	succ := make([]int, len(successors))
	copy(succ, successors)
	v := &SubTask{id: id, cost: cost, successors: succ}
	t.index[id] = len(t.vertices)
	t.vertices = append(t.vertices, v)
	return v, nil
}

// Name 任务名称（可为空）
func (t *Task) Name() string {
	return t.name
}

// Label 用于日志和错误信息的任务标识
func (t *Task) Label() string {
	if t.name == "" {
		return "<unnamed>"
	}
	return t.name
}

// Period 周期
func (t *Task) Period() int64 {
	return t.period
}

// Deadline 相对截止期
func (t *Task) Deadline() int64 {
	return t.deadline
}

// Vertices 子作业列表（模板顺序）
func (t *Task) Vertices() []*SubTask {
	out := make([]*SubTask, len(t.vertices))
	copy(out, t.vertices)
	return out
}

// Len 子作业数量
func (t *Task) Len() int {
	return len(t.vertices)
}

// IndexOf 返回子作业在模板中的下标
func (t *Task) IndexOf(subTaskID int) (int, bool) {
	i, ok := t.index[subTaskID]
	return i, ok
}

// EdgeCount 模板内的前驱边数量（未去重）
func (t *Task) EdgeCount() int {
	n := 0
	for _, v := range t.vertices {
		n += len(v.successors)
	}
	return n
}

// Validate 校验任务参数与模板DAG
func (t *Task) Validate() error {
	if t.period <= 0 {
		return fmt.Errorf("任务 %s period=%d: %w", t.Label(), t.period, ErrInvalidPeriod)
	}
	if t.deadline <= 0 {
		return fmt.Errorf("任务 %s deadline=%d: %w", t.Label(), t.deadline, ErrInvalidDeadline)
	}
	if _, err := t.Template(); err != nil {
		return err
	}
	return nil
}

// Template 将子作业模板构建为DAG
func (t *Task) Template() (dag.DAG, error) {
	ids := make([]string, len(t.vertices))
	successors := make(map[string][]string, len(t.vertices))
	for i, v := range t.vertices {
		ids[i] = strconv.Itoa(v.id)
		if len(v.successors) == 0 {
			continue
		}
		succ := make([]string, len(v.successors))
		for j, s := range v.successors {
			succ[j] = strconv.Itoa(s)
		}
		successors[ids[i]] = succ
	}

	d, err := dag.BuildDAG(ids, successors)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, dag.ErrUnknownNode):
		return nil, fmt.Errorf("任务 %s: %w (%v)", t.Label(), ErrUnknownSuccessor, err)
	case errors.Is(err, dag.ErrCycle):
		return nil, fmt.Errorf("任务 %s: %w (%v)", t.Label(), ErrCyclicTemplate, err)
	case errors.Is(err, dag.ErrDuplicateNode):
		return nil, fmt.Errorf("任务 %s: %w (%v)", t.Label(), ErrDuplicateSubTask, err)
	default:
		return nil, fmt.Errorf("任务 %s 构建模板DAG失败: %w", t.Label(), err)
	}
}
