package taskset

// SubTask DAG模板中的一个子作业（顶点）
// 由所属Task创建，创建后不可修改
type SubTask struct {
	id         int
	cost       int64
	successors []int
}

// ID 子作业ID（在所属Task模板内唯一）
func (s *SubTask) ID() int {
	return s.id
}

// Cost 执行时间
func (s *SubTask) Cost() int64 {
	return s.cost
}

// Successors 后继子作业ID列表（返回副本）
func (s *SubTask) Successors() []int {
	out := make([]int, len(s.successors))
	copy(out, s.successors)
	return out
}
