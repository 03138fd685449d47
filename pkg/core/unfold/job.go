package unfold

import "fmt"

// JobKey 作业在展开集合中的全局标识
type JobKey struct {
	TaskID int
	JobID  int64
}

// String 格式化为 [task, job]
func (k JobKey) String() string {
	return fmt.Sprintf("[%d, %d]", k.TaskID, k.JobID)
}

// Job 展开后的作业实例（对外导出）
// 到达与执行时间窗口均退化为单点：不建模抖动与执行时间波动
type Job struct {
	TaskID     int   // 任务在任务集中的下标
	JobID      int64 // 全局唯一作业ID
	Activation int64 // 激活序号，从0开始
	Vertex     int   // 子作业在模板中的下标
	SubTaskID  int   // 模板中的子作业ID
	ArrivalMin int64
	ArrivalMax int64
	CostMin    int64
	CostMax    int64
	Deadline   int64 // 绝对截止期
	Priority   int64 // 速率单调优先级，等于任务周期
}

// Key 作业全局标识
func (j Job) Key() JobKey {
	return JobKey{TaskID: j.TaskID, JobID: j.JobID}
}

// EarliestArrival 最早到达时间
func (j Job) EarliestArrival() int64 {
	return j.ArrivalMin
}

// PrecedenceEdge 展开后的前驱约束（对外导出）
// 两端总是属于同一任务的同一次激活
type PrecedenceEdge struct {
	From       JobKey
	To         JobKey
	Activation int64
}

// JobSet 一次展开的完整结果
type JobSet struct {
	Hyperperiod int64
	Jobs        []Job
	Edges       []PrecedenceEdge
}

// Len 作业数量
func (s *JobSet) Len() int {
	return len(s.Jobs)
}

// Index 建立 JobKey -> Jobs 下标的索引
func (s *JobSet) Index() map[JobKey]int {
	idx := make(map[JobKey]int, len(s.Jobs))
	for i, j := range s.Jobs {
		idx[j.Key()] = i
	}
	return idx
}

// JobsOfTask 某个任务的全部作业（保持展开顺序）
func (s *JobSet) JobsOfTask(taskID int) []Job {
	out := make([]Job, 0)
	for _, j := range s.Jobs {
		if j.TaskID == taskID {
			out = append(out, j)
		}
	}
	return out
}
