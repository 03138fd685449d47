package dag

// DAG 有向无环图接口（对外导出）
// 用于描述单个周期任务内部的子作业模板，节点ID即子作业ID的字符串形式
type DAG interface {
	// DetectCycle 检测DAG中是否存在循环依赖
	DetectCycle() error
	// TopologicalSort 执行拓扑排序，同层节点按插入顺序排列
	TopologicalSort() (*TopologicalOrder, error)
	// GetChildren 获取节点的子节点（按插入顺序）
	GetChildren(nodeID string) ([]string, error)
	// GetParents 获取节点的父节点（按插入顺序）
	GetParents(nodeID string) ([]string, error)
	// GetRoots 获取所有根节点（入度为0的节点）
	GetRoots() []string
	// Order 节点数量
	Order() int
	// Contains 节点是否存在
	Contains(nodeID string) bool
}
