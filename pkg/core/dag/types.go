package dag

import (
	"crypto/sha256"
	"errors"

	godag "github.com/begmaroman/go-dag"
)

var (
	// ErrCycle 模板图中存在循环依赖
	ErrCycle = errors.New("检测到循环依赖")
	// ErrDuplicateNode 节点ID重复
	ErrDuplicateNode = errors.New("节点ID重复")
	// ErrUnknownNode 边引用了不存在的节点
	ErrUnknownNode = errors.New("节点不存在")
)

// TopologicalOrder 拓扑排序结果（对外导出）
type TopologicalOrder struct {
	Levels [][]string // 每一层的节点ID列表，同层节点之间没有先后约束
}

// Flatten 按层展开拓扑序
func (o *TopologicalOrder) Flatten() []string {
	result := make([]string, 0)
	for _, level := range o.Levels {
		result = append(result, level...)
	}
	return result
}

// templateNode go-dag 顶点（实现 Identifiable 和 Hashable 接口）
// 字段均未导出，go-dag 默认的 JSON 哈希会让所有节点哈希相同，因此按ID计算哈希
type templateNode struct {
	id    string
	index int // 插入顺序，用于保证输出确定
}

// ID 实现 Identifiable 接口
func (n *templateNode) ID() string {
	return n.id
}

// Hash 实现 Hashable 接口，ID 在同一个模板内唯一
func (n *templateNode) Hash() (godag.VHash, error) {
	return sha256.Sum256([]byte(n.id)), nil
}
