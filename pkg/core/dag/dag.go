package dag

import (
	"fmt"
	"sort"

	godag "github.com/begmaroman/go-dag"
)

// dagImpl 基于 go-dag 的DAG实现（内部使用）
type dagImpl struct {
	graph *godag.DAG[*templateNode]
	nodes map[string]*templateNode
}

// BuildDAG 从节点列表和后继关系构建DAG（对外导出）
// nodeIDs: 节点ID列表，顺序即模板中的插入顺序
// successors: 前置节点ID -> 后继节点ID列表
func BuildDAG(nodeIDs []string, successors map[string][]string) (DAG, error) {
	d := &dagImpl{
		graph: godag.NewDAG[*templateNode](),
		nodes: make(map[string]*templateNode, len(nodeIDs)),
	}

	// 1. 添加所有节点
	for i, id := range nodeIDs {
		if _, exists := d.nodes[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
		}
		node := &templateNode{id: id, index: i}
		if err := d.graph.AddVertexByID(id, node); err != nil {
			return nil, fmt.Errorf("添加节点失败: ID=%s, Error=%w", id, err)
		}
		d.nodes[id] = node
	}

	// 2. 构建临时邻接表，先校验引用，再一次性检测循环
	graph := make(map[string][]string, len(nodeIDs))
	for _, id := range nodeIDs {
		graph[id] = make([]string, 0)
	}
	for from, tos := range successors {
		if _, exists := d.nodes[from]; !exists {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, from)
		}
		for _, to := range tos {
			if _, exists := d.nodes[to]; !exists {
				return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownNode, from, to)
			}
			graph[from] = append(graph[from], to)
		}
	}
	if hasCycle, cyclePath := detectCycleDFS(nodeIDs, graph); hasCycle {
		return nil, fmt.Errorf("%w: %v", ErrCycle, cyclePath)
	}

	// 3. 已确认无环，按插入顺序添加边（重复边只添加一次）
	for _, from := range nodeIDs {
		for _, to := range graph[from] {
			if isEdge, _ := d.graph.IsEdge(from, to); isEdge {
				continue
			}
			if err := d.graph.AddEdge(from, to); err != nil {
				return nil, fmt.Errorf("添加边失败: %s -> %s, Error=%w", from, to, err)
			}
		}
	}

	return d, nil
}

// detectCycleDFS 使用DFS三色标记法检测循环
// 按 nodeIDs 顺序遍历，保证报告的循环路径确定
func detectCycleDFS(nodeIDs []string, graph map[string][]string) (bool, []string) {
	// 0=白色（未访问），1=灰色（正在访问），2=黑色（已访问）
	color := make(map[string]int, len(nodeIDs))
	parent := make(map[string]string)
	cyclePath := make([]string, 0)

	var dfs func(nodeID string) bool
	dfs = func(nodeID string) bool {
		color[nodeID] = 1
		for _, childID := range graph[nodeID] {
			switch color[childID] {
			case 0:
				parent[childID] = nodeID
				if dfs(childID) {
					return true
				}
			case 1:
				// 后向边，构建循环路径
				cyclePath = append(cyclePath, childID)
				for cur := nodeID; cur != childID && cur != ""; cur = parent[cur] {
					cyclePath = append(cyclePath, cur)
				}
				cyclePath = append(cyclePath, childID)
				return true
			}
		}
		color[nodeID] = 2
		return false
	}

	for _, nodeID := range nodeIDs {
		if color[nodeID] == 0 && dfs(nodeID) {
			return true, cyclePath
		}
	}
	return false, nil
}

// adjacency 从 go-dag 导出邻接表（按插入顺序）
func (d *dagImpl) adjacency() ([]string, map[string][]string, error) {
	ids := d.orderedIDs()
	graph := make(map[string][]string, len(ids))
	for _, id := range ids {
		children, err := d.GetChildren(id)
		if err != nil {
			return nil, nil, err
		}
		graph[id] = children
	}
	return ids, graph, nil
}

// DetectCycle 检测DAG中是否存在循环依赖（对外导出）
func (d *dagImpl) DetectCycle() error {
	ids, graph, err := d.adjacency()
	if err != nil {
		return err
	}
	if hasCycle, cyclePath := detectCycleDFS(ids, graph); hasCycle {
		return fmt.Errorf("%w: %v", ErrCycle, cyclePath)
	}
	return nil
}

// TopologicalSort 执行拓扑排序（Kahn算法，对外导出）
func (d *dagImpl) TopologicalSort() (*TopologicalOrder, error) {
	if err := d.DetectCycle(); err != nil {
		return nil, fmt.Errorf("存在循环依赖，无法进行拓扑排序: %w", err)
	}

	result := &TopologicalOrder{Levels: make([][]string, 0)}

	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		parents, err := d.GetParents(id)
		if err != nil {
			return nil, err
		}
		inDegree[id] = len(parents)
	}

	queue := d.GetRoots()
	visited := 0
	for len(queue) > 0 {
		result.Levels = append(result.Levels, queue)
		visited += len(queue)

		next := make([]string, 0)
		for _, nodeID := range queue {
			children, err := d.GetChildren(nodeID)
			if err != nil {
				return nil, err
			}
			for _, childID := range children {
				inDegree[childID]--
				if inDegree[childID] == 0 {
					next = append(next, childID)
				}
			}
		}
		d.sortByIndex(next)
		queue = next
	}

	if visited != len(d.nodes) {
		return nil, fmt.Errorf("拓扑排序失败：存在未处理的节点（可能存在环）")
	}
	return result, nil
}

// GetChildren 获取节点的子节点（对外导出）
func (d *dagImpl) GetChildren(nodeID string) ([]string, error) {
	children, err := d.graph.GetChildren(nodeID)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(children))
	for id := range children {
		result = append(result, id)
	}
	d.sortByIndex(result)
	return result, nil
}

// GetParents 获取节点的父节点（对外导出）
func (d *dagImpl) GetParents(nodeID string) ([]string, error) {
	parents, err := d.graph.GetParents(nodeID)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(parents))
	for id := range parents {
		result = append(result, id)
	}
	d.sortByIndex(result)
	return result, nil
}

// GetRoots 获取所有根节点（对外导出）
func (d *dagImpl) GetRoots() []string {
	roots := d.graph.GetRoots()
	result := make([]string, 0, len(roots))
	for id := range roots {
		result = append(result, id)
	}
	d.sortByIndex(result)
	return result
}

// Order 节点数量
func (d *dagImpl) Order() int {
	return len(d.nodes)
}

// Contains 节点是否存在
func (d *dagImpl) Contains(nodeID string) bool {
	_, ok := d.nodes[nodeID]
	return ok
}

func (d *dagImpl) orderedIDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	d.sortByIndex(ids)
	return ids
}

func (d *dagImpl) sortByIndex(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return d.nodes[ids[i]].index < d.nodes[ids[j]].index
	})
}
