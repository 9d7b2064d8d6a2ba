// Package depgraph 提供工单依赖图（环检测、拓扑排序、就绪查询）
package depgraph

import (
	"github.com/chongpai/chongpai/pkg/errors"
	"github.com/chongpai/chongpai/pkg/model"
)

// Graph 工单依赖图
// parent → children 邻接表 + 入度表，节点按输入顺序保存以保证拓扑排序确定性。
type Graph struct {
	nodes    map[string]*model.WorkOrder
	order    []string // 插入顺序
	children map[string][]string
	parents  map[string][]string
	inDegree map[string]int
}

// New 从工单列表构建依赖图。
// 任一工单声明了不存在的前置工单ID时构建失败。
func New(orders []*model.WorkOrder) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]*model.WorkOrder, len(orders)),
		order:    make([]string, 0, len(orders)),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
		inDegree: make(map[string]int, len(orders)),
	}

	for _, wo := range orders {
		g.nodes[wo.ID] = wo
		g.order = append(g.order, wo.ID)
		g.inDegree[wo.ID] = 0
	}

	for _, wo := range orders {
		for _, dep := range wo.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, errors.UnknownDependency(wo.ID, dep)
			}
			g.children[dep] = append(g.children[dep], wo.ID)
			g.parents[wo.ID] = append(g.parents[wo.ID], dep)
			g.inDegree[wo.ID]++
		}
	}

	return g, nil
}

// Size 返回节点数
func (g *Graph) Size() int {
	return len(g.order)
}

// HasCycles 检查依赖关系是否成环（DFS + 递归栈）
func (g *Graph) HasCycles() bool {
	return g.FindCycle() != nil
}

// FindCycle 返回一条环路（首尾相接的工单ID序列）；无环时返回 nil。
// 返回序列中每对相邻ID都是一条真实依赖边，末尾元素依赖首元素。
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool, len(g.order))
	onStack := make(map[string]bool, len(g.order))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, child := range g.children[id] {
			if onStack[child] {
				// 回边：从 child 首次入栈处截取环路
				for i, sid := range stack {
					if sid == child {
						cycle = append([]string{}, stack[i:]...)
						return true
					}
				}
			}
			if !visited[child] && visit(child) {
				return true
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range g.order {
		if !visited[id] && visit(id) {
			return cycle
		}
	}
	return nil
}

// TopologicalSort 返回拓扑排序后的工单列表（Kahn 算法）。
// 同入度节点按输入顺序出队，输出确定。存在环时返回循环依赖错误；
// 排序产出数量少于节点数时同样报错（防御性复核）。
func (g *Graph) TopologicalSort() ([]*model.WorkOrder, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, errors.CircularDependency(cycle)
	}

	inDegree := make(map[string]int, len(g.inDegree))
	for id, d := range g.inDegree {
		inDegree[id] = d
	}

	queue := make([]string, 0, len(g.order))
	for _, id := range g.order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	sorted := make([]*model.WorkOrder, 0, len(g.order))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, g.nodes[id])

		for _, child := range g.children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(sorted) != len(g.order) {
		return nil, errors.New(errors.CodeCircularDependency, "拓扑排序产出不完整，依赖关系存在环")
	}

	return sorted, nil
}

// Parents 返回工单的直接前置工单ID
func (g *Graph) Parents(id string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, errors.NotFound("工单", id)
	}
	return g.parents[id], nil
}

// Children 返回工单的直接后继工单ID
func (g *Graph) Children(id string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, errors.NotFound("工单", id)
	}
	return g.children[id], nil
}

// CanStart 检查工单的所有前置是否都已完成
func (g *Graph) CanStart(id string, completed map[string]bool) (bool, error) {
	parents, err := g.Parents(id)
	if err != nil {
		return false, err
	}
	for _, p := range parents {
		if !completed[p] {
			return false, nil
		}
	}
	return true, nil
}

// Get 按ID查找工单
func (g *Graph) Get(id string) (*model.WorkOrder, bool) {
	wo, ok := g.nodes[id]
	return wo, ok
}
