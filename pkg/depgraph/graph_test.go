package depgraph

import (
	"testing"

	"github.com/chongpai/chongpai/pkg/errors"
	"github.com/chongpai/chongpai/pkg/model"
)

func order(id string, deps ...string) *model.WorkOrder {
	return &model.WorkOrder{ID: id, Number: "WO-" + id, DependsOn: deps}
}

func TestNew_UnknownDependency(t *testing.T) {
	_, err := New([]*model.WorkOrder{
		order("a"),
		order("b", "missing"),
	})
	if err == nil {
		t.Fatal("引用不存在的前置工单时应构建失败")
	}
	if !errors.Is(err, errors.CodeUnknownDependency) {
		t.Errorf("错误码 = %v, expected %v", errors.GetCode(err), errors.CodeUnknownDependency)
	}
}

func TestTopologicalSort(t *testing.T) {
	orders := []*model.WorkOrder{
		order("a"),
		order("b", "a"),
		order("c", "a"),
		order("d", "b", "c"),
		order("e"),
	}

	g, err := New(orders)
	if err != nil {
		t.Fatalf("New() 返回错误: %v", err)
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() 返回错误: %v", err)
	}

	if len(sorted) != len(orders) {
		t.Fatalf("排序产出数量 = %d, expected %d", len(sorted), len(orders))
	}

	// 每个工单的所有前置都出现在其之前
	position := make(map[string]int, len(sorted))
	for i, wo := range sorted {
		position[wo.ID] = i
	}
	for _, wo := range orders {
		for _, dep := range wo.DependsOn {
			if position[dep] >= position[wo.ID] {
				t.Errorf("前置工单 %s 应排在 %s 之前", dep, wo.ID)
			}
		}
	}
}

func TestTopologicalSort_Deterministic(t *testing.T) {
	// 无依赖关系的节点按输入顺序产出
	orders := []*model.WorkOrder{order("c"), order("a"), order("b")}
	g, err := New(orders)
	if err != nil {
		t.Fatalf("New() 返回错误: %v", err)
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("TopologicalSort() 返回错误: %v", err)
	}

	for i, expected := range []string{"c", "a", "b"} {
		if sorted[i].ID != expected {
			t.Errorf("sorted[%d] = %s, expected %s", i, sorted[i].ID, expected)
		}
	}
}

func TestCycleDetection(t *testing.T) {
	orders := []*model.WorkOrder{
		order("a", "c"),
		order("b", "a"),
		order("c", "b"),
		order("d"),
	}

	g, err := New(orders)
	if err != nil {
		t.Fatalf("New() 返回错误: %v", err)
	}

	if !g.HasCycles() {
		t.Fatal("HasCycles() = false, expected true")
	}

	cycle := g.FindCycle()
	if len(cycle) == 0 {
		t.Fatal("FindCycle() 应返回非空环路")
	}

	// 环路中每对相邻ID都是真实依赖边，末尾元素依赖首元素（闭环）
	isEdge := func(parent, child string) bool {
		children, err := g.Children(parent)
		if err != nil {
			return false
		}
		for _, c := range children {
			if c == child {
				return true
			}
		}
		return false
	}
	for i := 0; i < len(cycle)-1; i++ {
		if !isEdge(cycle[i], cycle[i+1]) {
			t.Errorf("%s -> %s 不是真实依赖边", cycle[i], cycle[i+1])
		}
	}
	if !isEdge(cycle[len(cycle)-1], cycle[0]) {
		t.Errorf("环路未闭合: %s -> %s 不是真实依赖边", cycle[len(cycle)-1], cycle[0])
	}

	if _, err := g.TopologicalSort(); err == nil {
		t.Error("存在环时 TopologicalSort() 应返回错误")
	} else if !errors.Is(err, errors.CodeCircularDependency) {
		t.Errorf("错误码 = %v, expected %v", errors.GetCode(err), errors.CodeCircularDependency)
	}
}

func TestNoCycle(t *testing.T) {
	g, err := New([]*model.WorkOrder{
		order("a"),
		order("b", "a"),
		order("c", "a", "b"),
	})
	if err != nil {
		t.Fatalf("New() 返回错误: %v", err)
	}

	if g.HasCycles() {
		t.Error("HasCycles() = true, expected false")
	}
	if cycle := g.FindCycle(); cycle != nil {
		t.Errorf("FindCycle() = %v, expected nil", cycle)
	}
}

func TestParentsChildren(t *testing.T) {
	g, err := New([]*model.WorkOrder{
		order("a"),
		order("b", "a"),
		order("c", "a"),
	})
	if err != nil {
		t.Fatalf("New() 返回错误: %v", err)
	}

	parents, err := g.Parents("b")
	if err != nil {
		t.Fatalf("Parents() 返回错误: %v", err)
	}
	if len(parents) != 1 || parents[0] != "a" {
		t.Errorf("Parents(b) = %v, expected [a]", parents)
	}

	children, err := g.Children("a")
	if err != nil {
		t.Fatalf("Children() 返回错误: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("Children(a) 数量 = %d, expected 2", len(children))
	}

	if _, err := g.Parents("unknown"); err == nil {
		t.Error("未知ID应返回错误")
	}
	if _, err := g.Children("unknown"); err == nil {
		t.Error("未知ID应返回错误")
	}
}

func TestCanStart(t *testing.T) {
	g, err := New([]*model.WorkOrder{
		order("a"),
		order("b", "a"),
	})
	if err != nil {
		t.Fatalf("New() 返回错误: %v", err)
	}

	tests := []struct {
		name      string
		id        string
		completed map[string]bool
		expected  bool
	}{
		{"无前置随时可开始", "a", map[string]bool{}, true},
		{"前置未完成不可开始", "b", map[string]bool{}, false},
		{"前置已完成可开始", "b", map[string]bool{"a": true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.CanStart(tt.id, tt.completed)
			if err != nil {
				t.Fatalf("CanStart() 返回错误: %v", err)
			}
			if got != tt.expected {
				t.Errorf("CanStart(%s) = %v, expected %v", tt.id, got, tt.expected)
			}
		})
	}

	if _, err := g.CanStart("unknown", nil); err == nil {
		t.Error("未知ID应返回错误")
	}
}
