package validator

import (
	"testing"
	"time"

	"github.com/chongpai/chongpai/pkg/model"
)

// 2026-01-05 是周一
func d(day, hour, min int) time.Time {
	return time.Date(2026, 1, day, hour, min, 0, 0, time.UTC)
}

func testCenter(windows ...model.MaintenanceWindow) *model.WorkCenter {
	shifts := make([]model.Shift, 0, 5)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		shifts = append(shifts, model.Shift{Weekday: wd, StartHour: 8, EndHour: 17})
	}
	return &model.WorkCenter{ID: "wc-1", Name: "一号产线", Shifts: shifts, MaintenanceWindows: windows}
}

func testOrder(id string, start, end time.Time, duration int, deps ...string) *model.WorkOrder {
	return &model.WorkOrder{
		ID:              id,
		Number:          "WO-" + id,
		WorkCenterID:    "wc-1",
		StartDate:       start,
		EndDate:         end,
		DurationMinutes: duration,
		DependsOn:       deps,
	}
}

func countByType(violations []model.ConstraintViolation, vt model.ViolationType) int {
	n := 0
	for _, v := range violations {
		if v.Type == vt {
			n++
		}
	}
	return n
}

func TestValidate_ValidSchedule(t *testing.T) {
	orders := []*model.WorkOrder{
		testOrder("a", d(5, 8, 0), d(5, 10, 0), 120),
		testOrder("b", d(5, 10, 0), d(5, 12, 0), 120, "a"),
	}

	violations := NewChecker().Validate(orders, []*model.WorkCenter{testCenter()})
	if len(violations) != 0 {
		t.Errorf("有效方案应无违反项, got %v", violations)
	}
}

func TestValidate_WorkCenterOverlap(t *testing.T) {
	orders := []*model.WorkOrder{
		testOrder("a", d(5, 8, 0), d(5, 11, 0), 180),
		testOrder("b", d(5, 10, 0), d(5, 12, 0), 120),
	}

	violations := NewChecker().Validate(orders, []*model.WorkCenter{testCenter()})
	if countByType(violations, model.ViolationWorkCenterOverlap) == 0 {
		t.Errorf("应检出工作中心重叠, got %v", violations)
	}
}

func TestValidate_AdjacentOrdersNoOverlap(t *testing.T) {
	// 半开区间：一个工单结束时刻等于下一个开始时刻不算重叠
	orders := []*model.WorkOrder{
		testOrder("a", d(5, 8, 0), d(5, 10, 0), 120),
		testOrder("b", d(5, 10, 0), d(5, 12, 0), 120),
	}

	violations := NewChecker().Validate(orders, []*model.WorkCenter{testCenter()})
	if countByType(violations, model.ViolationWorkCenterOverlap) != 0 {
		t.Errorf("相邻工单不应判为重叠, got %v", violations)
	}
}

func TestValidate_DependencyNotMet(t *testing.T) {
	orders := []*model.WorkOrder{
		testOrder("a", d(5, 10, 0), d(5, 12, 0), 120),
		testOrder("b", d(5, 8, 0), d(5, 10, 0), 120, "a"), // 先于前置开始
	}

	violations := NewChecker().Validate(orders, []*model.WorkCenter{testCenter()})
	if countByType(violations, model.ViolationDependencyNotMet) == 0 {
		t.Errorf("应检出依赖违反, got %v", violations)
	}
}

func TestValidate_OutsideShift(t *testing.T) {
	tests := []struct {
		name     string
		order    *model.WorkOrder
		expected int
	}{
		{
			name:     "开始时刻在班次外",
			order:    testOrder("a", d(5, 6, 0), d(5, 9, 0), 60),
			expected: 1,
		},
		{
			name:     "结束时刻在班次外",
			order:    testOrder("a", d(5, 16, 0), d(5, 18, 0), 60),
			expected: 1,
		},
		{
			name:     "周末完全在班次外",
			order:    testOrder("a", d(4, 10, 0), d(4, 12, 0), 120),
			expected: 2,
		},
		{
			name:     "结束恰好在班次结束钟点有效",
			order:    testOrder("a", d(5, 16, 0), d(5, 17, 0), 60),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := NewChecker().Validate([]*model.WorkOrder{tt.order}, []*model.WorkCenter{testCenter()})
			if got := countByType(violations, model.ViolationOutsideShift); got != tt.expected {
				t.Errorf("班次违反数量 = %d, expected %d (%v)", got, tt.expected, violations)
			}
		})
	}
}

func TestValidate_DuringMaintenance(t *testing.T) {
	window := model.MaintenanceWindow{Start: d(5, 10, 0), End: d(5, 12, 0), Reason: "设备保养"}

	tests := []struct {
		name     string
		order    *model.WorkOrder
		expected bool
	}{
		{
			name:     "径直穿过维护窗口",
			order:    testOrder("a", d(5, 9, 0), d(5, 13, 0), 240),
			expected: true,
		},
		{
			name:     "开始时刻落在窗口内",
			order:    testOrder("a", d(5, 10, 30), d(5, 13, 30), 120),
			expected: true,
		},
		{
			name:     "跨越窗口暂停后完成（引擎语义）",
			order:    testOrder("a", d(5, 8, 0), d(5, 15, 0), 300),
			expected: false,
		},
		{
			name:     "与窗口无交集",
			order:    testOrder("a", d(5, 12, 0), d(5, 14, 0), 120),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := NewChecker().Validate([]*model.WorkOrder{tt.order}, []*model.WorkCenter{testCenter(window)})
			got := countByType(violations, model.ViolationDuringMaintenance) > 0
			if got != tt.expected {
				t.Errorf("维护违反检出 = %v, expected %v (%v)", got, tt.expected, violations)
			}
		})
	}
}

func TestValidate_MaintenanceOrdersExempt(t *testing.T) {
	window := model.MaintenanceWindow{Start: d(4, 0, 0), End: d(4, 23, 0)}
	maintenance := testOrder("m", d(4, 0, 0), d(4, 23, 0), 1380)
	maintenance.IsMaintenance = true

	violations := NewChecker().Validate([]*model.WorkOrder{maintenance}, []*model.WorkCenter{testCenter(window)})
	if len(violations) != 0 {
		t.Errorf("维护工单不应参与约束校验, got %v", violations)
	}
}

func TestValidate_UnknownWorkCenter(t *testing.T) {
	order := testOrder("a", d(5, 8, 0), d(5, 10, 0), 120)
	order.WorkCenterID = "wc-ghost"

	violations := NewChecker().Validate([]*model.WorkOrder{order}, []*model.WorkCenter{testCenter()})
	if countByType(violations, model.ViolationUnknownWorkCenter) != 1 {
		t.Errorf("悬空工作中心引用应产生违反项, got %v", violations)
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	// 校验不短路：多类违反同时上报
	orders := []*model.WorkOrder{
		testOrder("a", d(5, 6, 0), d(5, 11, 0), 300),
		testOrder("b", d(5, 10, 0), d(5, 12, 0), 120, "a"),
	}

	violations := NewChecker().Validate(orders, []*model.WorkCenter{testCenter()})
	if countByType(violations, model.ViolationWorkCenterOverlap) == 0 {
		t.Error("应检出工作中心重叠")
	}
	if countByType(violations, model.ViolationDependencyNotMet) == 0 {
		t.Error("应检出依赖违反")
	}
	if countByType(violations, model.ViolationOutsideShift) == 0 {
		t.Error("应检出班次违反")
	}
}

func TestIsValid(t *testing.T) {
	valid := []*model.WorkOrder{testOrder("a", d(5, 8, 0), d(5, 10, 0), 120)}
	invalid := []*model.WorkOrder{testOrder("a", d(4, 8, 0), d(4, 10, 0), 120)}
	centers := []*model.WorkCenter{testCenter()}

	checker := NewChecker()
	if !checker.IsValid(valid, centers) {
		t.Error("IsValid() = false, expected true")
	}
	if checker.IsValid(invalid, centers) {
		t.Error("IsValid() = true, expected false")
	}
}
