package shiftcalc

import (
	"testing"
	"time"

	"github.com/chongpai/chongpai/pkg/errors"
	"github.com/chongpai/chongpai/pkg/model"
)

// 2026-01-05 是周一
func d(day, hour, min int) time.Time {
	return time.Date(2026, 1, day, hour, min, 0, 0, time.UTC)
}

// weekdayShifts 周一到周五 08:00-17:00
func weekdayShifts() []model.Shift {
	shifts := make([]model.Shift, 0, 5)
	for wd := time.Monday; wd <= time.Friday; wd++ {
		shifts = append(shifts, model.Shift{Weekday: wd, StartHour: 8, EndHour: 17})
	}
	return shifts
}

func TestCalculateEndDate(t *testing.T) {
	shifts := weekdayShifts()

	tests := []struct {
		name     string
		start    time.Time
		duration int
		windows  []model.MaintenanceWindow
		expected time.Time
	}{
		{
			name:     "班次内当天完成",
			start:    d(5, 8, 0),
			duration: 60,
			expected: d(5, 9, 0),
		},
		{
			name:     "完成时刻为精确分钟",
			start:    d(5, 8, 0),
			duration: 95,
			expected: d(5, 9, 35),
		},
		{
			name:     "跨班次到次日",
			start:    d(5, 16, 0), // 周一 16:00
			duration: 120,
			expected: d(6, 9, 0), // 周一 60 分钟 + 周二 60 分钟
		},
		{
			name:     "跨周末顺延到周一",
			start:    d(9, 16, 0), // 周五 16:00
			duration: 120,
			expected: d(12, 9, 0), // 下周一 09:00
		},
		{
			name:     "维护窗口内暂停后同日恢复",
			start:    d(5, 8, 0),
			duration: 300,
			windows: []model.MaintenanceWindow{
				{Start: d(5, 10, 0), End: d(5, 12, 0), Reason: "设备保养"},
			},
			expected: d(5, 15, 0), // 维护前 120 分钟 + 维护后 180 分钟
		},
		{
			name:     "维护窗口覆盖开始时刻",
			start:    d(5, 8, 0),
			duration: 60,
			windows: []model.MaintenanceWindow{
				{Start: d(5, 7, 0), End: d(5, 10, 0)},
			},
			expected: d(5, 11, 0),
		},
		{
			name:     "维护窗口延伸到班次结束",
			start:    d(5, 15, 0),
			duration: 120,
			windows: []model.MaintenanceWindow{
				{Start: d(5, 16, 0), End: d(5, 20, 0)},
			},
			expected: d(6, 9, 0), // 周一 60 分钟 + 周二 60 分钟
		},
		{
			name:     "整班次工单恰好在班次结束完成",
			start:    d(5, 8, 0),
			duration: 540,
			expected: d(5, 17, 0),
		},
		{
			name:     "重叠的维护窗口合并生效",
			start:    d(5, 8, 0),
			duration: 180,
			windows: []model.MaintenanceWindow{
				{Start: d(5, 9, 0), End: d(5, 11, 0)},
				{Start: d(5, 10, 0), End: d(5, 12, 0)},
			},
			expected: d(5, 14, 0), // 08-09 一小时 + 12-14 两小时
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end, err := CalculateEndDate(tt.start, tt.duration, shifts, tt.windows)
			if err != nil {
				t.Fatalf("CalculateEndDate() 返回错误: %v", err)
			}
			if !end.Equal(tt.expected) {
				t.Errorf("CalculateEndDate() = %v, expected %v", end, tt.expected)
			}
		})
	}
}

func TestCalculateEndDate_NoShifts(t *testing.T) {
	_, err := CalculateEndDate(d(5, 8, 0), 60, nil, nil)
	if err == nil {
		t.Fatal("无班次配置时应返回错误")
	}
	if !errors.Is(err, errors.CodeSchedulingBoundExceeded) {
		t.Errorf("错误码 = %v, expected %v", errors.GetCode(err), errors.CodeSchedulingBoundExceeded)
	}
}

func TestCalculateEndDate_InvalidDuration(t *testing.T) {
	for _, duration := range []int{0, -30} {
		if _, err := CalculateEndDate(d(5, 8, 0), duration, weekdayShifts(), nil); err == nil {
			t.Errorf("duration=%d 应返回错误", duration)
		}
	}
}

func TestOverlapsMaintenance(t *testing.T) {
	windows := []model.MaintenanceWindow{
		{Start: d(5, 10, 0), End: d(5, 12, 0)},
	}

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected bool
	}{
		{"完全在窗口前", d(5, 8, 0), d(5, 10, 0), false}, // 半开区间：end == 窗口start 不算重叠
		{"完全在窗口后", d(5, 12, 0), d(5, 14, 0), false},
		{"部分重叠", d(5, 9, 0), d(5, 11, 0), true},
		{"完全包含窗口", d(5, 8, 0), d(5, 14, 0), true},
		{"被窗口包含", d(5, 10, 30), d(5, 11, 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverlapsMaintenance(tt.start, tt.end, windows); got != tt.expected {
				t.Errorf("OverlapsMaintenance() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestIsDuringShift(t *testing.T) {
	shifts := weekdayShifts()

	tests := []struct {
		name     string
		t        time.Time
		expected bool
	}{
		{"班次开始时刻", d(5, 8, 0), true},
		{"班次中间", d(5, 12, 30), true},
		{"班次结束时刻不在班次内", d(5, 17, 0), false}, // 半开区间 [8, 17)
		{"班次前", d(5, 7, 59), false},
		{"周末无班次", d(4, 10, 0), false}, // 周日
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuringShift(tt.t, shifts); got != tt.expected {
				t.Errorf("IsDuringShift(%v) = %v, expected %v", tt.t, got, tt.expected)
			}
		})
	}
}

func TestIsValidEndInstant(t *testing.T) {
	shifts := weekdayShifts()

	tests := []struct {
		name     string
		t        time.Time
		expected bool
	}{
		{"班次中间", d(5, 12, 0), true},
		{"恰好班次结束钟点有效", d(5, 17, 0), true}, // 结束时刻采用 (start, end] 约定
		{"班次结束后无效", d(5, 17, 1), false},
		{"恰好班次开始钟点无效", d(5, 8, 0), false}, // 零时长完成
		{"班次开始后一分钟", d(5, 8, 1), true},
		{"周末无效", d(4, 12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEndInstant(tt.t, shifts); got != tt.expected {
				t.Errorf("IsValidEndInstant(%v) = %v, expected %v", tt.t, got, tt.expected)
			}
		})
	}
}

func TestTimePeriodsOverlap(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		expected       bool
	}{
		{"相邻不重叠", d(5, 8, 0), d(5, 10, 0), d(5, 10, 0), d(5, 12, 0), false},
		{"部分重叠", d(5, 8, 0), d(5, 11, 0), d(5, 10, 0), d(5, 12, 0), true},
		{"对称性", d(5, 10, 0), d(5, 12, 0), d(5, 8, 0), d(5, 11, 0), true},
		{"完全分离", d(5, 8, 0), d(5, 9, 0), d(5, 10, 0), d(5, 11, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimePeriodsOverlap(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.expected {
				t.Errorf("TimePeriodsOverlap() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestFindNextShiftStart(t *testing.T) {
	shifts := weekdayShifts()

	tests := []struct {
		name     string
		from     time.Time
		expected time.Time
	}{
		{"班次中途取次日开始", d(5, 10, 0), d(6, 8, 0)}, // 严格晚于 from 的班次开始
		{"班次开始前取当日开始", d(5, 6, 0), d(5, 8, 0)},
		{"周五晚上取下周一", d(9, 20, 0), d(12, 8, 0)},
		{"周日取周一", d(4, 12, 0), d(5, 8, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindNextShiftStart(tt.from, shifts)
			if err != nil {
				t.Fatalf("FindNextShiftStart() 返回错误: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("FindNextShiftStart(%v) = %v, expected %v", tt.from, got, tt.expected)
			}
		})
	}
}

func TestFindNextShiftStart_NoShift(t *testing.T) {
	_, err := FindNextShiftStart(d(5, 8, 0), nil)
	if err == nil {
		t.Fatal("无班次时应返回错误")
	}
	if !errors.Is(err, errors.CodeNoShiftFound) {
		t.Errorf("错误码 = %v, expected %v", errors.GetCode(err), errors.CodeNoShiftFound)
	}
}

func TestEarliestStartTime(t *testing.T) {
	shifts := weekdayShifts()

	tests := []struct {
		name          string
		parentEnds    []time.Time
		availableFrom time.Time
		windows       []model.MaintenanceWindow
		expected      time.Time
	}{
		{
			name:          "无前置取工作中心空闲时刻",
			parentEnds:    nil,
			availableFrom: d(5, 9, 0),
			expected:      d(5, 9, 0),
		},
		{
			name:          "前置完成晚于空闲时刻",
			parentEnds:    []time.Time{d(5, 10, 0), d(5, 11, 0)},
			availableFrom: d(5, 9, 0),
			expected:      d(5, 11, 0),
		},
		{
			name:          "落在班次外对齐到下一班次",
			parentEnds:    []time.Time{d(5, 17, 0)}, // 周一班次结束
			availableFrom: d(5, 9, 0),
			expected:      d(6, 8, 0), // 周二班次开始
		},
		{
			name:          "班次内原样使用",
			parentEnds:    []time.Time{d(5, 14, 30)},
			availableFrom: d(5, 8, 0),
			expected:      d(5, 14, 30),
		},
		{
			name:          "落在维护窗口内推进到窗口结束",
			parentEnds:    nil,
			availableFrom: d(5, 11, 0),
			windows: []model.MaintenanceWindow{
				{Start: d(5, 10, 0), End: d(5, 12, 0)},
			},
			expected: d(5, 12, 0),
		},
		{
			name:          "窗口结束在班次外则顺延到下一班次",
			parentEnds:    nil,
			availableFrom: d(5, 16, 30),
			windows: []model.MaintenanceWindow{
				{Start: d(5, 16, 0), End: d(5, 18, 0)},
			},
			expected: d(6, 8, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EarliestStartTime(tt.parentEnds, tt.availableFrom, shifts, tt.windows)
			if err != nil {
				t.Fatalf("EarliestStartTime() 返回错误: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("EarliestStartTime() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
