// Package shiftcalc 提供班次感知的时间推进计算
//
// 所有计算基于 UTC 时刻：班次按 UTC 钟点和星期判定，调用方需预先把车间
// 运营时区的班次表换算为 UTC。时长运算以整分钟为单位。
//
// 区间约定：班次、维护窗口、工单占用均为半开区间 [start, end)。
// 工单的结束时刻允许恰好落在班次结束钟点上（见 IsValidEndInstant）。
package shiftcalc

import (
	"time"

	"github.com/chongpai/chongpai/pkg/errors"
	"github.com/chongpai/chongpai/pkg/model"
)

const (
	// MaxScheduleDays 调度推进的天数上限，超出视为班次配置错误
	MaxScheduleDays = 365

	// MaxShiftSearchDays 向后搜索下一个班次的天数上限
	MaxShiftSearchDays = 30
)

// CalculateEndDate 计算从 start 开始、工作 durationMinutes 分钟后的完成时刻。
// 工作只在班次时间内推进，遇到班次结束或维护窗口则暂停，维护结束后在当日
// 班次剩余时间内继续，当日耗尽则顺延到下一个有班次的日期。
// 完成时刻为精确的分钟时刻，不对齐班次粒度。
func CalculateEndDate(start time.Time, durationMinutes int, shifts []model.Shift, windows []model.MaintenanceWindow) (time.Time, error) {
	if durationMinutes <= 0 {
		return time.Time{}, errors.InvalidInput("durationMinutes", "必须为正整数")
	}

	remaining := durationMinutes
	current := start.UTC()

	for day := 0; day < MaxScheduleDays; day++ {
		shift, ok := shiftFor(current.Weekday(), shifts)
		if !ok {
			current = nextDayStart(current)
			continue
		}

		shiftStart := shift.StartOn(current)
		shiftEnd := shift.EndOn(current)

		segStart := current
		if segStart.Before(shiftStart) {
			segStart = shiftStart
		}

		// 在当日班次内按维护窗口切分可用时段
		for segStart.Before(shiftEnd) {
			segEnd := shiftEnd

			if w, ok := earliestBlockingWindow(segStart, segEnd, windows); ok {
				if !w.Start.After(segStart) {
					// 当前时刻已落入维护窗口，跳到窗口结束后继续
					segStart = w.End
					continue
				}
				segEnd = w.Start
			}

			available := int(segEnd.Sub(segStart) / time.Minute)
			if available >= remaining {
				return segStart.Add(time.Duration(remaining) * time.Minute), nil
			}

			remaining -= available
			segStart = segEnd
		}

		current = nextDayStart(current)
	}

	return time.Time{}, errors.SchedulingBoundExceeded(MaxScheduleDays)
}

// OverlapsMaintenance 检查 [start, end) 是否与任一维护窗口重叠
func OverlapsMaintenance(start, end time.Time, windows []model.MaintenanceWindow) bool {
	for _, w := range windows {
		if TimePeriodsOverlap(start, end, w.Start, w.End) {
			return true
		}
	}
	return false
}

// IsDuringShift 检查时刻是否落在某个班次内（[StartHour, EndHour) 按 UTC 判定）
func IsDuringShift(t time.Time, shifts []model.Shift) bool {
	for _, s := range shifts {
		if s.Contains(t) {
			return true
		}
	}
	return false
}

// IsValidEndInstant 检查时刻作为工单结束时刻是否合法。
// 结束时刻采用 (StartHour, EndHour] 约定：恰好落在班次结束钟点的完成时刻
// 视为有效，避免整班次工单被误判为越界。
func IsValidEndInstant(t time.Time, shifts []model.Shift) bool {
	u := t.UTC()
	for _, s := range shifts {
		if u.Weekday() != s.Weekday {
			continue
		}
		h := u.Hour()
		if h > s.StartHour && h < s.EndHour {
			return true
		}
		if h == s.StartHour && (u.Minute() > 0 || u.Second() > 0) {
			return true
		}
		if h == s.EndHour && u.Minute() == 0 && u.Second() == 0 {
			return true
		}
	}
	return false
}

// TimePeriodsOverlap 半开区间重叠检测（对称）
func TimePeriodsOverlap(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// FindNextShiftStart 返回严格晚于 from 的第一个班次开始时刻。
// 逐日向后扫描，超过 MaxShiftSearchDays 天未找到则返回错误。
func FindNextShiftStart(from time.Time, shifts []model.Shift) (time.Time, error) {
	current := from.UTC()

	for day := 0; day < MaxShiftSearchDays; day++ {
		if shift, ok := shiftFor(current.Weekday(), shifts); ok {
			start := shift.StartOn(current)
			if start.After(from.UTC()) {
				return start, nil
			}
		}
		current = nextDayStart(current)
	}

	return time.Time{}, errors.NoShiftFound(MaxShiftSearchDays)
}

// EarliestStartTime 计算最早可行开始时刻：
// 取（最晚的前置完成时刻、工作中心空闲时刻）中较晚者，再对齐到班次内
// 且维护窗口外的最早时刻。
func EarliestStartTime(parentEnds []time.Time, availableFrom time.Time, shifts []model.Shift, windows []model.MaintenanceWindow) (time.Time, error) {
	earliest := availableFrom.UTC()
	for _, end := range parentEnds {
		if end.After(earliest) {
			earliest = end.UTC()
		}
	}
	return AlignStartTime(earliest, shifts, windows)
}

// AlignStartTime 把候选开始时刻对齐到班次内且维护窗口外的最早时刻：
// 落在班次外则跳到下一个班次开始，落在维护窗口内则推进到窗口结束，
// 交替推进直到两个条件同时满足。
func AlignStartTime(t time.Time, shifts []model.Shift, windows []model.MaintenanceWindow) (time.Time, error) {
	current := t.UTC()

	for i := 0; i < MaxScheduleDays; i++ {
		if !IsDuringShift(current, shifts) {
			next, err := FindNextShiftStart(current, shifts)
			if err != nil {
				return time.Time{}, err
			}
			current = next
			continue
		}
		if w, ok := windowContaining(current, windows); ok {
			current = w.End
			continue
		}
		return current, nil
	}

	return time.Time{}, errors.SchedulingBoundExceeded(MaxScheduleDays)
}

// shiftFor 查找指定星期的班次
func shiftFor(weekday time.Weekday, shifts []model.Shift) (model.Shift, bool) {
	for _, s := range shifts {
		if s.Weekday == weekday {
			return s, true
		}
	}
	return model.Shift{}, false
}

// windowContaining 返回包含时刻 t 的维护窗口（半开区间判定）
func windowContaining(t time.Time, windows []model.MaintenanceWindow) (model.MaintenanceWindow, bool) {
	for _, w := range windows {
		if !t.Before(w.Start) && t.Before(w.End) {
			return w, true
		}
	}
	return model.MaintenanceWindow{}, false
}

// earliestBlockingWindow 返回与 [segStart, segEnd) 重叠的最早维护窗口
func earliestBlockingWindow(segStart, segEnd time.Time, windows []model.MaintenanceWindow) (model.MaintenanceWindow, bool) {
	var found model.MaintenanceWindow
	ok := false
	for _, w := range windows {
		if !TimePeriodsOverlap(segStart, segEnd, w.Start, w.End) {
			continue
		}
		if !ok || w.Start.Before(found.Start) {
			found = w
			ok = true
		}
	}
	return found, ok
}

// nextDayStart 返回次日零点（UTC）
func nextDayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
