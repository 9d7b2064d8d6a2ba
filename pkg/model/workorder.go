// Package model 定义重排引擎的核心数据模型
package model

import (
	"time"
)

// WorkOrder 工单（可调度的生产任务）
type WorkOrder struct {
	ID              string    `json:"id" db:"id"`
	Number          string    `json:"number" db:"number"`
	OrderID         string    `json:"order_id" db:"order_id"`             // 所属制造订单
	WorkCenterID    string    `json:"work_center_id" db:"work_center_id"` // 分配的工作中心
	StartDate       time.Time `json:"start_date" db:"start_date"`         // UTC
	EndDate         time.Time `json:"end_date" db:"end_date"`             // UTC
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	IsMaintenance   bool      `json:"is_maintenance" db:"is_maintenance"` // 维护工单不参与重排
	DependsOn       []string  `json:"depends_on,omitempty" db:"-"`        // 前置工单ID列表
}

// Clone 返回工单的深拷贝（重排过程不就地修改输入）
func (w *WorkOrder) Clone() *WorkOrder {
	clone := *w
	if w.DependsOn != nil {
		clone.DependsOn = make([]string, len(w.DependsOn))
		copy(clone.DependsOn, w.DependsOn)
	}
	return &clone
}

// TimeRange 返回工单占用的时间范围
func (w *WorkOrder) TimeRange() TimeRange {
	return TimeRange{Start: w.StartDate, End: w.EndDate}
}

// HasDependencies 检查工单是否存在前置依赖
func (w *WorkOrder) HasDependencies() bool {
	return len(w.DependsOn) > 0
}

// Shift 班次定义（每周重复，某工作日至多一个班次）
// 班次时间按 UTC 小时表达，调用方需预先将车间本地时区换算为 UTC。
type Shift struct {
	Weekday   time.Weekday `json:"weekday"`    // 0=周日 .. 6=周六
	StartHour int          `json:"start_hour"` // [0, 24)
	EndHour   int          `json:"end_hour"`   // (StartHour, 24]
}

// Contains 检查某个 UTC 时刻的钟点是否落在班次内（半开区间 [StartHour, EndHour)）
func (s Shift) Contains(t time.Time) bool {
	if t.UTC().Weekday() != s.Weekday {
		return false
	}
	h := t.UTC().Hour()
	return h >= s.StartHour && h < s.EndHour
}

// StartOn 返回班次在指定日期的开始时刻
func (s Shift) StartOn(day time.Time) time.Time {
	d := day.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), s.StartHour, 0, 0, 0, time.UTC)
}

// EndOn 返回班次在指定日期的结束时刻
func (s Shift) EndOn(day time.Time) time.Time {
	d := day.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), s.EndHour, 0, 0, 0, time.UTC)
}

// MaintenanceWindow 维护窗口（停机时段，半开区间 [Start, End)）
type MaintenanceWindow struct {
	Start  time.Time `json:"start"` // UTC
	End    time.Time `json:"end"`   // UTC
	Reason string    `json:"reason,omitempty"`
}

// TimeRange 返回维护窗口的时间范围
func (m MaintenanceWindow) TimeRange() TimeRange {
	return TimeRange{Start: m.Start, End: m.End}
}

// WorkCenter 工作中心（同一时刻只处理一个工单的资源）
type WorkCenter struct {
	ID                 string              `json:"id" db:"id"`
	Name               string              `json:"name" db:"name"`
	Shifts             []Shift             `json:"shifts"`
	MaintenanceWindows []MaintenanceWindow `json:"maintenance_windows,omitempty"`
}

// ShiftFor 返回指定工作日的班次；该日无班次时返回 false（当天产能为零）
func (wc *WorkCenter) ShiftFor(weekday time.Weekday) (Shift, bool) {
	for _, s := range wc.Shifts {
		if s.Weekday == weekday {
			return s, true
		}
	}
	return Shift{}, false
}

// ManufacturingOrder 制造订单（核心调度逻辑不消费，原样透传）
type ManufacturingOrder struct {
	ID       string    `json:"id" db:"id"`
	Number   string    `json:"number" db:"number"`
	Product  string    `json:"product,omitempty" db:"product"`
	Quantity int       `json:"quantity,omitempty" db:"quantity"`
	DueDate  time.Time `json:"due_date,omitempty" db:"due_date"`
}
