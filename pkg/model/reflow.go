// Package model 定义重排引擎的核心数据模型
package model

import (
	"time"
)

// ViolationType 约束违反类型
type ViolationType string

const (
	ViolationWorkCenterOverlap  ViolationType = "WORK_CENTER_OVERLAP"  // 工作中心时间重叠
	ViolationDependencyNotMet   ViolationType = "DEPENDENCY_NOT_MET"   // 依赖未满足
	ViolationOutsideShift       ViolationType = "OUTSIDE_SHIFT"        // 超出班次时间
	ViolationDuringMaintenance  ViolationType = "DURING_MAINTENANCE"   // 落入维护窗口
	ViolationCircularDependency ViolationType = "CIRCULAR_DEPENDENCY"  // 循环依赖
	ViolationUnknownWorkCenter  ViolationType = "UNKNOWN_WORK_CENTER"  // 工作中心引用不存在
)

// ConstraintViolation 约束违反记录
type ConstraintViolation struct {
	Type        ViolationType          `json:"type"`
	WorkOrderID string                 `json:"work_order_id,omitempty"`
	Message     string                 `json:"message"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
}

// ChangeField 变更字段标识
type ChangeField string

const (
	FieldStartDate ChangeField = "startDate"
	FieldEndDate   ChangeField = "endDate"
)

// WorkOrderChange 工单变更记录
type WorkOrderChange struct {
	WorkOrderID     string      `json:"work_order_id"`
	WorkOrderNumber string      `json:"work_order_number"`
	Field           ChangeField `json:"field"`
	OldValue        time.Time   `json:"old_value"`
	NewValue        time.Time   `json:"new_value"`
	DelayMinutes    int         `json:"delay_minutes"`
	Reason          string      `json:"reason"`
}

// ReflowResult 重排结果
// 硬失败（循环依赖、工作中心缺失、调度越界）返回 IsValid=false 且工单列表为空；
// 软违反（约束检查未通过）仍返回尽力而为的排产方案及违反明细。
type ReflowResult struct {
	UpdatedWorkOrders []*WorkOrder          `json:"updated_work_orders"`
	Changes           []WorkOrderChange     `json:"changes"`
	Explanation       string                `json:"explanation"`
	IsValid           bool                  `json:"is_valid"`
	Violations        []ConstraintViolation `json:"violations"`
}

// HasChanges 检查结果是否包含变更
func (r *ReflowResult) HasChanges() bool {
	return len(r.Changes) > 0
}

// TotalDelayMinutes 返回所有开始时间变更的延迟分钟数合计
func (r *ReflowResult) TotalDelayMinutes() int {
	total := 0
	for _, c := range r.Changes {
		if c.Field == FieldStartDate && c.DelayMinutes > 0 {
			total += c.DelayMinutes
		}
	}
	return total
}

// ReflowInput 重排输入（三类记录列表）
type ReflowInput struct {
	WorkOrders          []*WorkOrder          `json:"work_orders"`
	WorkCenters         []*WorkCenter         `json:"work_centers"`
	ManufacturingOrders []*ManufacturingOrder `json:"manufacturing_orders,omitempty"`
}
