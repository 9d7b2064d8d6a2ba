// Package validator 提供排产约束校验功能
//
// 校验器与重排引擎完全解耦：只消费最终排产结果（工单 + 工作中心），
// 可对任何来源的排产方案做独立认证。
package validator

import (
	"fmt"
	"sort"

	"github.com/chongpai/chongpai/pkg/depgraph"
	"github.com/chongpai/chongpai/pkg/model"
	"github.com/chongpai/chongpai/pkg/shiftcalc"
)

// Checker 约束校验器（无状态）
type Checker struct{}

// NewChecker 创建约束校验器
func NewChecker() *Checker {
	return &Checker{}
}

// Validate 对排产方案执行各类独立校验并汇总全部违反项（不短路）：
// 工作中心引用、工作中心重叠、依赖顺序、班次边界、维护窗口。
func (c *Checker) Validate(orders []*model.WorkOrder, centers []*model.WorkCenter) []model.ConstraintViolation {
	centerMap := make(map[string]*model.WorkCenter, len(centers))
	for _, wc := range centers {
		centerMap[wc.ID] = wc
	}

	var violations []model.ConstraintViolation
	violations = append(violations, c.checkWorkCenterReferences(orders, centerMap)...)
	violations = append(violations, c.checkWorkCenterOverlaps(orders)...)
	violations = append(violations, c.checkDependencies(orders)...)
	violations = append(violations, c.checkShiftBoundaries(orders, centerMap)...)
	violations = append(violations, c.checkMaintenance(orders, centerMap)...)
	return violations
}

// IsValid 检查排产方案是否满足全部硬约束
func (c *Checker) IsValid(orders []*model.WorkOrder, centers []*model.WorkCenter) bool {
	return len(c.Validate(orders, centers)) == 0
}

// checkWorkCenterReferences 检测工单引用的工作中心是否存在于输入中。
// 校验器独立认证外部方案，悬空引用不能静默放行。
func (c *Checker) checkWorkCenterReferences(orders []*model.WorkOrder, centers map[string]*model.WorkCenter) []model.ConstraintViolation {
	var violations []model.ConstraintViolation

	for _, wo := range orders {
		if _, ok := centers[wo.WorkCenterID]; ok {
			continue
		}
		violations = append(violations, model.ConstraintViolation{
			Type:        model.ViolationUnknownWorkCenter,
			WorkOrderID: wo.ID,
			Message:     fmt.Sprintf("工单 %s 引用的工作中心 %s 不在输入中", wo.Number, wo.WorkCenterID),
			Detail:      map[string]interface{}{"work_center_id": wo.WorkCenterID},
		})
	}

	return violations
}

// checkWorkCenterOverlaps 检测同一工作中心上的时间重叠。
// 按开始时间排序后只需扫描相邻对：排序后仅相邻区间可能重叠。
// 维护工单描述停机本身，不参与占用检测。
func (c *Checker) checkWorkCenterOverlaps(orders []*model.WorkOrder) []model.ConstraintViolation {
	var violations []model.ConstraintViolation

	byCenter := make(map[string][]*model.WorkOrder)
	for _, wo := range orders {
		if wo.IsMaintenance {
			continue
		}
		byCenter[wo.WorkCenterID] = append(byCenter[wo.WorkCenterID], wo)
	}

	for centerID, centerOrders := range byCenter {
		sorted := make([]*model.WorkOrder, len(centerOrders))
		copy(sorted, centerOrders)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].StartDate.Before(sorted[j].StartDate)
		})

		for i := 0; i < len(sorted)-1; i++ {
			current := sorted[i]
			next := sorted[i+1]

			if shiftcalc.TimePeriodsOverlap(current.StartDate, current.EndDate, next.StartDate, next.EndDate) {
				violations = append(violations, model.ConstraintViolation{
					Type:        model.ViolationWorkCenterOverlap,
					WorkOrderID: next.ID,
					Message:     fmt.Sprintf("工单 %s 与工单 %s 在工作中心 %s 上时间重叠", next.Number, current.Number, centerID),
					Detail: map[string]interface{}{
						"work_center_id":        centerID,
						"conflicting_order_id":  current.ID,
						"conflicting_order_num": current.Number,
					},
				})
			}
		}
	}

	return violations
}

// checkDependencies 检测前置工单完成晚于后继工单开始的情况
func (c *Checker) checkDependencies(orders []*model.WorkOrder) []model.ConstraintViolation {
	var violations []model.ConstraintViolation

	graph, err := depgraph.New(orders)
	if err != nil {
		// 引用了不存在的前置工单，作为依赖违反上报而非中断校验
		return append(violations, model.ConstraintViolation{
			Type:    model.ViolationDependencyNotMet,
			Message: err.Error(),
		})
	}

	for _, wo := range orders {
		parents, _ := graph.Parents(wo.ID)
		for _, parentID := range parents {
			parent, ok := graph.Get(parentID)
			if !ok {
				continue
			}
			if parent.EndDate.After(wo.StartDate) {
				violations = append(violations, model.ConstraintViolation{
					Type:        model.ViolationDependencyNotMet,
					WorkOrderID: wo.ID,
					Message: fmt.Sprintf("工单 %s 在前置工单 %s 完成前开始（%s 早于 %s）",
						wo.Number, parent.Number,
						wo.StartDate.Format("2006-01-02 15:04"), parent.EndDate.Format("2006-01-02 15:04")),
					Detail: map[string]interface{}{
						"parent_id":    parent.ID,
						"parent_end":   parent.EndDate,
						"child_start":  wo.StartDate,
					},
				})
			}
		}
	}

	return violations
}

// checkShiftBoundaries 检测开始/结束时刻是否落在班次内。
// 开始时刻按 [start, end) 判定，结束时刻按 (start, end] 判定，
// 恰好在班次结束钟点完成的工单不视为越界。
func (c *Checker) checkShiftBoundaries(orders []*model.WorkOrder, centers map[string]*model.WorkCenter) []model.ConstraintViolation {
	var violations []model.ConstraintViolation

	for _, wo := range orders {
		if wo.IsMaintenance {
			continue
		}

		wc, ok := centers[wo.WorkCenterID]
		if !ok {
			continue // 悬空引用由工作中心引用校验上报
		}

		if !shiftcalc.IsDuringShift(wo.StartDate, wc.Shifts) {
			violations = append(violations, model.ConstraintViolation{
				Type:        model.ViolationOutsideShift,
				WorkOrderID: wo.ID,
				Message:     fmt.Sprintf("工单 %s 的开始时刻 %s 不在工作中心 %s 的班次内", wo.Number, wo.StartDate.Format("2006-01-02 15:04"), wc.ID),
				Detail:      map[string]interface{}{"field": "startDate", "value": wo.StartDate},
			})
		}
		if !shiftcalc.IsValidEndInstant(wo.EndDate, wc.Shifts) {
			violations = append(violations, model.ConstraintViolation{
				Type:        model.ViolationOutsideShift,
				WorkOrderID: wo.ID,
				Message:     fmt.Sprintf("工单 %s 的结束时刻 %s 不在工作中心 %s 的班次内", wo.Number, wo.EndDate.Format("2006-01-02 15:04"), wc.ID),
				Detail:      map[string]interface{}{"field": "endDate", "value": wo.EndDate},
			})
		}
	}

	return violations
}

// checkMaintenance 检测工单施工时间与维护窗口的冲突。
// 工单允许跨越维护窗口暂停（占用区间与窗口重叠本身不算违反），
// 违反的判据是"必须在窗口内施工才能按记录的时刻完成"：
//   - 开始时刻落在维护窗口内；或
//   - 占用区间与窗口重叠，且按暂停语义重算的完成时刻晚于记录的结束时刻。
func (c *Checker) checkMaintenance(orders []*model.WorkOrder, centers map[string]*model.WorkCenter) []model.ConstraintViolation {
	var violations []model.ConstraintViolation

	for _, wo := range orders {
		if wo.IsMaintenance {
			continue
		}

		wc, ok := centers[wo.WorkCenterID]
		if !ok {
			continue
		}

		overlapped := overlappingWindows(wo, wc.MaintenanceWindows)
		if len(overlapped) == 0 {
			continue
		}

		for _, w := range overlapped {
			if w.TimeRange().Contains(wo.StartDate) {
				violations = append(violations, model.ConstraintViolation{
					Type:        model.ViolationDuringMaintenance,
					WorkOrderID: wo.ID,
					Message: fmt.Sprintf("工单 %s 的开始时刻落在工作中心 %s 的维护窗口内（%s ~ %s）",
						wo.Number, wc.ID, w.Start.Format("2006-01-02 15:04"), w.End.Format("2006-01-02 15:04")),
					Detail: map[string]interface{}{
						"maintenance_start":  w.Start,
						"maintenance_end":    w.End,
						"maintenance_reason": w.Reason,
					},
				})
			}
		}

		feasibleEnd, err := shiftcalc.CalculateEndDate(wo.StartDate, wo.DurationMinutes, wc.Shifts, wc.MaintenanceWindows)
		if err != nil {
			continue // 班次配置问题由班次边界校验上报
		}
		if feasibleEnd.After(wo.EndDate) {
			violations = append(violations, model.ConstraintViolation{
				Type:        model.ViolationDuringMaintenance,
				WorkOrderID: wo.ID,
				Message: fmt.Sprintf("工单 %s 需在维护窗口内施工才能于 %s 完成（暂停语义下最早完成于 %s）",
					wo.Number, wo.EndDate.Format("2006-01-02 15:04"), feasibleEnd.Format("2006-01-02 15:04")),
				Detail: map[string]interface{}{
					"recorded_end": wo.EndDate,
					"feasible_end": feasibleEnd,
				},
			})
		}
	}

	return violations
}

// overlappingWindows 返回与工单占用区间重叠的维护窗口
func overlappingWindows(wo *model.WorkOrder, windows []model.MaintenanceWindow) []model.MaintenanceWindow {
	var result []model.MaintenanceWindow
	for _, w := range windows {
		if shiftcalc.TimePeriodsOverlap(wo.StartDate, wo.EndDate, w.Start, w.End) {
			result = append(result, w)
		}
	}
	return result
}
