// Package reflow 提供生产扰动后的工单重排引擎
//
// 引擎为单遍贪心：按拓扑序依次为每个工单计算新的开始/结束时刻，
// 不做全局优化，不回溯重试。一次调用独占自己的依赖图、可用性表和
// 输出，不与其他调用共享可变状态，调用方并发调用互不影响（前提是
// 不跨调用共享同一份输入对象图）。
package reflow

import (
	"context"
	"fmt"
	"time"

	"github.com/chongpai/chongpai/pkg/depgraph"
	"github.com/chongpai/chongpai/pkg/errors"
	"github.com/chongpai/chongpai/pkg/logger"
	"github.com/chongpai/chongpai/pkg/model"
	"github.com/chongpai/chongpai/pkg/shiftcalc"
	"github.com/chongpai/chongpai/pkg/validator"
)

// Engine 重排引擎
type Engine struct {
	checker *validator.Checker
	logger  *logger.ReflowLogger
	now     func() time.Time // 时间源，测试时可注入
}

// NewEngine 创建重排引擎
func NewEngine() *Engine {
	return &Engine{
		checker: validator.NewChecker(),
		logger:  logger.NewReflowLogger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithNow 注入自定义时间源（用于测试和回放）
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Reflow 执行一次完整重排。
// 引擎从不向调用方抛出错误：硬失败（循环依赖、未知前置、工作中心缺失、
// 调度越界）转换为 IsValid=false 的空结果；软违反随尽力而为的方案一并返回。
func (e *Engine) Reflow(ctx context.Context, input *model.ReflowInput) (result *model.ReflowResult) {
	startTime := time.Now()

	// 内部任何意外失败都不越过引擎边界
	defer func() {
		if r := recover(); r != nil {
			e.logger.ReflowFailed(fmt.Sprintf("内部异常: %v", r))
			result = invalidResult(fmt.Sprintf("重排失败: %v", r), nil)
		}
	}()

	if input == nil || len(input.WorkOrders) == 0 {
		return &model.ReflowResult{
			UpdatedWorkOrders: []*model.WorkOrder{},
			Changes:           []model.WorkOrderChange{},
			Explanation:       "没有需要重排的工单",
			IsValid:           true,
			Violations:        []model.ConstraintViolation{},
		}
	}

	e.logger.StartReflow(len(input.WorkOrders), len(input.WorkCenters))

	// 1. 构建依赖图；未知前置工单视为构建错误
	graph, err := depgraph.New(input.WorkOrders)
	if err != nil {
		e.logger.ReflowFailed(err.Error())
		return invalidResult(err.Error(), nil)
	}

	// 2. 环检测：成环则短路返回，不调度任何工单
	if cycle := graph.FindCycle(); cycle != nil {
		e.logger.CycleDetected(cycle)
		return invalidResult("工单依赖关系成环，无法重排", []model.ConstraintViolation{{
			Type:    model.ViolationCircularDependency,
			Message: fmt.Sprintf("检测到循环依赖: %s", formatCycle(cycle)),
			Detail:  map[string]interface{}{"cycle": cycle},
		}})
	}

	sorted, err := graph.TopologicalSort()
	if err != nil {
		e.logger.ReflowFailed(err.Error())
		return invalidResult(err.Error(), nil)
	}

	// 3. 初始化每个工作中心的下一可用时刻（"现在"只采样一次）
	now := e.now()
	centers := make(map[string]*model.WorkCenter, len(input.WorkCenters))
	availability := make(map[string]time.Time, len(input.WorkCenters))
	for _, wc := range input.WorkCenters {
		centers[wc.ID] = wc
		availability[wc.ID] = seedAvailability(now, wc.Shifts, wc.MaintenanceWindows)
	}

	// 4. 按拓扑序逐个重排
	updatedEnds := make(map[string]time.Time, len(sorted))
	updated := make([]*model.WorkOrder, 0, len(sorted))
	changes := make([]model.WorkOrderChange, 0)

	for _, wo := range sorted {
		if ctx.Err() != nil {
			e.logger.ReflowFailed(ctx.Err().Error())
			return invalidResult("重排被取消: "+ctx.Err().Error(), nil)
		}

		// 维护工单时间不可变，原样透传
		if wo.IsMaintenance {
			clone := wo.Clone()
			updated = append(updated, clone)
			updatedEnds[wo.ID] = clone.EndDate
			continue
		}

		wc, ok := centers[wo.WorkCenterID]
		if !ok {
			appErr := errors.MissingWorkCenter(wo.ID, wo.WorkCenterID)
			e.logger.ReflowFailed(appErr.Error())
			return invalidResult(appErr.Error(), nil)
		}

		// 前置工单的完成时刻：本遍已处理的取更新值，否则取原值
		parents, _ := graph.Parents(wo.ID)
		parentEnds := make([]time.Time, 0, len(parents))
		for _, pid := range parents {
			if end, done := updatedEnds[pid]; done {
				parentEnds = append(parentEnds, end)
			} else if parent, ok := graph.Get(pid); ok {
				parentEnds = append(parentEnds, parent.EndDate)
			}
		}

		newStart, err := shiftcalc.EarliestStartTime(parentEnds, availability[wc.ID], wc.Shifts, wc.MaintenanceWindows)
		if err != nil {
			e.logger.ReflowFailed(err.Error())
			return invalidResult(fmt.Sprintf("工单 %s 无法确定开始时刻: %v", wo.Number, err), nil)
		}

		newEnd, err := shiftcalc.CalculateEndDate(newStart, wo.DurationMinutes, wc.Shifts, wc.MaintenanceWindows)
		if err != nil {
			e.logger.ReflowFailed(err.Error())
			return invalidResult(fmt.Sprintf("工单 %s 无法完成调度: %v", wo.Number, err), nil)
		}

		prevAvail := availability[wc.ID]
		availability[wc.ID] = newEnd

		clone := wo.Clone()
		clone.StartDate = newStart
		clone.EndDate = newEnd
		updated = append(updated, clone)
		updatedEnds[wo.ID] = newEnd

		if !newStart.Equal(wo.StartDate) || !newEnd.Equal(wo.EndDate) {
			reason := e.attributeDelay(wo, newStart, parentEnds, prevAvail, wc)
			delay := int(newStart.Sub(wo.StartDate) / time.Minute)
			changes = append(changes,
				model.WorkOrderChange{
					WorkOrderID:     wo.ID,
					WorkOrderNumber: wo.Number,
					Field:           model.FieldStartDate,
					OldValue:        wo.StartDate,
					NewValue:        newStart,
					DelayMinutes:    delay,
					Reason:          reason,
				},
				model.WorkOrderChange{
					WorkOrderID:     wo.ID,
					WorkOrderNumber: wo.Number,
					Field:           model.FieldEndDate,
					OldValue:        wo.EndDate,
					NewValue:        newEnd,
					DelayMinutes:    int(newEnd.Sub(wo.EndDate) / time.Minute),
					Reason:          reason,
				},
			)
			e.logger.OrderRescheduled(wo.ID, delay, reason)
		}
	}

	// 5. 独立认证：软违反不终止，随结果一并返回
	violations := e.checker.Validate(updated, input.WorkCenters)

	result = &model.ReflowResult{
		UpdatedWorkOrders: updated,
		Changes:           changes,
		Explanation:       buildExplanation(updated, changes, violations),
		IsValid:           len(violations) == 0,
		Violations:        violations,
	}

	e.logger.ReflowComplete(time.Since(startTime), len(changes), len(violations), result.IsValid)
	return result
}

// attributeDelay 为延迟合成人类可读的归因说明：
// 依赖等待 / 资源争用 / 班次日历对齐。
func (e *Engine) attributeDelay(wo *model.WorkOrder, newStart time.Time, parentEnds []time.Time, prevAvail time.Time, wc *model.WorkCenter) string {
	var latestParent time.Time
	for _, end := range parentEnds {
		if end.After(latestParent) {
			latestParent = end
		}
	}

	switch {
	case !latestParent.IsZero() && latestParent.After(wo.StartDate) && !newStart.Before(latestParent):
		return fmt.Sprintf("前置工单完成时间推迟，最早可在 %s 开始", latestParent.Format("2006-01-02 15:04"))
	case prevAvail.After(wo.StartDate) && !newStart.Before(prevAvail):
		return fmt.Sprintf("工作中心 %s 被前序工单占用，顺延到其空闲后", wc.ID)
	default:
		return "按班次日历与维护窗口对齐排产时间"
	}
}

// seedAvailability 计算工作中心的初始可用时刻：
// "现在"对齐到班次内且维护窗口外的最早时刻；
// 完全没有班次的工作中心保持"现在"，真正排产时才会失败。
func seedAvailability(now time.Time, shifts []model.Shift, windows []model.MaintenanceWindow) time.Time {
	aligned, err := shiftcalc.AlignStartTime(now, shifts, windows)
	if err != nil {
		return now
	}
	return aligned
}

// invalidResult 构造硬失败结果：显式无效、工单列表为空、携带失败说明
func invalidResult(message string, violations []model.ConstraintViolation) *model.ReflowResult {
	if violations == nil {
		violations = []model.ConstraintViolation{}
	}
	return &model.ReflowResult{
		UpdatedWorkOrders: []*model.WorkOrder{},
		Changes:           []model.WorkOrderChange{},
		Explanation:       message,
		IsValid:           false,
		Violations:        violations,
	}
}

// formatCycle 格式化环路描述（首尾相接）
func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	s := ""
	for _, id := range cycle {
		s += id + " -> "
	}
	return s + cycle[0]
}
