package reflow

import (
	"fmt"
	"strings"

	"github.com/chongpai/chongpai/pkg/model"
)

// buildExplanation 生成重排结果的人类可读说明
func buildExplanation(updated []*model.WorkOrder, changes []model.WorkOrderChange, violations []model.ConstraintViolation) string {
	var b strings.Builder

	if len(changes) == 0 {
		fmt.Fprintf(&b, "重排完成：%d 个工单无需调整。", len(updated))
	} else {
		// 每个工单产生 startDate/endDate 两条变更记录
		affected := make(map[string]bool)
		totalDelay := 0
		for _, c := range changes {
			affected[c.WorkOrderID] = true
			if c.Field == model.FieldStartDate && c.DelayMinutes > 0 {
				totalDelay += c.DelayMinutes
			}
		}
		fmt.Fprintf(&b, "重排完成：共 %d 个工单，其中 %d 个被调整，累计延迟 %d 分钟。\n",
			len(updated), len(affected), totalDelay)

		for _, c := range changes {
			if c.Field != model.FieldStartDate {
				continue
			}
			fmt.Fprintf(&b, "  - 工单 %s: %s -> %s（%+d 分钟）。原因: %s\n",
				c.WorkOrderNumber,
				c.OldValue.Format("2006-01-02 15:04"),
				c.NewValue.Format("2006-01-02 15:04"),
				c.DelayMinutes,
				c.Reason)
		}
	}

	if len(violations) > 0 {
		fmt.Fprintf(&b, "\n注意：方案仍存在 %d 项约束违反：\n", len(violations))
		for _, v := range violations {
			fmt.Fprintf(&b, "  - [%s] %s\n", v.Type, v.Message)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
