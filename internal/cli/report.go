package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/chongpai/chongpai/pkg/model"
)

// printResult 打印重排结果报告
func printResult(result *model.ReflowResult, duration time.Duration) {
	if result.IsValid {
		fmt.Printf("%s 重排完成 (%s)\n", color.New(color.FgGreen).Sprint("✓"), duration)
	} else {
		fmt.Printf("%s 重排结果无效 (%s)\n", color.New(color.FgRed).Sprint("✗"), duration)
	}
	fmt.Println()

	fmt.Println(result.Explanation)

	if result.HasChanges() {
		fmt.Println()
		fmt.Printf("变更清单 (%d 条):\n", len(result.Changes))
		for _, c := range result.Changes {
			if c.Field != model.FieldStartDate {
				continue
			}
			arrow := color.New(color.FgYellow).Sprint("→")
			delay := fmt.Sprintf("%+d 分钟", c.DelayMinutes)
			if c.DelayMinutes > 0 {
				delay = color.New(color.FgRed).Sprint(delay)
			} else {
				delay = color.New(color.FgGreen).Sprint(delay)
			}
			fmt.Printf("  %s %s %s %s (%s)\n",
				c.WorkOrderNumber,
				c.OldValue.Format("01-02 15:04"),
				arrow,
				c.NewValue.Format("01-02 15:04"),
				delay)
		}
	}

	if len(result.Violations) > 0 {
		fmt.Println()
		fmt.Printf("约束违反 (%d 处):\n", len(result.Violations))
		printViolations(result.Violations)
	}
}

// printViolations 逐条打印约束违反
func printViolations(violations []model.ConstraintViolation) {
	for _, v := range violations {
		tag := color.New(color.FgRed).Sprintf("[%s]", v.Type)
		if v.WorkOrderID != "" {
			fmt.Printf("  %s %s: %s\n", tag, v.WorkOrderID, v.Message)
		} else {
			fmt.Printf("  %s %s\n", tag, v.Message)
		}
	}
}
