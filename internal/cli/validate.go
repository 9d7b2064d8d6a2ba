package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chongpai/chongpai/internal/scenario"
	"github.com/chongpai/chongpai/pkg/validator"
)

// ValidateCmd 返回 validate 子命令：只做约束检查，不重排
func ValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.json>",
		Short: "检查场景文件中的方案是否违反约束",
		Long: `加载 JSON 场景文件并对其中的排产方案做约束检查：
工作中心引用、工作中心重叠、依赖未满足、超出班次、落入维护窗口。
不修改任何时间，只报告违反情况。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}

			violations := validator.NewChecker().Validate(s.WorkOrders, s.WorkCenters)

			if len(violations) == 0 {
				fmt.Printf("%s 方案满足全部约束（%d 个工单，%d 个工作中心）\n",
					color.New(color.FgGreen).Sprint("✓"),
					len(s.WorkOrders), len(s.WorkCenters))
				return nil
			}

			fmt.Printf("%s 发现 %d 处约束违反:\n\n",
				color.New(color.FgRed).Sprint("✗"), len(violations))
			printViolations(violations)

			return fmt.Errorf("方案存在 %d 处约束违反", len(violations))
		},
	}
}
