// Package cli 提供 reflowctl 命令行子命令
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chongpai/chongpai/internal/config"
	"github.com/chongpai/chongpai/internal/database"
	"github.com/chongpai/chongpai/internal/repository"
	"github.com/chongpai/chongpai/internal/scenario"
	"github.com/chongpai/chongpai/pkg/reflow"
)

// RunCmd 返回 run 子命令：加载场景文件并执行重排
func RunCmd() *cobra.Command {
	var (
		save    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.json>",
		Short: "对场景文件执行一次重排",
		Long: `加载 JSON 场景文件（工单、工作中心、制造订单），执行一遍重排，
输出更新后的排产方案、变更清单和约束违反情况。

使用 --save 时会把执行记录和变更写入数据库（读取 DB_* 环境变量）。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			start := time.Now()
			result := reflow.NewEngine().Reflow(ctx, s.Input())
			duration := time.Since(start)

			printResult(result, duration)

			if save {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("加载配置失败: %w", err)
				}
				db, err := database.New(&cfg.Database)
				if err != nil {
					return fmt.Errorf("连接数据库失败: %w", err)
				}
				defer db.Close()

				run, err := repository.NewReflowRunRepository(db).SaveResult(ctx, result)
				if err != nil {
					return fmt.Errorf("保存重排结果失败: %w", err)
				}
				fmt.Printf("\n执行记录已保存: %s\n", run.ID)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "把执行记录写入数据库")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "重排超时时间")

	return cmd
}
