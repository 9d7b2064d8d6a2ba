// reflowctl 重排引擎命令行工具
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chongpai/chongpai/internal/cli"
	"github.com/chongpai/chongpai/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var Version = "dev"

func main() {
	logger.Init(logger.Config{
		Level:  os.Getenv("APP_LOG_LEVEL"),
		Format: "console",
	})

	rootCmd := &cobra.Command{
		Use:     "reflowctl",
		Short:   "ChongPai 工单重排引擎命令行工具",
		Version: Version,
		Long: `reflowctl 对 JSON 场景文件执行工单重排或约束检查。

场景文件是 {id, type, data} 信封记录的数组，
type 取 work_order / work_center / manufacturing_order。`,
	}

	rootCmd.AddCommand(cli.RunCmd())
	rootCmd.AddCommand(cli.ValidateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
