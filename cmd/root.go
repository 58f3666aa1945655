package cmd

import (
	"fmt"
	"os"

	"UndercoverFM/config"
	"UndercoverFM/logger"

	"github.com/spf13/cobra"
)

// cfg 由 PersistentPreRun 加载，所有子命令共享
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "undercoverfm",
	Short: "UndercoverFM 是一个带可视化效果的个人音乐播放器",
	Long: `UndercoverFM 从 JSON 清单加载歌曲目录，通过 HTTP 流式播放，
并实时渲染音频可视化效果。清单可以来自本地文件、HTTP 地址或 MinIO 存储桶。`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		lc := logger.DefaultConfig(cfg.LogLevel, cfg.LogFile)
		lc.Quiet = cmd == playCmd && interactive()
		logger.InitLogger(lc)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
