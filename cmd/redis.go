package cmd

import (
	"context"
	"fmt"
	"log"

	"UndercoverFM/cache"
	"UndercoverFM/core/visualizer"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试偏好设置后端使用的Redis连接，进行一次读写校验，并显示已保存的可视化样式。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Redis配置: %s:%s, DB: %d (PREFS_BACKEND=%s)\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB, cfg.PrefsBackend)

		client, err := cache.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("无法连接到Redis: %v", err)
		}
		store := cache.NewRedisPreferenceStore(client)
		defer store.Close()

		ctx := context.Background()
		if err := cache.CheckRedis(ctx, client); err != nil {
			log.Fatalf("Redis读写校验失败: %v", err)
		}
		fmt.Println("Redis读写校验通过")

		style, ok, err := store.GetPreference(ctx, visualizer.PreferenceKey)
		switch {
		case err != nil:
			fmt.Printf("读取可视化偏好失败: %v\n", err)
		case ok:
			fmt.Printf("已保存的可视化样式: %s\n", style)
		default:
			fmt.Println("尚未保存可视化样式")
		}
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
