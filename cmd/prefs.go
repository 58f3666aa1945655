package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"

	"UndercoverFM/cache"
	"UndercoverFM/core/visualizer"

	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs [name] [value]",
	Short: "查看或修改偏好设置",
	Long: `不带参数时列出所有偏好设置；给出名称时显示该项；同时给出值时写入。
偏好设置存储由 PREFS_BACKEND 决定（file、redis 或 memory）。`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		store := cache.OpenPreferenceStore(cfg)
		defer store.Close()
		ctx := context.Background()

		switch len(args) {
		case 0:
			all, err := store.All(ctx)
			if err != nil {
				log.Fatalf("读取偏好设置失败: %v", err)
			}
			names := make([]string, 0, len(all))
			for name := range all {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%s = %s\n", name, all[name])
			}
			if len(names) == 0 {
				fmt.Println("(空)")
			}
		case 1:
			v, ok, err := store.GetPreference(ctx, args[0])
			if err != nil {
				log.Fatalf("读取偏好设置失败: %v", err)
			}
			if !ok {
				fmt.Printf("%s 未设置\n", args[0])
				return
			}
			fmt.Println(v)
		case 2:
			if args[0] == visualizer.PreferenceKey {
				if _, err := visualizer.ParseStyle(args[1]); err != nil {
					log.Fatalf("无效的可视化样式: %v", err)
				}
			}
			if err := store.SetPreference(ctx, args[0], args[1]); err != nil {
				log.Fatalf("保存偏好设置失败: %v", err)
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
		}
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
}
