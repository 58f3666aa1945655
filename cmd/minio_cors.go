package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"UndercoverFM/storage"

	"github.com/spf13/cobra"
)

var (
	corsSet     bool
	corsOrigins []string
)

var minioCorsCmd = &cobra.Command{
	Use:   "cors",
	Short: "查看或设置存储桶 CORS 规则",
	Long: `浏览器直接从存储桶播放音频需要 CORS 规则允许 GET/HEAD 和 Range 相关响应头。
不带 --set 时显示当前规则；带 --set 时用 --origin 指定的来源覆盖规则。`,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if corsSet {
			policy, err := client.SetCORS(ctx, corsOrigins)
			if err != nil {
				log.Fatalf("%v", err)
			}
			fmt.Printf("存储桶 %s 的 CORS 规则已更新:\n", client.Bucket())
			printCORS(policy)
			fmt.Println("\n可以用 `undercoverfm scan --check` 验证浏览器能否播放")
			return
		}

		policy, err := client.GetCORS(ctx)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("存储桶 %s 当前的 CORS 规则:\n", client.Bucket())
		printCORS(policy)
	},
}

func printCORS(policy interface{}) {
	data, err := json.MarshalIndent(policy, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", policy)
		return
	}
	fmt.Println(string(data))
}

func init() {
	minioCmd.AddCommand(minioCorsCmd)
	minioCorsCmd.Flags().BoolVar(&corsSet, "set", false, "应用 CORS 规则")
	minioCorsCmd.Flags().StringSliceVar(&corsOrigins, "origin", nil, "允许的来源，可重复（默认 localhost 与 127.0.0.1 任意端口）")

	minioCorsCmd.Example = `  # 查看当前规则
  undercoverfm minio cors

  # 允许 GitHub Pages 和本地调试页面播放
  undercoverfm minio cors --set --origin https://example.github.io --origin "http://localhost:*"`
}
