package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"UndercoverFM/core/catalog"
	"UndercoverFM/core/transport"
	"UndercoverFM/core/utils"
	"UndercoverFM/server"
	"UndercoverFM/storage"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	scanPrefix  string
	scanBaseURL string
	scanOutput  string
	scanUpload  string
	scanCheck   bool
	scanOrigin  string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "扫描存储桶生成歌单清单",
	Long: `列出 MinIO 存储桶中的音频文件，按 用户/艺人/专辑 目录结构生成 JSON 清单。
清单可以写入本地文件，也可以直接上传回存储桶。
加上 --check 会模拟浏览器对第一首歌做 CORS 预检和 Range 探测。`,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		fmt.Printf("扫描存储桶 %s (前缀: %q)...\n", client.Bucket(), scanPrefix)
		objects, _, err := client.ListObjects(ctx, scanPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}

		baseURL := scanBaseURL
		if baseURL == "" {
			baseURL = client.EndpointURL()
		}
		entries := lo.Map(objects, func(o storage.ObjectInfo, _ int) catalog.ObjectEntry {
			return catalog.ObjectEntry{Key: o.Key, Size: o.Size}
		})
		manifest := catalog.Organize(entries, baseURL)
		cat := catalog.Build(manifest)
		fmt.Printf("共 %d 个对象，生成 %d 位艺人、%d 张专辑、%d 首歌\n",
			len(objects), len(cat.Artists), len(cat.Albums), len(cat.Songs))

		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			log.Fatalf("编码清单失败: %v", err)
		}

		switch {
		case scanUpload != "":
			if err := client.PutObject(ctx, scanUpload, data, "application/json"); err != nil {
				log.Fatalf("上传清单失败: %v", err)
			}
			fmt.Printf("清单已上传: minio://%s\n", scanUpload)
		case scanOutput != "":
			if err := utils.WriteFileAtomic(scanOutput, data); err != nil {
				log.Fatalf("写入清单失败: %v", err)
			}
			fmt.Printf("清单已写入: %s\n", scanOutput)
		default:
			fmt.Println(string(data))
		}

		if scanCheck {
			if len(cat.Songs) == 0 {
				fmt.Println("没有歌曲，跳过 CORS 检查")
				return
			}
			song := cat.Songs[0]
			url := transport.BuildStreamURL(cat.BaseURL, song.Path, song.Filename)
			report, err := server.CheckCORS(ctx, nil, url, scanOrigin)
			if err != nil {
				log.Fatalf("CORS 检查失败: %v", err)
			}
			fmt.Printf("\nCORS 检查: %s\n", report.URL)
			fmt.Printf("  预检状态: %d\n", report.PreflightCode)
			fmt.Printf("  Access-Control-Allow-Origin: %q\n", report.AllowOrigin)
			fmt.Printf("  Access-Control-Allow-Methods: %q\n", report.AllowMethods)
			fmt.Printf("  Range 探测: %d (Accept-Ranges %q, %s)\n", report.ProbeCode, report.AcceptRanges, report.ContentType)
			if report.OK(scanOrigin) {
				fmt.Println("  ✅ 浏览器可以直接播放")
			} else {
				fmt.Println("  ❌ 浏览器无法直接播放，请执行 minio cors --set 或使用 proxy 命令")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPrefix, "prefix", "p", "", "只扫描该前缀下的文件")
	scanCmd.Flags().StringVar(&scanBaseURL, "base-url", "", "清单 baseUrl（默认存储桶地址）")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "清单输出文件")
	scanCmd.Flags().StringVar(&scanUpload, "upload", "", "上传到存储桶的清单对象名，如 manifest.json")
	scanCmd.Flags().BoolVar(&scanCheck, "check", false, "检查第一首歌的 CORS 与 Range 支持")
	scanCmd.Flags().StringVar(&scanOrigin, "origin", "http://localhost:3000", "CORS 检查使用的 Origin")

	scanCmd.Example = `  # 生成清单并写入文件
  undercoverfm scan -o manifest.json

  # 通过代理播放时指定 baseUrl
  undercoverfm scan --base-url http://localhost:8787 --upload manifest.json --check`
}
