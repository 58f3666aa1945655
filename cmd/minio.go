package cmd

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"UndercoverFM/core/catalog"
	"UndercoverFM/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix    string
	minioStats     bool
	minioRecursive bool
	minioAudioOnly bool
	minioCheck     bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `检查 MinIO 连接，列出存储桶中的文件，查看统计信息或按目录显示音乐库结构。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}
		ctx := context.Background()

		if minioCheck {
			fmt.Println("开始测试MinIO连接...")
			if err := client.Check(ctx); err != nil {
				log.Fatalf("MinIO连接测试失败: %v", err)
			}
			fmt.Println("MinIO连接测试成功！")
			return
		}

		objects, stats, err := client.ListObjects(ctx, minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}
		if minioAudioOnly {
			filtered := objects[:0]
			for _, o := range objects {
				if catalog.IsAudioKey(o.Key) {
					filtered = append(filtered, o)
				}
			}
			objects = filtered
		}

		switch {
		case minioStats:
			fmt.Printf("\n存储桶: %s\n", client.Bucket())
			fmt.Printf("文件总数: %d\n", stats.TotalObjects)
			fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Printf("最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
			}
		case minioRecursive:
			printTree(objects)
		default:
			fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
			for _, o := range objects {
				fmt.Printf("%-10s  %s  %s\n", storage.FormatSize(o.Size), o.LastModified.Format("2006-01-02 15:04"), o.Key)
			}
			fmt.Printf("\n共 %d 个文件\n", len(objects))
		}
	},
}

// printTree 按目录分组打印对象，目录按首次出现的顺序
func printTree(objects []storage.ObjectInfo) {
	var dirs []string
	byDir := make(map[string][]storage.ObjectInfo)
	for _, o := range objects {
		dir := path.Dir(o.Key)
		if _, ok := byDir[dir]; !ok {
			dirs = append(dirs, dir)
		}
		byDir[dir] = append(byDir[dir], o)
	}
	for _, dir := range dirs {
		depth := strings.Count(dir, "/")
		if dir == "." {
			depth = 0
		}
		indent := strings.Repeat("  ", depth)
		fmt.Printf("%s📁 %s/\n", indent, dir)
		for _, o := range byDir[dir] {
			fmt.Printf("%s  📄 %s (%s)\n", indent, path.Base(o.Key), storage.FormatSize(o.Size))
		}
	}
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioRecursive, "recursive", "r", false, "按目录显示结构")
	minioCmd.Flags().BoolVarP(&minioAudioOnly, "audio", "a", false, "只显示音频文件")
	minioCmd.Flags().BoolVar(&minioCheck, "check", false, "测试连接与读写权限")

	minioCmd.Example = `  # 列出所有文件
  undercoverfm minio

  # 按目录显示某个用户的音乐库
  undercoverfm minio -r -a -p "tibi/"

  # 显示存储桶统计信息
  undercoverfm minio -s

  # 测试连接
  undercoverfm minio --check`
}
