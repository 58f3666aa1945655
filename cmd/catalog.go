package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"UndercoverFM/core/catalog"
	"UndercoverFM/core/transport"
	"UndercoverFM/storage"

	"github.com/spf13/cobra"
)

var (
	catalogManifest string
	catalogSongs    bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "查看歌单清单内容",
	Long:  `加载清单并打印艺人、专辑和歌曲数量，加上 --songs 列出每首歌的播放地址。`,
	Run: func(cmd *cobra.Command, args []string) {
		source := cfg.ManifestSource
		if catalogManifest != "" {
			source = catalogManifest
		}

		var objects catalog.ObjectReader
		if strings.HasPrefix(source, "minio://") {
			mc, err := storage.NewMinioClient(cfg)
			if err != nil {
				log.Fatalf("创建MinIO客户端失败: %v", err)
			}
			objects = mc
		}
		fetcher := catalog.NewFetcher(source, objects)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		cat, err := catalog.Load(ctx, fetcher, cfg.BaseURLOverride)
		if err != nil {
			log.Fatalf("加载清单失败 (%s): %v", fetcher, err)
		}

		fmt.Printf("清单: %s\n", fetcher)
		fmt.Printf("baseUrl: %s\n", cat.BaseURL)
		fmt.Printf("%d 位艺人, %d 张专辑, %d 首歌\n\n", len(cat.Artists), len(cat.Albums), len(cat.Songs))
		for _, choice := range cat.AlbumChoices() {
			fmt.Printf("  %-24s %s (%d)\n", choice.ID, choice.Name, choice.Count)
		}

		if catalogSongs {
			fmt.Println()
			for _, song := range cat.Songs {
				fmt.Printf("%4d  %s\n", song.GlobalIndex+1, transport.BuildStreamURL(cat.BaseURL, song.Path, song.Filename))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().StringVarP(&catalogManifest, "manifest", "m", "", "清单来源（默认 MANIFEST_SOURCE）")
	catalogCmd.Flags().BoolVar(&catalogSongs, "songs", false, "列出所有歌曲地址")
}
