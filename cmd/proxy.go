package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"UndercoverFM/server"
	"UndercoverFM/storage"

	"github.com/spf13/cobra"
)

var proxyAddr string

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "启动 MinIO 音频代理",
	Long: `以支持 Range 请求和 CORS 的 HTTP 服务转发 MinIO 存储桶中的音频文件。
存储桶未开放 CORS 时，可以将清单的 baseUrl 指向该代理。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ProxyAddr
		if proxyAddr != "" {
			addr = proxyAddr
		}

		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("代理存储桶 %s (%s)，监听 %s\n", client.Bucket(), cfg.MinioEndpoint, addr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.Serve(ctx, addr, server.NewProxy(client).Router())
	},
}

func init() {
	proxyCmd.Flags().StringVar(&proxyAddr, "addr", "", "代理监听地址（默认 PROXY_ADDR）")
	rootCmd.AddCommand(proxyCmd)
}
