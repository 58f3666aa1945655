package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7/pkg/cors"
)

// DefaultCORSOrigins 未指定来源时允许本地调试页面访问
var DefaultCORSOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}

// 浏览器发起 Range 播放时需要读取的响应头
var corsExposeHeaders = []string{"Content-Length", "Content-Type", "Content-Range", "Accept-Ranges", "ETag"}

// CORSPolicy 生成允许 origins 通过 GET/HEAD 流式播放音频的存储桶 CORS 规则
func CORSPolicy(origins []string) *cors.Config {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	return &cors.Config{CORSRules: []cors.Rule{{
		AllowedOrigin: origins,
		AllowedMethod: []string{http.MethodGet, http.MethodHead},
		AllowedHeader: []string{"*"},
		ExposeHeader:  corsExposeHeaders,
		MaxAgeSeconds: 3600,
	}}}
}

// SetCORS 为存储桶应用 CORS 规则，返回实际写入的配置
func (m *MinioClient) SetCORS(ctx context.Context, origins []string) (*cors.Config, error) {
	policy := CORSPolicy(origins)
	if err := m.client.SetBucketCors(ctx, m.bucketName, policy); err != nil {
		return nil, fmt.Errorf("设置存储桶 CORS 失败: %w", err)
	}
	return policy, nil
}

// GetCORS 读取存储桶当前的 CORS 配置
func (m *MinioClient) GetCORS(ctx context.Context) (*cors.Config, error) {
	policy, err := m.client.GetBucketCors(ctx, m.bucketName)
	if err != nil {
		return nil, fmt.Errorf("读取存储桶 CORS 失败: %w", err)
	}
	return policy, nil
}
