package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"UndercoverFM/config"
	"UndercoverFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// MinioClient 封装了 MinIO 客户端
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// NewMinioClient 根据配置创建 MinIO 客户端
func NewMinioClient(cfg *config.Config) (*MinioClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	return &MinioClient{
		client:     client,
		bucketName: cfg.MinioBucket,
	}, nil
}

func (m *MinioClient) Bucket() string { return m.bucketName }

// EndpointURL 存储桶的访问地址，用作清单默认 baseUrl
func (m *MinioClient) EndpointURL() string {
	return strings.TrimRight(m.client.EndpointURL().String(), "/") + "/" + m.bucketName
}

// Check 测试连接：检查存储桶并完成一次写入读取
func (m *MinioClient) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", m.bucketName)
	}

	testObjectName := "test/connection.txt"
	testContent := "This is a test file for MinIO connection verification. Created at: " + time.Now().String()
	if err := m.PutObject(ctx, testObjectName, []byte(testContent), "text/plain"); err != nil {
		return fmt.Errorf("上传测试文件失败: %w", err)
	}
	content, err := m.ReadObject(ctx, testObjectName)
	if err != nil {
		return fmt.Errorf("读取测试文件内容失败: %w", err)
	}
	if string(content) != testContent {
		return fmt.Errorf("测试文件内容不一致")
	}
	if err := m.client.RemoveObject(ctx, m.bucketName, testObjectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除测试文件失败: %w", err)
	}
	logger.Info("MinIO 连接检查通过", logger.String("bucket", m.bucketName))
	return nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return err
}

// StatObject 获取对象元数据
func (m *MinioClient) StatObject(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := m.client.StatObject(ctx, m.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, translateError(err)
	}
	return toObjectInfo(info), nil
}

// GetObject 读取对象的 [start, end] 字节区间，end 为 -1 时读到结尾
func (m *MinioClient) GetObject(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	opts := minio.GetObjectOptions{}
	var err error
	switch {
	case end >= 0:
		err = opts.SetRange(start, end)
	case start > 0:
		err = opts.SetRange(start, 0)
	}
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucketName, key, opts)
	if err != nil {
		return nil, translateError(err)
	}
	return obj, nil
}

// ReadObject 读取整个对象
func (m *MinioClient) ReadObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateError(err)
	}
	return data, nil
}

// PutObject 上传对象
func (m *MinioClient) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// ListObjects 递归列出前缀下的所有对象
func (m *MinioClient) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, toObjectInfo(object))
	}
	return objects, stats, nil
}

func toObjectInfo(o minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		LastModified: o.LastModified,
		ContentType:  o.ContentType,
		ETag:         o.ETag,
	}
}
