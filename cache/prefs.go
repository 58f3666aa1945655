package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"UndercoverFM/config"
	"UndercoverFM/core/utils"
	"UndercoverFM/logger"

	"github.com/go-redis/redis/v8"
)

// PreferencesKey 偏好设置在 Redis 中的哈希键
const PreferencesKey = "undercoverfm:prefs"

// RedisPreferenceStore 用 Redis 哈希保存偏好设置
type RedisPreferenceStore struct {
	client *redis.Client
	key    string
}

func NewRedisPreferenceStore(client *redis.Client) *RedisPreferenceStore {
	return &RedisPreferenceStore{client: client, key: PreferencesKey}
}

func (s *RedisPreferenceStore) GetPreference(ctx context.Context, name string) (string, bool, error) {
	val, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", name, err)
	}
	return val, true, nil
}

func (s *RedisPreferenceStore) SetPreference(ctx context.Context, name, value string) error {
	if err := s.client.HSet(ctx, s.key, name, value).Err(); err != nil {
		return fmt.Errorf("failed to set preference %s: %w", name, err)
	}
	return nil
}

// All 返回全部偏好设置
func (s *RedisPreferenceStore) All(ctx context.Context) (map[string]string, error) {
	return s.client.HGetAll(ctx, s.key).Result()
}

func (s *RedisPreferenceStore) Close() error { return s.client.Close() }

// FilePreferenceStore 把偏好设置保存为本地 JSON 文件
type FilePreferenceStore struct {
	path string
	mu   sync.Mutex
}

func NewFilePreferenceStore(path string) *FilePreferenceStore {
	return &FilePreferenceStore{path: path}
}

func (s *FilePreferenceStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return values, nil
}

func (s *FilePreferenceStore) GetPreference(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[name]
	return v, ok, nil
}

func (s *FilePreferenceStore) SetPreference(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.read()
	if err != nil {
		// 文件损坏时重新开始
		logger.Warn("偏好设置文件无法解析，将被覆盖", logger.String("path", s.path), logger.ErrorField(err))
		values = map[string]string{}
	}
	values[name] = value
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.path, data)
}

func (s *FilePreferenceStore) All(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FilePreferenceStore) Close() error { return nil }

// MemoryPreferenceStore 仅保存在内存中，用于测试和无持久化运行
type MemoryPreferenceStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{values: map[string]string{}}
}

func (s *MemoryPreferenceStore) GetPreference(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok, nil
}

func (s *MemoryPreferenceStore) SetPreference(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
	return nil
}

func (s *MemoryPreferenceStore) All(context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryPreferenceStore) Close() error { return nil }

// PreferenceStore 所有偏好设置后端的公共接口
type PreferenceStore interface {
	GetPreference(ctx context.Context, name string) (string, bool, error)
	SetPreference(ctx context.Context, name, value string) error
	All(ctx context.Context) (map[string]string, error)
	Close() error
}

// OpenPreferenceStore 根据 PREFS_BACKEND 选择存储：redis、file 或 memory。
// Redis 不可用时退回到文件存储。
func OpenPreferenceStore(cfg *config.Config) PreferenceStore {
	switch cfg.PrefsBackend {
	case "redis":
		client, err := ConnectRedis(cfg)
		if err != nil {
			logger.Warn("Redis 不可用，偏好设置改用文件存储", logger.ErrorField(err))
			return NewFilePreferenceStore(cfg.PrefsPath)
		}
		logger.Info("偏好设置使用 Redis 存储", logger.String("addr", cfg.RedisHost+":"+cfg.RedisPort))
		return NewRedisPreferenceStore(client)
	case "memory":
		return NewMemoryPreferenceStore()
	default:
		return NewFilePreferenceStore(cfg.PrefsPath)
	}
}
