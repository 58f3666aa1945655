package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Every value has a default so the player starts with an empty environment.
type Config struct {
	// 歌单清单来源：本地文件路径、http(s) URL 或 minio://<key>
	ManifestSource  string
	BaseURLOverride string // 非空时替换清单中的 baseUrl
	WatchManifest   bool   // 本地清单文件变化时自动重新加载

	// MinIO 配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 偏好设置存储：file 或 redis
	PrefsBackend string
	PrefsPath    string

	// 音频与可视化
	SampleRate      int
	FFTSize         int
	FrameRate       int
	BarSmoothing    float64
	FadeDuration    time.Duration
	ResizeDebounce  time.Duration
	CanvasWidth     int
	CanvasHeight    int
	DefaultVolume   float64
	WSFrameInterval time.Duration

	// 服务监听地址
	ControlAddr string
	ProxyAddr   string

	// 日志
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration 支持 "250ms" 形式，纯数字按毫秒处理
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ManifestSource:  getEnv("MANIFEST_SOURCE", "playlist.json"),
		BaseURLOverride: getEnv("BASE_URL_OVERRIDE", ""),
		WatchManifest:   getEnvBool("WATCH_MANIFEST", true),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "undercover-music"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "auto"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PrefsBackend: getEnv("PREFS_BACKEND", "file"),
		PrefsPath:    getEnv("PREFS_PATH", ".undercoverfm-prefs.json"),

		SampleRate:      getEnvInt("SAMPLE_RATE", 44100),
		FFTSize:         getEnvInt("FFT_SIZE", 256),
		FrameRate:       getEnvInt("FRAME_RATE", 60),
		BarSmoothing:    getEnvFloat("BAR_SMOOTHING", 0.5),
		FadeDuration:    getEnvDuration("FADE_DURATION", 250*time.Millisecond),
		ResizeDebounce:  getEnvDuration("RESIZE_DEBOUNCE", 150*time.Millisecond),
		CanvasWidth:     getEnvInt("CANVAS_WIDTH", 800),
		CanvasHeight:    getEnvInt("CANVAS_HEIGHT", 200),
		DefaultVolume:   getEnvFloat("DEFAULT_VOLUME", 0.7),
		WSFrameInterval: getEnvDuration("WS_FRAME_INTERVAL", 100*time.Millisecond),

		ControlAddr: getEnv("CONTROL_ADDR", ":8080"),
		ProxyAddr:   getEnv("PROXY_ADDR", ":8787"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// FrameInterval 渲染循环的帧间隔
func (c *Config) FrameInterval() time.Duration {
	if c.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.FrameRate)
}
