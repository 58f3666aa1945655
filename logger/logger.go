package logger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// LogLevel 定义日志级别
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Config 定义日志配置
type Config struct {
	Level      LogLevel
	OutputPath string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
	// Quiet 关闭控制台输出，终端键盘模式下避免日志刷屏
	Quiet bool
}

// DefaultConfig 根据级别和文件路径生成常用配置
func DefaultConfig(level, outputPath string) Config {
	return Config{
		Level:      LogLevel(strings.ToLower(level)),
		OutputPath: outputPath,
		MaxSize:    20,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}
}

func parseLevel(l LogLevel) zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger 初始化日志系统，只生效一次
func InitLogger(config Config) {
	once.Do(func() {
		l, err := newLogger(config)
		if err != nil {
			panic(err)
		}
		globalLogger = l
	})
}

// newLogger 构建日志器：终端使用可读格式，文件使用 JSON 并由 lumberjack 轮转
func newLogger(config Config) (*zap.Logger, error) {
	level := parseLevel(config.Level)

	var cores []zapcore.Core
	if !config.Quiet {
		console := zap.NewDevelopmentEncoderConfig()
		console.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		console.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(console),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0755); err != nil {
			return nil, err
		}
		file := zap.NewProductionEncoderConfig()
		file.TimeKey = "timestamp"
		file.EncodeTime = zapcore.RFC3339TimeEncoder
		file.EncodeDuration = zapcore.StringDurationEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(file),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   config.OutputPath,
				MaxSize:    config.MaxSize,
				MaxBackups: config.MaxBackups,
				MaxAge:     config.MaxAge,
				Compress:   config.Compress,
			}),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(2), // 跳过 write 和包装函数
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// Sync 刷新缓冲的日志
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func write(lvl zapcore.Level, msg string, fields []zap.Field) {
	if globalLogger == nil {
		return
	}
	if ce := globalLogger.Check(lvl, msg); ce != nil {
		ce.Write(fields...)
	}
}

func Debug(msg string, fields ...zap.Field) { write(zapcore.DebugLevel, msg, fields) }
func Info(msg string, fields ...zap.Field)  { write(zapcore.InfoLevel, msg, fields) }
func Warn(msg string, fields ...zap.Field)  { write(zapcore.WarnLevel, msg, fields) }
func Error(msg string, fields ...zap.Field) { write(zapcore.ErrorLevel, msg, fields) }

// Fatal 记录后退出进程，未初始化时同样退出
func Fatal(msg string, fields ...zap.Field) {
	write(zapcore.ErrorLevel, msg, fields)
	Sync()
	os.Exit(1)
}

// 字段构造，调用方无需直接引入 zap
var (
	String  = zap.String
	Int     = zap.Int
	Int64   = zap.Int64
	Float64 = zap.Float64
	Bool    = zap.Bool
	Any     = zap.Any
)

// ErrorField 创建错误字段
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// Duration 创建持续时间字段
func Duration(key string, val time.Duration) zap.Field {
	return zap.Duration(key, val)
}
