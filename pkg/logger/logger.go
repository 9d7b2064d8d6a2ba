// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加请求ID
	if reqID, ok := ctx.Value("request_id").(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// ReflowLogger 重排引擎专用日志器
type ReflowLogger struct {
	base *zerolog.Logger
}

// NewReflowLogger 创建重排引擎日志器
func NewReflowLogger() *ReflowLogger {
	l := Get().With().Str("component", "reflow").Logger()
	return &ReflowLogger{base: &l}
}

// StartReflow 记录重排开始
func (l *ReflowLogger) StartReflow(workOrders, workCenters int) {
	l.base.Info().
		Int("work_orders", workOrders).
		Int("work_centers", workCenters).
		Msg("开始重排")
}

// CycleDetected 记录检测到循环依赖
func (l *ReflowLogger) CycleDetected(cycle []string) {
	l.base.Warn().
		Strs("cycle", cycle).
		Msg("检测到循环依赖，终止重排")
}

// OrderRescheduled 记录工单重排
func (l *ReflowLogger) OrderRescheduled(workOrderID string, delayMinutes int, reason string) {
	l.base.Debug().
		Str("work_order_id", workOrderID).
		Int("delay_minutes", delayMinutes).
		Str("reason", reason).
		Msg("工单已重排")
}

// ReflowComplete 记录重排完成
func (l *ReflowLogger) ReflowComplete(duration time.Duration, changes, violations int, valid bool) {
	l.base.Info().
		Dur("duration", duration).
		Int("changes", changes).
		Int("violations", violations).
		Bool("is_valid", valid).
		Msg("重排完成")
}

// ReflowFailed 记录重排硬失败
func (l *ReflowLogger) ReflowFailed(reason string) {
	l.base.Error().
		Str("reason", reason).
		Msg("重排失败")
}
