// Package log 提供 FlowMesh 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，提供简洁的日志 API。
// 直接使用，无需抽象接口。
package log

import (
	"io"
	"log/slog"
	"os"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

func init() {
	// 默认输出到 stderr，文本格式，Info 级别
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// ============================================================================
//                              组件 Logger
// ============================================================================

// LazyLogger 带组件名的懒加载 logger
//
// 每次日志调用都从 slog.Default() 取当前 handler，
// 因此运行中切换输出目标（如 SetOutput 重定向到文件）会立即生效。
//
// 使用方式：
//
//	var logger = log.Logger("core/mux")
//	logger.Info("对端网格已连接", "size", 3)
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) current() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) {
	l.current().Debug(msg, args...)
}

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) {
	l.current().Info(msg, args...)
}

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) {
	l.current().Warn(msg, args...)
}

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) {
	l.current().Error(msg, args...)
}

// ============================================================================
//                              输出控制
// ============================================================================

// SetOutput 设置日志输出目标
//
// 重建默认 logger，将输出重定向到指定的 Writer，级别保持 Info。
// 常用于将节点日志写入文件：
//
//	file, _ := os.OpenFile("worker.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
//	log.SetOutput(file)
func SetOutput(w io.Writer) {
	SetOutputWithLevel(w, slog.LevelInfo)
}

// SetOutputWithLevel 同时设置日志输出目标和级别
//
// 用于需要同时配置输出和级别的场景（如压测中启用 DEBUG 日志）。
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetLevel 设置日志级别，输出目标保持 stderr
func SetLevel(level slog.Level) {
	SetOutputWithLevel(os.Stderr, level)
}
