// Package log 是全局 zap SugaredLogger 的薄封装。
// 未调用 Init 之前所有函数写入 no-op logger，各个包在测试中可以直接使用。
package log

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var sugar atomic.Pointer[zap.SugaredLogger]

func init() {
	sugar.Store(zap.NewNop().Sugar())
}

func current() *zap.SugaredLogger {
	return sugar.Load()
}

// Init 按级别、格式（console 或 json）和输出目录构建 logger。
// outputPath 非空时同时写入 <outputPath>/app.log。
func Init(level, format, outputPath string) {
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel.SetLevel(zap.InfoLevel)
	}

	var zapConfig zap.Config
	if format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = logLevel

	zapConfig.OutputPaths = []string{"stdout"}
	if outputPath != "" {
		_ = os.MkdirAll(outputPath, os.ModePerm)
		zapConfig.OutputPaths = append(zapConfig.OutputPaths, filepath.Join(outputPath, "app.log"))
	}

	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	SetLogger(logger)
}

// SetLogger 替换全局 logger，nil 恢复为 no-op。
func SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sugar.Store(logger.Sugar())
}

func Info(msg string) {
	current().Info(msg)
}

func Infof(template string, args ...interface{}) {
	current().Infof(template, args...)
}

// Infow 记录结构化日志，keysAndValues 为交替的键值对。
func Infow(msg string, keysAndValues ...interface{}) {
	current().Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	current().Warnf(template, args...)
}

// Error 把 err 作为 "error" 字段附加到日志上。
func Error(msg string, err error) {
	current().Errorw(msg, "error", err)
}

// Errorf 以格式化字符串记录 error 级别日志。
func Errorf(template string, args ...interface{}) {
	current().Errorf(template, args...)
}

// Fatal 记录日志后以非零状态退出进程。
func Fatal(msg string, err error) {
	current().Fatalw(msg, "error", err)
}

// Fatalf 记录格式化日志后以非零状态退出进程。
func Fatalf(template string, args ...interface{}) {
	current().Fatalf(template, args...)
}

// Sync 刷新缓冲区，进程退出前调用。
func Sync() {
	_ = current().Sync()
}
