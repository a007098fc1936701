package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cliffyan/gd-images/internal/config"
)

// New 创建日志器
// 日志写入 w（通常是 stderr，stdout 只留给 HTML 片段）；配置了文件路径时同时写入滚动日志文件。
// 返回的 closer 用于关闭日志文件，未配置文件时为 nil。
func New(cfg config.LogConfig, w io.Writer) (*zap.Logger, io.Closer) {
	if w == nil {
		w = os.Stderr
	}

	level := ParseLevel(cfg.Level)
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level),
	}

	var closer io.Closer
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxFiles,
			Compress:   false,
		}
		closer = lj
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lj),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), closer
}

// ParseLevel 解析日志级别，未知值按 info 处理
func ParseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
