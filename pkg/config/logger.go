package config

import (
	"fmt"

	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log line.
const ServiceName = "dutch-filler"

// NewLogger builds the JSON production logger at cfg.LogLevel. Every entry
// carries the service, chain id and execution mode so that paper and live
// instances can share a log sink.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	return newLogger(cfg, zap.NewProductionConfig())
}

func newLogger(cfg *Config, zapCfg zap.Config) (*zap.Logger, error) {
	levelStr := cfg.LogLevel
	if levelStr == "" {
		levelStr = "info"
	}

	var level zapcore.Level
	err := level.UnmarshalText([]byte(levelStr))
	if err != nil {
		return nil, &types.ConfigError{Key: "LOG_LEVEL", Message: fmt.Sprintf("%q is not a zap level", levelStr)}
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = "json"
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.InitialFields = map[string]any{
		"service":  ServiceName,
		"chain-id": cfg.ChainID,
		"mode":     cfg.ExecutionMode,
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
