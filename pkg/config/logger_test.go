package config

import (
	"bytes"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/mselser95/dutch-filler/pkg/types"
	"go.uber.org/zap"
)

// bufferSink is a zap sink writing into memory.
type bufferSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bufferSink) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *bufferSink) Sync() error  { return nil }
func (b *bufferSink) Close() error { return nil }

//nolint:gochecknoglobals // registered once per test binary
var (
	testSink     = &bufferSink{}
	registerOnce sync.Once
)

func memoryConfig(t *testing.T) zap.Config {
	t.Helper()

	registerOnce.Do(func() {
		err := zap.RegisterSink("configtest", func(*url.URL) (zap.Sink, error) { return testSink, nil })
		if err != nil {
			t.Fatalf("register sink: %v", err)
		}
	})

	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"configtest://logs"}
	zapCfg.Sampling = nil
	return zapCfg
}

func TestNewLogger_InitialFields(t *testing.T) {
	cfg := &Config{LogLevel: "debug", ChainID: 42161, ExecutionMode: ModeLive}

	logger, err := newLogger(cfg, memoryConfig(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	testSink.mu.Lock()
	testSink.buf.Reset()
	testSink.mu.Unlock()

	logger.Debug("cycle-started")
	_ = logger.Sync()

	testSink.mu.Lock()
	line := strings.TrimSpace(testSink.buf.String())
	testSink.mu.Unlock()

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", line, err)
	}

	if entry["service"] != ServiceName {
		t.Errorf("expected service %q, got %v", ServiceName, entry["service"])
	}
	if entry["mode"] != ModeLive {
		t.Errorf("expected mode live, got %v", entry["mode"])
	}
	if entry["chain-id"] != float64(42161) {
		t.Errorf("expected chain-id 42161, got %v", entry["chain-id"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
}

func TestNewLogger_DefaultLevel(t *testing.T) {
	logger, err := NewLogger(&Config{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if logger.Core().Enabled(zap.DebugLevel) {
		t.Error("expected debug to be disabled at the default level")
	}
	if !logger.Core().Enabled(zap.InfoLevel) {
		t.Error("expected info to be enabled at the default level")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(&Config{LogLevel: "chatty"})

	var cfgErr *types.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Key != "LOG_LEVEL" {
		t.Errorf("expected key LOG_LEVEL, got %s", cfgErr.Key)
	}
}
