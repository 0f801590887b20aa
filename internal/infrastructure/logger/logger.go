package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Leveled loggers used across the codebase. They write through the zap
// core installed by Configure or Use.
var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

var (
	mu   sync.RWMutex
	base *zap.Logger
)

const (
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatConsole = "console"
)

func init() {
	if err := Configure(FormatAuto, "info"); err != nil {
		panic(err)
	}
}

// Configure installs a stdout logger with the given encoding and level.
// An empty format means auto: console on a terminal, JSON otherwise.
func Configure(format, level string) error {
	l, err := New(format, level, zapcore.Lock(os.Stdout))
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// New builds a zap logger writing to out.
func New(format, level string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch resolveFormat(format) {
	case FormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatConsole:
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q (expected auto, json, or console)", format)
	}

	return zap.New(zapcore.NewCore(enc, out, lvl), zap.AddCaller()), nil
}

func resolveFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f != "" && f != FormatAuto {
		return f
	}
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormatConsole
	}
	return FormatJSON
}

// Use routes the leveled loggers through l.
func Use(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()

	base = l
	Info = stdLogAt(l, zapcore.InfoLevel)
	Error = stdLogAt(l, zapcore.ErrorLevel)
	Debug = stdLogAt(l, zapcore.DebugLevel)
	Warn = stdLogAt(l, zapcore.WarnLevel)
}

func stdLogAt(l *zap.Logger, lvl zapcore.Level) *log.Logger {
	std, err := zap.NewStdLogAt(l, lvl)
	if err != nil {
		// Only reachable with a level zap does not know.
		return zap.NewStdLog(l)
	}
	return std
}

// L returns the structured logger behind the leveled loggers.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries.
func Sync() error {
	return L().Sync()
}
