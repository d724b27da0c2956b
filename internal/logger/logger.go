package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
	panel      *Panel
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout)
}

func newLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar})
	return slog.New(handler)
}

func SetOutput(w io.Writer) {
	loggerMu.Lock()
	baseLogger = newLogger(w)
	loggerMu.Unlock()
}

// SetPanel 把每条日志同步写入 p，传 nil 解除。
func SetPanel(p *Panel) {
	loggerMu.Lock()
	panel = p
	loggerMu.Unlock()
}

// ActivePanel 返回当前挂载的面板，可能为 nil。
func ActivePanel() *Panel {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return panel
}

func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "info":
		levelVar.Set(slog.LevelInfo)
	case "warn", "warning":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
}

func activeLogger() (*slog.Logger, *Panel) {
	loggerMu.RLock()
	l, p := baseLogger, panel
	loggerMu.RUnlock()
	if l != nil {
		return l, p
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(os.Stdout)
	}
	return baseLogger, panel
}

func emit(level slog.Level, panelLevel Level, msg string, attrs ...any) {
	l, p := activeLogger()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, msg, attrs...)
	if p != nil {
		p.Add(panelLevel, msg, attrsToData(attrs))
	}
}

func Debugf(format string, v ...any) {
	emit(slog.LevelDebug, LevelInfo, fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	emit(slog.LevelInfo, LevelInfo, fmt.Sprintf(format, v...))
}

// Successf 以 info 级别输出，面板条目标记为 success。
func Successf(format string, v ...any) {
	emit(slog.LevelInfo, LevelSuccess, fmt.Sprintf(format, v...), "status", "ok")
}

func Warnf(format string, v ...any) {
	emit(slog.LevelWarn, LevelWarning, fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	emit(slog.LevelError, LevelError, fmt.Sprintf(format, v...))
}

// Info 输出带 key/value 属性的结构化日志。
func Info(msg string, attrs ...any) {
	emit(slog.LevelInfo, LevelInfo, msg, attrs...)
}

func Error(msg string, attrs ...any) {
	emit(slog.LevelError, LevelError, msg, attrs...)
}

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	lines := strings.Split(block, "\n")
	for _, line := range lines {
		Infof("%s", line)
	}
}

func attrsToData(attrs []any) map[string]any {
	if len(attrs) < 2 {
		return nil
	}
	out := make(map[string]any, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		out[key] = attrs[i+1]
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
