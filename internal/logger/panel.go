package logger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level 是日志面板的展示级别。
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DefaultPanelSize 面板默认保留的条目数。
const DefaultPanelSize = 100

// Entry 是面板中的一条日志。
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
}

// Panel 保存最近的日志条目，超过上限时丢弃最旧的。
type Panel struct {
	mu      sync.Mutex
	max     int
	entries []Entry
	now     func() time.Time
}

// NewPanel 创建最多保留 max 条的面板。
func NewPanel(max int) *Panel {
	if max <= 0 {
		max = DefaultPanelSize
	}
	return &Panel{max: max, now: time.Now}
}

func (p *Panel) Add(level Level, msg string, data map[string]any) {
	if p == nil {
		return
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: p.now(),
		Level:     level,
		Message:   msg,
		Data:      data,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) >= p.max {
		drop := len(p.entries) - p.max + 1
		p.entries = append(p.entries[:0], p.entries[drop:]...)
	}
	p.entries = append(p.entries, entry)
}

// Entries 返回副本，按时间从旧到新。
func (p *Panel) Entries() []Entry {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Panel) Clear() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.entries = nil
	p.mu.Unlock()
}

func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
