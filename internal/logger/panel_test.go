package logger

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanelKeepsNewestEntries(t *testing.T) {
	p := NewPanel(3)
	for i := 0; i < 5; i++ {
		p.Add(LevelInfo, fmt.Sprintf("msg-%d", i), nil)
	}
	entries := p.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "msg-2", entries[0].Message)
	assert.Equal(t, "msg-4", entries[2].Message)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestPanelClear(t *testing.T) {
	p := NewPanel(0)
	p.Add(LevelError, "boom", map[string]any{"status": 500})
	assert.Equal(t, 1, p.Len())
	p.Clear()
	assert.Equal(t, 0, p.Len())
}

func TestLoggerMirrorsIntoPanel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	p := NewPanel(10)
	SetPanel(p)
	t.Cleanup(func() {
		SetPanel(nil)
		SetOutput(nil)
		SetLevel("info")
	})

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)
	SetLevel("info")
	Successf("loaded %d bars", 3)

	entries := p.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, LevelWarning, entries[0].Level)
	assert.Equal(t, "shown 2", entries[0].Message)
	assert.Equal(t, LevelSuccess, entries[1].Level)
	assert.Equal(t, "ok", entries[1].Data["status"])
	assert.Contains(t, buf.String(), "loaded 3 bars")
	assert.NotContains(t, buf.String(), "hidden")
}
