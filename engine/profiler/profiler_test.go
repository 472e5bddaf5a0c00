package profiler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickLogsOncePerInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	var lines []string

	p := NewProfiler()
	p.lastTime = start
	p.now = func() time.Time { return now }
	p.logf = func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	for i := 0; i < 59; i++ {
		now = now.Add(10 * time.Millisecond)
		if i%6 == 0 {
			p.FrameAdvanced()
		}
		assert.False(t, p.Tick())
	}
	// 0.59s elapsed so far; jump to 2s for a 60 tick window.
	now = start.Add(2 * time.Second)
	assert.True(t, p.Tick())

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[Profiler] TPS: 30.00 | Anim FPS: 5.00")

	assert.Zero(t, p.ticks)
	assert.Zero(t, p.advances)
	assert.Equal(t, now, p.lastTime)
}

func TestResetStartsWindowAtLoopStart(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	var lines []string

	p := NewProfiler()
	p.lastTime = start
	p.now = func() time.Time { return now }
	p.logf = func(format string, args ...any) { lines = append(lines, fmt.Sprintf(format, args...)) }

	// Startup ticks and a long load phase that must not count.
	for range 5 {
		p.Tick()
		p.FrameAdvanced()
	}
	now = start.Add(900 * time.Millisecond)

	p.Reset()
	assert.Zero(t, p.ticks)
	assert.Zero(t, p.advances)
	assert.Equal(t, now, p.lastTime)
	assert.NotZero(t, p.lastTotalAlloc)

	for range 19 {
		now = now.Add(50 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	now = now.Add(50 * time.Millisecond)
	require.True(t, p.Tick())

	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "[Profiler] TPS: 20.00 | Anim FPS: 0.00")
}
