package profiler

import (
	"fmt"
	"log"
	"runtime"
	"time"
)

// Profiler tracks tick rate, animation frame rate and memory statistics.
// Outputs one line to the log per update interval.
type Profiler struct {
	ticks          int
	advances       int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time
	logf           func(format string, args ...any)
}

// Sample is one logged measurement window.
type Sample struct {
	// TickRate is loop iterations per second.
	TickRate float64
	// AnimationRate is animation frame advances per second.
	AnimationRate float64
	// HeapMB is live heap memory.
	HeapMB float64
	// AllocRateMB is heap allocation churn per second.
	AllocRateMB float64
	// GCCount is the total number of collections so far.
	GCCount uint32
	// MaxPause is the longest GC pause within the window.
	MaxPause time.Duration
	// SysMB is memory obtained from the OS.
	SysMB float64
}

func (s Sample) String() string {
	return fmt.Sprintf("TPS: %.2f | Anim FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (max pause: %s) | Sys: %.2f MB",
		s.TickRate, s.AnimationRate, s.HeapMB, s.AllocRateMB, s.GCCount, s.MaxPause, s.SysMB)
}

// NewProfiler creates a new Profiler logging once per second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
		logf:           log.Printf,
	}
}

// Reset starts a new measurement window at the current time, discarding ticks, advances and allocations so far.
// Call it when the loop starts so startup work does not skew the first sample.
func (p *Profiler) Reset() {
	runtime.ReadMemStats(&p.memStats)
	p.ticks = 0
	p.advances = 0
	p.lastTime = p.now()
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
}

// FrameAdvanced counts one animation frame change for the current window.
func (p *Profiler) FrameAdvanced() {
	p.advances++
}

// Tick should be called once per loop iteration.
// Logs a Sample when the update interval has elapsed.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.ticks++
	current := p.now()
	elapsed := current.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Sample{
		TickRate:      float64(p.ticks) / elapsed.Seconds(),
		AnimationRate: float64(p.advances) / elapsed.Seconds(),
		HeapMB:        float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:   float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:       p.memStats.NumGC,
		SysMB:         float64(p.memStats.Sys) / 1024 / 1024,
	}

	// PauseNs is a circular buffer of the last 256 pauses.
	start := p.lastGCCount
	if s.GCCount-start > 256 {
		start = s.GCCount - 256
	}
	for i := start; i < s.GCCount; i++ {
		s.MaxPause = max(s.MaxPause, time.Duration(p.memStats.PauseNs[i%256]))
	}

	p.logf("[Profiler] %s", s)

	p.ticks = 0
	p.advances = 0
	p.lastTime = current
	p.lastGCCount = s.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
