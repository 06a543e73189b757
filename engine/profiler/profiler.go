// Package profiler logs frame rate, renderer statistics and memory use at a fixed interval.
package profiler

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-forward/engine/device"
	"github.com/Carmen-Shannon/oxy-forward/engine/logger"
)

// Report is one interval of frame and memory statistics.
type Report struct {
	FPS float64
	// Frame holds the per-frame averages of the renderer statistics over the interval.
	Frame         device.Stats
	HeapMB        float64
	AllocRateMBps float64
	GCCount       uint32
	LastPauseUs   uint64
	MaxPauseUs    uint64
	SysMB         float64
}

// Profiler accumulates frame statistics and logs a Report once per interval.
type Profiler struct {
	mu       *sync.Mutex
	interval time.Duration
	now      func() time.Time

	frames   int
	totals   device.Stats
	last     time.Time
	memStats runtime.MemStats

	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a Profiler reporting once per interval. A non-positive interval means one second.
//
// Parameters:
//   - interval: the reporting period
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	p := &Profiler{
		mu:       &sync.Mutex{},
		interval: interval,
		now:      time.Now,
	}
	p.last = p.now()
	return p
}

// Tick records one rendered frame. When the interval has elapsed it logs a "profiler"
// record at Info level and returns the report.
//
// Parameters:
//   - stats: the statistics of the frame just rendered
//
// Returns:
//   - Report: the report, valid only when ok is true
//   - bool: true if a report was produced by this tick
func (p *Profiler) Tick(stats device.Stats) (Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames++
	p.totals = p.totals.Add(stats)

	now := p.now()
	elapsed := now.Sub(p.last)
	if elapsed < p.interval {
		return Report{}, false
	}

	r := Report{
		FPS: float64(p.frames) / elapsed.Seconds(),
		Frame: device.Stats{
			DrawCalls:       p.totals.DrawCalls / p.frames,
			DrawnIndices:    p.totals.DrawnIndices / p.frames,
			ShadersUsed:     p.totals.ShadersUsed / p.frames,
			ShaderRebinds:   p.totals.ShaderRebinds / p.frames,
			MaterialsUsed:   p.totals.MaterialsUsed / p.frames,
			MaterialRebinds: p.totals.MaterialRebinds / p.frames,
		},
	}
	p.readMemory(&r, elapsed)

	logger.Logger().Info("profiler",
		"fps", r.FPS,
		"draw_calls", r.Frame.DrawCalls,
		"indices", r.Frame.DrawnIndices,
		"shader_rebinds", r.Frame.ShaderRebinds,
		"material_rebinds", r.Frame.MaterialRebinds,
		"heap_mb", r.HeapMB,
		"alloc_mb_s", r.AllocRateMBps,
		"gc", r.GCCount,
		"gc_last_us", r.LastPauseUs,
		"gc_max_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
	)

	p.frames = 0
	p.totals = device.Stats{}
	p.last = now
	return r, true
}

// readMemory fills the memory fields of r from the runtime.
func (p *Profiler) readMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMBps = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a ring of the last 256 pauses.
	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		start := p.lastGCCount
		if r.GCCount-start > 256 {
			start = r.GCCount - 256
		}
		for i := start; i < r.GCCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
