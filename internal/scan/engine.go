package scan

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/program"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rtsched"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/timing"
)

// PluginHost is the subset of the plugin driver host the scan engine
// drives each cycle. Kept as an interface here (rather than importing
// internal/plugins directly) so the driver host can depend on the engine's
// exported types without an import cycle.
type PluginHost interface {
	CycleStart()
	CycleEnd()
}

// Engine is the scan cycle engine: the hot path described in spec §4.4. It
// holds the sole real-time goroutine in the process.
type Engine struct {
	handle *program.Handle
	mutex  *rtsched.PIMutex
	host   PluginHost
	stats  *Statistics

	heartbeat atomic.Int64
	tick      atomic.Uint64

	logger *zerolog.Logger
}

// NewEngine constructs a scan engine bound to an already-opened program
// handle, the shared priority-inheriting image-table mutex, and the plugin
// driver host whose cycle_start/cycle_end hooks bracket each tick.
func NewEngine(handle *program.Handle, mutex *rtsched.PIMutex, host PluginHost, logger *zerolog.Logger) *Engine {
	return &Engine{
		handle: handle,
		mutex:  mutex,
		host:   host,
		stats:  NewStatistics(),
		logger: logger,
	}
}

// Statistics exposes the engine's timing statistics block.
func (e *Engine) Statistics() *Statistics { return e.stats }

// Heartbeat returns the last published heartbeat value (unix seconds at the
// moment of the most recently completed cycle body).
func (e *Engine) Heartbeat() int64 { return e.heartbeat.Load() }

// Tick returns the current cycle counter.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// Run drives the scan loop until ctx is cancelled. It must be called from a
// goroutine that has already called rtsched.Elevate, and is the only
// goroutine in the process permitted to write last_start/expected_start,
// the cycle counter, and the timing statistics.
func (e *Engine) Run(ctx context.Context) {
	period := func() time.Duration {
		return time.Duration(atomic.LoadInt64(e.handle.Bindings.CommonTicktimeNs))
	}

	now := timing.NowMonotonic()
	lastStart := now
	expectedStart := now.Add(period())
	e.stats.recordFirstCycle()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		now = timing.NowMonotonic()
		cycleTime := now.Sub(lastStart)
		latency := now.Sub(expectedStart)
		lastStart = now
		expectedStart = expectedStart.Add(period())

		stepStart := timing.NowMonotonic()
		e.mutex.Lock(rtsched.FIFOPriority)

		e.host.CycleStart()

		tick := e.tick.Load()
		e.handle.Bindings.ConfigRun(tick)
		e.tick.Store(tick + 1)
		e.handle.Bindings.UpdateTime()

		e.heartbeat.Store(time.Now().Unix())

		e.host.CycleEnd()

		e.mutex.Unlock()
		scanTime := timing.NowMonotonic().Sub(stepStart)

		e.stats.recordCycle(int64(cycleTime), int64(latency), int64(scanTime))

		if timing.NowMonotonic().After(expectedStart) {
			e.stats.recordOverrun()
		}

		timing.SleepUntil(expectedStart)
	}
}
