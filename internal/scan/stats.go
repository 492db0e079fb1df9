// Package scan implements the scan cycle engine: the fixed-period,
// deadline-driven loop that ticks the control program once per cycle,
// bracketed by the plugin driver host's cycle_start/cycle_end hooks, and
// the timing statistics that loop maintains.
package scan

import (
	"math"
	"sync"
	"sync/atomic"
)

// Stat holds a monotonically-meaningful min/max/running-mean triple for one
// timing quantity, in nanoseconds. Initial min is +Inf per spec §3; the
// first cycle seeds the baseline without emitting a stat update.
type Stat struct {
	Min   int64
	Max   int64
	Mean  float64
	Count uint64
}

func newStat() Stat {
	return Stat{Min: math.MaxInt64, Max: math.MinInt64}
}

func (s *Stat) update(sample int64) {
	s.Count++
	if sample < s.Min {
		s.Min = sample
	}
	if sample > s.Max {
		s.Max = sample
	}
	s.Mean += (float64(sample) - s.Mean) / float64(s.Count)
}

// Statistics is the dedicated-mutex-protected per-cycle timing state. Only
// the scan goroutine writes; any goroutine may read via Snapshot.
type Statistics struct {
	mu sync.RWMutex

	scanTime    Stat
	cycleTime   Stat
	cycleLatency Stat

	scanCount uint64
	overruns  atomic.Uint64
}

// NewStatistics returns a fresh statistics block with the +Inf/-Inf min/max
// sentinels spec §3 requires before the first real sample.
func NewStatistics() *Statistics {
	return &Statistics{
		scanTime:     newStat(),
		cycleTime:    newStat(),
		cycleLatency: newStat(),
	}
}

// Snapshot is an immutable, client-facing copy of the statistics, exposed
// to the control endpoint's STATS command and the ops listener's /metrics.
type Snapshot struct {
	ScanCount uint64
	Overruns  uint64

	HasTiming    bool
	ScanTimeNs   Stat
	CycleTimeNs  Stat
	LatencyNs    Stat
}

// Snapshot returns a point-in-time copy of the statistics under the stats
// mutex.
func (s *Statistics) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		ScanCount:   s.scanCount,
		Overruns:    s.overruns.Load(),
		HasTiming:   s.scanCount > 1,
		ScanTimeNs:  s.scanTime,
		CycleTimeNs: s.cycleTime,
		LatencyNs:   s.cycleLatency,
	}
}

// recordFirstCycle increments the scan count without touching any timing
// stat, per spec §4.4's "On first cycle only ... skip statistics".
func (s *Statistics) recordFirstCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCount++
}

// recordCycle updates cycle time, latency, and scan time for a
// non-seeding cycle, and increments the scan count.
func (s *Statistics) recordCycle(cycleTimeNs, latencyNs, scanTimeNs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanCount++
	s.cycleTime.update(cycleTimeNs)
	s.cycleLatency.update(latencyNs)
	s.scanTime.update(scanTimeNs)
}

func (s *Statistics) recordOverrun() {
	s.overruns.Add(1)
}
