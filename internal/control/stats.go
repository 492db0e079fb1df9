package control

import (
	"encoding/json"
	"math"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scan"
)

// statNode is the STATS response's per-quantity JSON shape. Fields are
// whole-number microseconds, converted here at the serialization boundary —
// internal/scan and internal/timing stay nanosecond-typed throughout.
type statNode struct {
	MinUs  *int64 `json:"min_us"`
	MaxUs  *int64 `json:"max_us"`
	MeanUs *int64 `json:"mean_us"`
}

type statsPayload struct {
	ScanCount uint64    `json:"scan_count"`
	Overruns  uint64    `json:"overruns"`
	ScanTime  *statNode `json:"scan_time"`
	CycleTime *statNode `json:"cycle_time"`
	Latency   *statNode `json:"latency"`
}

func nsToUs(ns int64) int64 {
	return ns / 1000
}

func statNodeFrom(s scan.Stat) *statNode {
	min := nsToUs(s.Min)
	max := nsToUs(s.Max)
	mean := int64(math.Round(s.Mean / 1000))
	return &statNode{MinUs: &min, MaxUs: &max, MeanUs: &mean}
}

// encodeStats renders a statistics snapshot as the STATS:{json…} payload. If
// no cycles have completed timing statistics are still null, per spec §4.7.
func encodeStats(snap scan.Snapshot) (string, error) {
	payload := statsPayload{ScanCount: snap.ScanCount, Overruns: snap.Overruns}

	if snap.HasTiming {
		payload.ScanTime = statNodeFrom(snap.ScanTimeNs)
		payload.CycleTime = statNodeFrom(snap.CycleTimeNs)
		payload.Latency = statNodeFrom(snap.LatencyNs)
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
