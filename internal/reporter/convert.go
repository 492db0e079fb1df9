package reporter

import (
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scan"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/telemetry"
)

func nsToUsPtr(ns int64) *int64 {
	us := ns / 1000
	return &us
}

func telemetrySnapshotFrom(snap scan.Snapshot) telemetry.Snapshot {
	out := telemetry.Snapshot{
		ScanCount: snap.ScanCount,
		Overruns:  snap.Overruns,
		HasTiming: snap.HasTiming,
	}
	if snap.HasTiming {
		out.ScanTimeUs = nsToUsPtr(int64(snap.ScanTimeNs.Mean))
		out.CycleTimeUs = nsToUsPtr(int64(snap.CycleTimeNs.Mean))
		out.LatencyUs = nsToUsPtr(int64(snap.LatencyNs.Mean))
	}
	return out
}
