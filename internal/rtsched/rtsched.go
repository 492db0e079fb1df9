// Package rtsched raises the scan goroutine's OS-thread priority and
// provides the priority-inheriting mutex the plugin driver host
// shares with it over the image tables. Both are best-effort: failures are
// logged, never fatal, matching spec §4.4's "failures are logged, not
// fatal" and §4.5's priority-inheritance requirement.
package rtsched

import (
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// FIFOPriority is the mid-range real-time priority the scan thread
// requests, per spec §4.4 ("mid-range" FIFO priority).
const FIFOPriority = 50

// Elevate locks the calling goroutine to its OS thread, asks setpriority(2)
// for a nice value of -FIFOPriority on that thread (the kernel clamps it to
// -20; the scheduling policy is left unchanged and is not switched to
// SCHED_FIFO), and locks the process's memory pages (current and future) so the scan loop never
// incurs a page fault. Must be called from the goroutine that will run the
// scan loop, before entering it.
func Elevate(logger *zerolog.Logger) {
	runtime.LockOSThread()

	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -FIFOPriority); err != nil {
		logger.Warn().Err(err).Msg("failed to elevate scan thread priority, continuing at default priority")
	}

	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		logger.Warn().Err(err).Msg("failed to lock memory pages, continuing without mlockall")
	}
}
