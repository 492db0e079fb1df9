// Package watchdog implements the independent liveness monitor described in
// spec §4.7.2: a goroutine that wakes every two seconds, compares the scan
// engine's heartbeat against its previous observation, and terminates the
// process outright on a stall while the lifecycle is RUNNING.
package watchdog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
)

const pollInterval = 2 * time.Second

// Exiter abstracts process termination so tests can observe a trip without
// actually killing the test binary.
type Exiter func(code int)

// Watchdog polls a lifecycle manager's heartbeat and exits the process on
// stall.
type Watchdog struct {
	manager *lifecycle.Manager
	logger  *zerolog.Logger
	exit    Exiter

	lastSeen     int64
	everObserved bool
}

// New constructs a watchdog bound to the given lifecycle manager. Pass nil
// exit to use os.Exit(1); tests should supply a recording Exiter instead.
func New(manager *lifecycle.Manager, logger *zerolog.Logger, exit Exiter) *Watchdog {
	if exit == nil {
		exit = func(code int) { os.Exit(code) }
	}
	return &Watchdog{manager: manager, logger: logger, exit: exit}
}

// Run polls until ctx is cancelled. It never returns on its own in normal
// operation other than via ctx cancellation; a stall calls the configured
// Exiter and then returns (the real Exiter never returns control, but tests
// substitute one that does).
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.checkOnce() {
				return
			}
		}
	}
}

// checkOnce performs a single liveness check and returns true if it tripped
// the watchdog (a stall was detected and the exiter was invoked).
func (w *Watchdog) checkOnce() bool {
	state := w.manager.State()
	if state != lifecycle.Running {
		w.everObserved = false
		return false
	}

	engine := w.manager.Engine()
	if engine == nil {
		return false
	}
	current := engine.Heartbeat()

	if !w.everObserved {
		w.lastSeen = current
		w.everObserved = true
		return false
	}

	if current == w.lastSeen {
		w.trip(current)
		return true
	}

	w.lastSeen = current
	return false
}

func (w *Watchdog) trip(heartbeat int64) {
	fmt.Fprintln(os.Stderr, "plc-runtime watchdog: scan engine heartbeat stalled at", heartbeat, "- terminating")
	w.exit(1)
}
