package watchdog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
)

func newTestWatchdog(t *testing.T, exit Exiter) *Watchdog {
	t.Helper()
	logger := zerolog.Nop()
	tables := image.New()
	host := plugins.NewHost(tables, &logger)
	manager := lifecycle.NewManager(t.TempDir(), "./plugins.conf", tables, host, nil, &logger)
	return New(manager, &logger, exit)
}

func TestCheckOnceDoesNothingWhileNotRunning(t *testing.T) {
	var exitCode int
	tripped := false
	w := newTestWatchdog(t, func(code int) { tripped = true; exitCode = code })

	stalled := w.checkOnce()

	assert.False(t, stalled)
	assert.False(t, tripped)
	assert.Equal(t, 0, exitCode)
}

func TestTripInvokesExiterWithNonZeroCode(t *testing.T) {
	var gotCode int
	w := newTestWatchdog(t, func(code int) { gotCode = code })

	w.trip(42)

	assert.Equal(t, 1, gotCode)
}
