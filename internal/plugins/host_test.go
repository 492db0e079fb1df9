package plugins

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
)

func newTestHost(t *testing.T) *Host {
	t.Helper()
	logger := zerolog.Nop()
	return NewHost(image.New(), &logger)
}

func TestHostInitStartCycleLifecycle(t *testing.T) {
	host := newTestHost(t)

	var initCalls, startCalls, cycleStarts, cycleEnds, stopCalls, cleanupCalls atomic.Int64

	inst := &Instance{
		Config: Config{Name: "alpha", Enabled: true, Type: Native},
		Native: &NativeHooks{
			Init:       func(*RuntimeArgs) error { initCalls.Add(1); return nil },
			Start:      func() error { startCalls.Add(1); return nil },
			CycleStart: func() { cycleStarts.Add(1) },
			CycleEnd:   func() { cycleEnds.Add(1) },
			Stop:       func() error { stopCalls.Add(1); return nil },
			Cleanup:    func() { cleanupCalls.Add(1) },
		},
	}
	host.instances = []*Instance{inst}

	require.NoError(t, host.Init())
	assert.Equal(t, int64(1), initCalls.Load())

	host.Start()
	assert.True(t, inst.Running())
	assert.Equal(t, int64(1), startCalls.Load())

	host.CycleStart()
	host.CycleEnd()
	assert.Equal(t, int64(1), cycleStarts.Load())
	assert.Equal(t, int64(1), cycleEnds.Load())

	host.Stop()
	assert.False(t, inst.Running())
	assert.Equal(t, int64(1), stopCalls.Load())

	host.Destroy()
	assert.Equal(t, int64(1), cleanupCalls.Load())
}

func TestHostSkipsDisabledPluginsInCycleHooks(t *testing.T) {
	host := newTestHost(t)

	var cycleStarts atomic.Int64
	inst := &Instance{
		Config:  Config{Name: "disabled", Enabled: false, Type: Native},
		Native:  &NativeHooks{Init: func(*RuntimeArgs) error { return nil }, CycleStart: func() { cycleStarts.Add(1) }},
		running: true,
	}
	host.instances = []*Instance{inst}

	host.CycleStart()
	assert.Equal(t, int64(0), cycleStarts.Load())
}

func TestHostInitFailureAbortsSweep(t *testing.T) {
	host := newTestHost(t)

	var secondInitCalled atomic.Bool
	host.instances = []*Instance{
		{
			Config: Config{Name: "fails", Enabled: true, Type: Native},
			Native: &NativeHooks{Init: func(*RuntimeArgs) error { return assert.AnError }},
		},
		{
			Config: Config{Name: "never-reached", Enabled: true, Type: Native},
			Native: &NativeHooks{Init: func(*RuntimeArgs) error { secondInitCalled.Store(true); return nil }},
		},
	}

	err := host.Init()
	assert.Error(t, err)
	assert.False(t, secondInitCalled.Load())
}

func TestLoadConfigWithMissingFileDegradesToZeroPlugins(t *testing.T) {
	host := newTestHost(t)

	missing := filepath.Join(t.TempDir(), "does-not-exist.conf")
	err := host.LoadConfig(context.Background(), missing)

	require.NoError(t, err)
	assert.Empty(t, host.instances)
}

func TestHostCycleHookPanicRecovered(t *testing.T) {
	host := newTestHost(t)

	host.instances = []*Instance{
		{
			Config:  Config{Name: "panics", Enabled: true, Type: Native},
			Native:  &NativeHooks{CycleStart: func() { panic("boom") }},
			running: true,
		},
	}

	assert.NotPanics(t, func() { host.CycleStart() })
}
