package lifecycle

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := zerolog.Nop()
	tables := image.New()
	host := plugins.NewHost(tables, &logger)
	return NewManager(t.TempDir(), "./plugins.conf", tables, host, nil, &logger)
}

func TestSetStoppedFromNonRunningLeavesStateUnchanged(t *testing.T) {
	m := newTestManager(t)

	changed, err := m.SetStopped()
	assert.False(t, changed)
	assert.Error(t, err)
	assert.Equal(t, Empty, m.State())
}

func TestSetRunningWithNoArtifactTransitionsToEmpty(t *testing.T) {
	m := newTestManager(t)

	changed, err := m.SetRunning(context.Background())
	assert.True(t, changed)
	assert.Error(t, err)
	assert.Equal(t, Empty, m.State())
}

func TestStateStringsCoverEveryValue(t *testing.T) {
	assert.Equal(t, "EMPTY", Empty.String())
	assert.Equal(t, "INIT", Init.String())
	assert.Equal(t, "RUNNING", Running.String())
	assert.Equal(t, "STOPPED", Stopped.String())
	assert.Equal(t, "ERROR", Error.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
