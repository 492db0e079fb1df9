package reporter

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
)

func TestReportOnceSkipsWhenNoEngineRunning(t *testing.T) {
	logger := zerolog.Nop()
	tables := image.New()
	host := plugins.NewHost(tables, &logger)
	manager := lifecycle.NewManager(t.TempDir(), "./plugins.conf", tables, host, nil, &logger)

	r := New(manager, nil, &logger)
	assert.NotPanics(t, func() { r.reportOnce(context.Background()) })
}

func TestStartRejectsMalformedCronExpression(t *testing.T) {
	logger := zerolog.Nop()
	tables := image.New()
	host := plugins.NewHost(tables, &logger)
	manager := lifecycle.NewManager(t.TempDir(), "./plugins.conf", tables, host, nil, &logger)

	r := New(manager, nil, &logger)
	err := r.Start(context.Background(), "not a cron expression")
	require.Error(t, err)
}
