package audit

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
)

func TestOpenWithEmptyDSNIsInertNoOp(t *testing.T) {
	logger := zerolog.Nop()
	sink, err := Open("", &logger)
	require.NoError(t, err)

	assert.NotPanics(t, func() { sink.RecordTransition(lifecycle.Empty, lifecycle.Init) })
	assert.NotPanics(t, func() { sink.RecordCommand("START", "OK") })
	assert.NoError(t, sink.Close())
}

func TestOpenRejectsMalformedDSN(t *testing.T) {
	logger := zerolog.Nop()
	_, err := Open("not a valid dsn ===", &logger)
	assert.Error(t, err)
}
