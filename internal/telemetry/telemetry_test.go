package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherWithEmptyURLIsNoOp(t *testing.T) {
	logger := zerolog.Nop()
	pub, err := NewPublisher("", "stats", &logger)
	require.NoError(t, err)

	assert.NotPanics(t, func() { pub.Publish(context.Background(), Snapshot{ScanCount: 1}) })
	assert.NoError(t, pub.Close())
}

func TestNewPublisherRejectsMalformedURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewPublisher("://not-a-url", "stats", &logger)
	assert.Error(t, err)
}
