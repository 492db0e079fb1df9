// Package telemetry implements the optional read-only statistics fan-out
// (spec §5, statistics reporter goroutine): it publishes periodic timing
// snapshots to a Redis channel. The runtime itself never reads back from
// Redis — this is purely an outbound broadcast, preserving the "no
// distributed coordination" posture elsewhere in this core. Grounded on
// agents/docker-agent/internal/leaderelection/redis_backend.go's
// *redis.Client wiring and config shape, repurposed from a coordination
// primitive (SET NX) to a pub/sub publisher.
package telemetry

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Snapshot is the payload published to the fan-out channel; callers
// construct it from a scan.Snapshot without this package importing
// internal/scan, keeping the dependency surface to exactly what is
// serialized.
type Snapshot struct {
	ScanCount  uint64   `json:"scan_count"`
	Overruns   uint64   `json:"overruns"`
	HasTiming  bool     `json:"has_timing"`
	ScanTimeUs *int64   `json:"scan_time_us,omitempty"`
	CycleTimeUs *int64  `json:"cycle_time_us,omitempty"`
	LatencyUs  *int64   `json:"latency_us,omitempty"`
}

// Publisher fans a statistics snapshot out to a Redis pub/sub channel. A nil
// *redis.Client (no URL configured) makes every Publish call a no-op.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *zerolog.Logger
}

// NewPublisher constructs a publisher. Pass an empty url to disable
// telemetry entirely — the returned Publisher.Publish becomes a no-op.
func NewPublisher(url, channel string, logger *zerolog.Logger) (*Publisher, error) {
	if url == "" {
		return &Publisher{channel: channel, logger: logger}, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	return &Publisher{client: redis.NewClient(opt), channel: channel, logger: logger}, nil
}

// Publish serializes the snapshot and publishes it, logging (not failing)
// on a transport error — telemetry is best-effort and never blocks the
// caller's control flow.
func (p *Publisher) Publish(ctx context.Context, snap Snapshot) {
	if p.client == nil {
		return
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		p.logger.Warn().Err(err).Msg("telemetry: failed to marshal snapshot")
		return
	}

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn().Err(err).Msg("telemetry: failed to publish snapshot")
	}
}

// Close releases the underlying Redis connection, if any.
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
