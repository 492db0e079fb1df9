// Package logging is the structured logging façade. It follows
// api/internal/logger's pattern: a package-level Initialize, a global base
// logger tagged with the service name, and per-component factory functions
// tagged with a "component" field so log lines can be filtered by
// subsystem without threading a logger through every call.
package logging

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Base is the process-wide logger, configured by Initialize.
var Base zerolog.Logger

// Initialize configures the global logger. level is a zerolog level name
// ("debug", "info", "warn", "error"); unparseable values fall back to info.
// pretty selects a human-readable console writer for local development;
// otherwise records are emitted as JSON with unix-epoch timestamps.
func Initialize(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	Base = log.With().Str("service", "plc-runtime").Logger()
}

// Scan returns the scan cycle engine's component logger.
func Scan() *zerolog.Logger { return componentLogger("scan") }

// Plugins returns the plugin driver host's component logger.
func Plugins() *zerolog.Logger { return componentLogger("plugins") }

// Lifecycle returns the lifecycle manager's component logger.
func Lifecycle() *zerolog.Logger { return componentLogger("lifecycle") }

// Control returns the control and debug endpoint's component logger.
func Control() *zerolog.Logger { return componentLogger("control") }

// Watchdog returns the watchdog's component logger. The watchdog's final
// fatal message bypasses this entirely (see watchdog.go) per spec §4.7.2.
func Watchdog() *zerolog.Logger { return componentLogger("watchdog") }

// Program returns the program loader's component logger.
func Program() *zerolog.Logger { return componentLogger("program") }

// Transport returns the log-transport sink's own component logger, used
// only for its self-diagnostics (connect/reconnect), never recursively for
// the records it is shipping.
func Transport() *zerolog.Logger { return componentLogger("log-transport") }

func componentLogger(name string) *zerolog.Logger {
	l := Base.With().Str("component", name).Logger()
	return &l
}

// transportEnqueuer is satisfied by *Transport, kept as an interface here
// so the hook below doesn't need Transport's internals.
type transportEnqueuer interface {
	Enqueue(rec Record)
}

// transportHook forwards the level and message of every Info-and-above log
// event to the out-of-process transport, the fan-out half of spec §6's ring-buffered
// shipment. Must be attached (AttachTransport) before any component
// logger is derived from Base, since zerolog.Logger values are copied at
// creation time.
type transportHook struct {
	sink transportEnqueuer
}

func (h transportHook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.InfoLevel {
		return
	}
	h.sink.Enqueue(Record{
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		Level:     level.String(),
		Message:   message,
	})
}

// AttachTransport wires Base to ship every Info-and-above record through
// t. Call once, immediately after Initialize and before any package's
// component logger is obtained.
func AttachTransport(t *Transport) {
	Base = Base.Hook(transportHook{sink: t})
}
