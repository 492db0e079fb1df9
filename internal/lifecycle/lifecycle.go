// Package lifecycle implements the authoritative runtime state machine,
// binding the program loader, scan engine, and plugin driver host into
// coherent start/stop transitions (spec §4.6).
package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/plugins"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/program"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rterrors"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rtsched"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scan"
)

// State is the lifecycle enumeration from spec §3.
type State int

const (
	Empty State = iota
	Init
	Running
	Stopped
	Error
)

func (s State) String() string {
	switch s {
	case Empty:
		return "EMPTY"
	case Init:
		return "INIT"
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// TransitionAuditor receives a record of every transition, used by
// internal/audit to persist an optional command trail. Nil is a valid
// value: transitions are simply not audited.
type TransitionAuditor interface {
	RecordTransition(from, to State)
}

// Manager is the lifecycle manager: the authoritative state holder that
// gates loading and the scan engine.
type Manager struct {
	mu    sync.Mutex
	state State

	buildDir string
	tables   *image.Tables
	scratch  *image.Scratch
	host     *plugins.Host
	pluginConfigPath string

	handle       *program.Handle
	engine       *scan.Engine
	cancelEngine context.CancelFunc
	engineDone   chan struct{}

	auditor TransitionAuditor
	logger  *zerolog.Logger
}

// NewManager constructs a lifecycle manager in the EMPTY state.
func NewManager(buildDir, pluginConfigPath string, tables *image.Tables, host *plugins.Host, auditor TransitionAuditor, logger *zerolog.Logger) *Manager {
	return &Manager{
		state:            Empty,
		buildDir:         buildDir,
		pluginConfigPath: pluginConfigPath,
		tables:           tables,
		scratch:          image.NewScratch(),
		host:             host,
		auditor:          auditor,
		logger:           logger,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Engine returns the currently running scan engine, or nil when not
// RUNNING. Used by the control endpoint's STATS command.
func (m *Manager) Engine() *scan.Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine
}

// ProgramHandle returns the currently loaded program handle, or nil.
func (m *Manager) ProgramHandle() *program.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

func (m *Manager) transition(to State) {
	from := m.state
	m.state = to
	m.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("lifecycle transition")
	if m.auditor != nil {
		m.auditor.RecordTransition(from, to)
	}
}

// SetRunning implements set(RUNNING) from {STOPPED, ERROR, EMPTY}: discover
// the latest artifact, open it, load and init plugins, and spawn the scan
// engine goroutine. Returns false ("nothing changed") if already RUNNING.
func (m *Manager) SetRunning(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Running {
		return false, rterrors.ErrAlreadyRunning
	}

	path, err := program.DiscoverLatest(m.buildDir)
	if err != nil {
		m.transition(Empty)
		return true, fmt.Errorf("discover artifact: %w", err)
	}

	m.transition(Init)

	handle, err := program.Open(path)
	if err != nil {
		m.transition(Error)
		return true, fmt.Errorf("open artifact: %w", err)
	}

	handle.Bindings.ConfigInit()
	handle.Bindings.GlueVars()
	handle.Bindings.SetBufferPointers()
	m.tables.FillNullWithScratch(m.scratch)

	if err := m.host.LoadConfig(ctx, m.pluginConfigPath); err != nil {
		handle.Destroy()
		m.transition(Error)
		return true, fmt.Errorf("load plugin config: %w", err)
	}
	if err := m.host.Init(); err != nil {
		handle.Destroy()
		m.transition(Error)
		return true, fmt.Errorf("init plugins: %w", err)
	}
	m.host.Start()

	engine := scan.NewEngine(handle, m.host.Mutex(), m.host, m.logger)
	engineCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.handle = handle
	m.engine = engine
	m.cancelEngine = cancel
	m.engineDone = done

	go func() {
		defer close(done)
		rtsched.Elevate(m.logger)
		engine.Run(engineCtx)
	}()

	m.transition(Running)
	return true, nil
}

// SetStopped implements set(STOPPED) from RUNNING: stop the scan engine and
// the plugins, destroy the program handle, and clear the image tables. From
// any other state it returns false with rterrors.ErrNotRunning and leaves
// the state unchanged.
func (m *Manager) SetStopped() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Running {
		return false, rterrors.ErrNotRunning
	}

	m.cancelEngine()
	<-m.engineDone
	m.host.Stop()

	if m.handle != nil {
		m.handle.Destroy()
		m.handle = nil
	}
	m.tables.Clear()
	m.engine = nil

	m.transition(Stopped)
	return true, nil
}
