// Package control implements the control & debug endpoint (spec §4.7): a
// local stream socket accepting a line-oriented text command protocol, plus
// a binary debug sub-protocol carried hex-encoded inside the DEBUG command.
// The accept-loop/per-connection-goroutine shape follows
// api/internal/plugins/runtime.go's event-dispatch discipline generalized
// from HTTP handler registration to a raw socket line reader.
package control

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/controlauth"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/lifecycle"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rterrors"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/scan"
)

const (
	maxCommandSize  = 8 * 1024
	maxResponseSize = 16 * 1024
	acceptRetryWait = time.Second
)

// CommandRecorder receives every destructive command and its outcome, used
// by internal/audit to persist a command trail. Nil is a valid value:
// commands are simply not audited.
type CommandRecorder interface {
	RecordCommand(command, outcome string)
}

// Server is the control socket listener.
type Server struct {
	socketPath string
	maxClients int

	manager  *lifecycle.Manager
	gate     *controlauth.Gate
	recorder CommandRecorder
	logger   *zerolog.Logger

	activeClients atomic.Int64
}

// New constructs a control server bound to the given lifecycle manager.
// gate and recorder may both be nil, in which case authentication is never
// required and commands are not audited.
func New(socketPath string, maxClients int, manager *lifecycle.Manager, gate *controlauth.Gate, recorder CommandRecorder, logger *zerolog.Logger) *Server {
	if maxClients <= 0 {
		maxClients = 1
	}
	return &Server{socketPath: socketPath, maxClients: maxClients, manager: manager, gate: gate, recorder: recorder, logger: logger}
}

// Run binds the control socket (removing any stale file first) and serves
// connections until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn().Err(err).Msg("control socket accept failed, retrying")
			time.Sleep(acceptRetryWait)
			continue
		}

		if s.activeClients.Load() >= int64(s.maxClients) {
			conn.Close()
			continue
		}

		s.activeClients.Add(1)
		go func() {
			defer s.activeClients.Add(-1)
			s.serveConn(ctx, conn)
		}()
	}
}

// connState tracks per-connection authentication state: AUTH:<token> must
// precede any destructive command on the same connection.
type connState struct {
	authenticated bool
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	correlationID := uuid.New().String()
	logger := s.logger.With().Str("conn", correlationID).Logger()
	defer conn.Close()

	state := &connState{}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxCommandSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		response := s.dispatch(ctx, state, line, &logger)
		if len(response) > maxResponseSize {
			response = response[:maxResponseSize]
		}

		if _, err := fmt.Fprintln(conn, response); err != nil {
			logger.Warn().Err(err).Msg("control connection write failed")
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, state *connState, line string, logger *zerolog.Logger) string {
	switch {
	case line == "PING":
		return "PING:OK"
	case line == "STATUS":
		return "STATUS:" + s.manager.State().String()
	case line == "STATS":
		return s.handleStats()
	case strings.HasPrefix(line, "AUTH:"):
		return s.handleAuth(state, strings.TrimPrefix(line, "AUTH:"))
	case line == "START" || strings.HasPrefix(line, "START:"):
		return s.handleStart(ctx, state, line, logger)
	case line == "STOP" || strings.HasPrefix(line, "STOP:"):
		return s.handleStop(state, line, logger)
	case strings.HasPrefix(line, "DEBUG:"):
		return s.handleDebug(strings.TrimPrefix(line, "DEBUG:"))
	default:
		return "COMMAND:ERROR"
	}
}

func (s *Server) handleStats() string {
	engine := s.manager.Engine()
	if engine == nil {
		empty, _ := encodeStats(scan.Snapshot{})
		return "STATS:" + empty
	}
	payload, err := encodeStats(engine.Statistics().Snapshot())
	if err != nil {
		return "STATS:ERROR"
	}
	return "STATS:" + payload
}

func (s *Server) handleAuth(state *connState, token string) string {
	if s.gate == nil || !s.gate.Required() {
		state.authenticated = true
		return "AUTH:OK"
	}
	if err := s.gate.ValidateToken(token); err != nil {
		return "AUTH:ERROR"
	}
	state.authenticated = true
	return "AUTH:OK"
}

func (s *Server) requiresAuth() bool {
	return s.gate != nil && s.gate.Required()
}

func (s *Server) authorizeDestructive(state *connState, command string) (bare string, ok bool) {
	bare, code := controlauth.SplitCommandCode(command)
	if !s.requiresAuth() {
		return bare, true
	}
	if !state.authenticated {
		return bare, false
	}
	if s.gate.RequiresTOTP() && !s.gate.ValidateTOTP(code) {
		return bare, false
	}
	return bare, true
}

func (s *Server) handleStart(ctx context.Context, state *connState, command string, logger *zerolog.Logger) string {
	bare, ok := s.authorizeDestructive(state, command)
	if !ok || bare != "START" {
		s.audit("START", "ERROR_UNAUTHORIZED")
		return "START:ERROR"
	}

	_, err := s.manager.SetRunning(ctx)
	if err != nil {
		if errors.Is(err, rterrors.ErrAlreadyRunning) {
			s.audit("START", "ERROR_ALREADY_RUNNING")
			return "START:ERROR_ALREADY_RUNNING"
		}
		logger.Warn().Err(err).Msg("START failed")
		s.audit("START", "ERROR")
		return "START:ERROR"
	}
	s.audit("START", "OK")
	return "START:OK"
}

func (s *Server) handleStop(state *connState, command string, logger *zerolog.Logger) string {
	bare, ok := s.authorizeDestructive(state, command)
	if !ok || bare != "STOP" {
		s.audit("STOP", "ERROR_UNAUTHORIZED")
		return "STOP:ERROR"
	}

	_, err := s.manager.SetStopped()
	if err != nil {
		logger.Warn().Err(err).Msg("STOP failed")
		s.audit("STOP", "ERROR")
		return "STOP:ERROR"
	}
	s.audit("STOP", "OK")
	return "STOP:OK"
}

func (s *Server) audit(command, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordCommand(command, outcome)
	}
}

func (s *Server) handleDebug(hexPayload string) string {
	raw, err := decodeHex(hexPayload)
	if err != nil {
		return "DEBUG:ERROR_PARSING"
	}

	handle := s.manager.ProgramHandle()
	if handle == nil {
		return "DEBUG:ERROR_PROCESSING"
	}

	var tick uint64
	if engine := s.manager.Engine(); engine != nil {
		tick = engine.Tick()
	}

	out, ok := processDebugFrame(handle, raw, tick)
	if !ok {
		return "DEBUG:ERROR_PROCESSING"
	}
	return "DEBUG:" + encodeHex(out)
}
