// Package rterrors collects the sentinel errors used across the runtime,
// grouped by the concern that raises them so call sites can wrap with
// fmt.Errorf("...: %w", err) instead of inventing ad hoc strings.
package rterrors

import "errors"

// Program load errors
var (
	ErrArtifactNotFound  = errors.New("control program artifact not found")
	ErrArtifactMalformed = errors.New("control program artifact malformed")
	ErrSymbolMissing     = errors.New("required symbol missing from artifact")
	ErrAlreadyOpen       = errors.New("program handle already open")
)

// Lifecycle errors
var (
	ErrNoArtifact        = errors.New("no artifact available to load")
	ErrAlreadyRunning    = errors.New("lifecycle already running")
	ErrNotRunning        = errors.New("lifecycle not running")
	ErrInvalidtransition = errors.New("invalid lifecycle transition")
)

// Plugin errors
var (
	ErrPluginInitFailed   = errors.New("plugin init failed")
	ErrPluginConfigBad    = errors.New("malformed plugin configuration line")
	ErrTooManyPlugins     = errors.New("plugin configuration exceeds maximum entries")
	ErrUnknownPluginType  = errors.New("unknown plugin type")
	ErrPluginNotRunning   = errors.New("plugin not running")
)

// Control protocol errors
var (
	ErrCommandUnknown  = errors.New("unknown control command")
	ErrFrameParsing    = errors.New("debug frame failed to parse")
	ErrFrameProcessing = errors.New("debug frame failed to process")
	ErrUnauthenticated = errors.New("control connection not authenticated")
)

// Configuration errors
var (
	ErrMissingControlSocketPath = errors.New("control socket path is required")
	ErrMissingPluginConfigPath  = errors.New("plugin configuration path is required")
	ErrMissingBuildDir          = errors.New("build directory is required")
)
