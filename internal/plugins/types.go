package plugins

import "github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"

// RuntimeArgs is the single value handed to a native plugin at init: a
// pointer to the image tables, the shared mutex's lock/unlock functions,
// the buffer capacity, the per-plugin config path, and four log-level
// functions. Field order and widths are the stable ABI the spec's
// design notes call for. Scripted plugins run as separate processes and
// do not receive it (see newScriptedHooks); there is no release or
// destructor method.
type RuntimeArgs struct {
	Tables *image.Tables

	Lock   func(priority int32)
	Unlock func()

	BufferCapacity int
	ConfigPath     string

	LogDebug func(format string, args ...interface{})
	LogInfo  func(format string, args ...interface{})
	LogWarn  func(format string, args ...interface{})
	LogError func(format string, args ...interface{})
}

// NativeHooks are the six optional entry points a native plugin may export.
// Init is mandatory; every other field may be nil, recorded as absent.
type NativeHooks struct {
	Init       func(*RuntimeArgs) error
	Start      func() error
	Stop       func() error
	CycleStart func()
	CycleEnd   func()
	Cleanup    func()
}

// ScriptedHooks are the lifecycle entry points a scripted plugin module
// exposes. There is no cycle_start/cycle_end: scripted plugins are assumed
// non-realtime and never called from the scan hot path.
type ScriptedHooks struct {
	Init      func(*RuntimeArgs) error
	StartLoop func() error
	StopLoop  func() error
	Cleanup   func()
}

// Instance is one configured, loaded plugin: its configuration plus
// exactly one of {Native, Scripted} bindings, a running flag, and (for
// scripted plugins) a maintenance-job scheduler.
type Instance struct {
	Config Config

	Native    *NativeHooks
	Scripted  *ScriptedHooks
	Scheduler *PluginScheduler

	running bool
}

func (i *Instance) Running() bool { return i.running }
