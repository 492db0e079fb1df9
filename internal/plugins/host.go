package plugins

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/image"
	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rtsched"
)

// Host is the plugin driver host: it owns every configured plugin
// instance, the shared priority-inheriting image-table mutex, and the
// shared cron instance scripted plugins schedule maintenance jobs against.
// Its registry discipline (RWMutex-guarded slice; hooks are called
// synchronously, with panic recovery around the native cycle and cleanup
// hooks) generalizes
// api/internal/plugins/runtime.go's Runtime type to native/scripted PLC
// drivers instead of web-service feature plugins.
type Host struct {
	mu        sync.RWMutex
	instances []*Instance

	tables *image.Tables
	mutex  *rtsched.PIMutex
	cron   *cron.Cron

	logger *zerolog.Logger
}

// NewHost constructs an empty driver host bound to the shared image
// tables. The mutex is created here with the priority-inheritance
// protocol required by spec §4.5.
func NewHost(tables *image.Tables, logger *zerolog.Logger) *Host {
	return &Host{
		tables: tables,
		mutex:  rtsched.NewPIMutex(logger),
		cron:   cron.New(),
		logger: logger,
	}
}

// Mutex returns the shared image-table mutex, handed to the scan engine so
// both sides of the hot path synchronize through the same primitive.
func (h *Host) Mutex() *rtsched.PIMutex { return h.mutex }

// LoadConfig parses the plugin configuration file and resolves each
// entry's entry points, replacing any previously loaded instance set. It
// does not invoke Init; callers must call Init separately (mirrors
// restart's stop -> cleanup -> reload config -> init -> start sequence).
// A missing config file is not fatal: the plugin set degrades to empty,
// matching the ambient-config posture of every other optional setting.
func (h *Host) LoadConfig(ctx context.Context, path string) error {
	configs, err := ParseConfig(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.logger.Warn().Str("path", path).Msg("plugin config file not found, starting with zero plugins")
			configs = nil
		} else {
			return err
		}
	}

	instances := make([]*Instance, 0, len(configs))
	for _, cfg := range configs {
		inst := &Instance{Config: cfg}

		switch cfg.Type {
		case Native:
			hooks, err := loadNativeHooks(cfg.Path)
			if err != nil {
				return fmt.Errorf("load native plugin %s: %w", cfg.Name, err)
			}
			inst.Native = hooks
		case Scripted:
			interpreter := cfg.VenvPath
			if interpreter == "" {
				interpreter = "python3"
			}
			proc, err := startScriptedProcess(ctx, interpreter, cfg.Path)
			if err != nil {
				return fmt.Errorf("start scripted plugin %s: %w", cfg.Name, err)
			}
			inst.Scripted = newScriptedHooks(proc)
			inst.Scheduler = NewPluginScheduler(h.cron, cfg.Name, h.logger)
		}

		instances = append(instances, inst)
	}

	h.mu.Lock()
	h.instances = instances
	h.mu.Unlock()

	h.cron.Start()
	return nil
}

func (h *Host) args(cfg Config) *RuntimeArgs {
	return &RuntimeArgs{
		Tables:         h.tables,
		Lock:           h.mutex.Lock,
		Unlock:         h.mutex.Unlock,
		BufferCapacity: image.Capacity,
		ConfigPath:     cfg.PerPluginConfigPath,
		LogDebug:       func(f string, a ...interface{}) { h.logger.Debug().Str("plugin", cfg.Name).Msg(fmt.Sprintf(f, a...)) },
		LogInfo:        func(f string, a ...interface{}) { h.logger.Info().Str("plugin", cfg.Name).Msg(fmt.Sprintf(f, a...)) },
		LogWarn:        func(f string, a ...interface{}) { h.logger.Warn().Str("plugin", cfg.Name).Msg(fmt.Sprintf(f, a...)) },
		LogError:       func(f string, a ...interface{}) { h.logger.Error().Str("plugin", cfg.Name).Msg(fmt.Sprintf(f, a...)) },
	}
}

// Init traverses enabled plugins, synthesizes a runtime-arguments record for
// each, and invokes its init. A failure aborts the whole sweep — it is
// fatal for this call, not the process (spec §4.5).
func (h *Host) Init() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, inst := range h.instances {
		if !inst.Config.Enabled {
			continue
		}

		args := h.args(inst.Config)

		var err error
		switch {
		case inst.Native != nil:
			err = inst.Native.Init(args)
		case inst.Scripted != nil:
			err = inst.Scripted.Init(args)
		}
		if err != nil {
			h.logger.Error().Err(err).Str("plugin", inst.Config.Name).Msg("plugin init failed")
			return fmt.Errorf("init plugin %s: %w", inst.Config.Name, err)
		}
	}
	return nil
}

// Start invokes start/start_loop on every enabled plugin. Scripted start
// functions return immediately; any long-running work is the plugin's own
// process/thread.
func (h *Host) Start() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, inst := range h.instances {
		if !inst.Config.Enabled {
			continue
		}

		var err error
		switch {
		case inst.Native != nil && inst.Native.Start != nil:
			err = inst.Native.Start()
		case inst.Scripted != nil:
			err = inst.Scripted.StartLoop()
		}
		if err != nil {
			h.logger.Error().Err(err).Str("plugin", inst.Config.Name).Msg("plugin start failed")
			continue
		}
		inst.running = true
	}
}

// CycleStart invokes cycle_start on every enabled, running native plugin,
// in configuration order, with panic recovery around each call so one
// misbehaving plugin cannot take down the scan thread. Disabled or
// scripted plugins are skipped. Implements scan.PluginHost.
func (h *Host) CycleStart() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, inst := range h.instances {
		if !inst.Config.Enabled || !inst.running || inst.Native == nil || inst.Native.CycleStart == nil {
			continue
		}
		h.safeCall(inst.Config.Name, "cycle_start", inst.Native.CycleStart)
	}
}

// CycleEnd invokes cycle_end on every enabled, running native plugin, in
// configuration order. Implements scan.PluginHost.
func (h *Host) CycleEnd() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, inst := range h.instances {
		if !inst.Config.Enabled || !inst.running || inst.Native == nil || inst.Native.CycleEnd == nil {
			continue
		}
		h.safeCall(inst.Config.Name, "cycle_end", inst.Native.CycleEnd)
	}
}

func (h *Host) safeCall(pluginName, hook string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Interface("panic", r).Str("plugin", pluginName).Str("hook", hook).
				Msg("native plugin hook panicked")
		}
	}()
	fn()
}

// Stop invokes stop/stop_loop on every enabled, running plugin, clearing
// its running flag. Errors are logged per-plugin and do not abort the
// sweep (spec §4.5).
func (h *Host) Stop() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, inst := range h.instances {
		if !inst.running {
			continue
		}

		var err error
		switch {
		case inst.Native != nil && inst.Native.Stop != nil:
			err = inst.Native.Stop()
		case inst.Scripted != nil:
			err = inst.Scripted.StopLoop()
		}
		if err != nil {
			h.logger.Error().Err(err).Str("plugin", inst.Config.Name).Msg("plugin stop failed")
		}
		inst.running = false
	}
}

// Restart performs stop -> per-plugin cleanup -> reload config -> init ->
// start. If reload fails, the driver is left stopped.
func (h *Host) Restart(ctx context.Context, configPath string) error {
	h.Stop()
	h.cleanupAll()

	if err := h.LoadConfig(ctx, configPath); err != nil {
		return fmt.Errorf("restart: reload config: %w", err)
	}

	if err := h.Init(); err != nil {
		return fmt.Errorf("restart: init: %w", err)
	}

	h.Start()
	return nil
}

func (h *Host) cleanupAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, inst := range h.instances {
		if inst.Scheduler != nil {
			inst.Scheduler.RemoveAll()
		}
		switch {
		case inst.Native != nil && inst.Native.Cleanup != nil:
			h.safeCall(inst.Config.Name, "cleanup", inst.Native.Cleanup)
		case inst.Scripted != nil && inst.Scripted.Cleanup != nil:
			inst.Scripted.Cleanup()
		}
	}
}

// Destroy performs stop -> cleanup on every plugin -> stops the shared cron
// instance. The host must guarantee scripted plugins never execute across
// this boundary: after Stop returns here, no further invocations occur.
func (h *Host) Destroy() {
	h.Stop()
	h.cleanupAll()
	h.cron.Stop()

	h.mu.Lock()
	h.instances = nil
	h.mu.Unlock()
}
