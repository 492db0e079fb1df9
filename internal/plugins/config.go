// Package plugins implements the plugin driver host: it parses the plugin
// configuration file, loads native and scripted plugins, invokes their
// lifecycle and per-cycle hooks under the shared priority-inheriting
// image-table mutex, and tears them down cleanly on stop/destroy.
//
// The native-plugin loading half follows
// api/internal/plugins/discovery.go's dynamic-loading idiom (plugin.Open +
// exact symbol lookup, built-in vs dynamic duality); the registry and
// lifecycle dispatch half follows api/internal/plugins/runtime.go
// (RWMutex-guarded map, goroutine-per-hook panic recovery); the scripted
// plugin maintenance scheduler follows api/internal/plugins/scheduler.go
// (per-plugin namespace wrapping a shared *cron.Cron).
package plugins

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rterrors"
)

// Type distinguishes a native (compiled, real-time-capable) plugin from a
// scripted one (non-realtime, own threads).
type Type int

const (
	Native Type = iota
	Scripted
)

// MaxConfigEntries bounds the plugin configuration file per spec §4.5.
const MaxConfigEntries = 16

// Config is one parsed line of the plugin configuration file.
type Config struct {
	Name                string
	Path                string
	Enabled             bool
	Type                Type
	PerPluginConfigPath string
	VenvPath            string // only meaningful when Type == Scripted
}

// ParseConfig reads the comma-separated plugin configuration file: lines
// starting with # or blank are ignored; fields are
// name, path, enabled, type, per_plugin_config_path, venv_path?; up to
// MaxConfigEntries entries are accepted.
func ParseConfig(path string) ([]Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin config %s: %w", path, err)
	}
	defer f.Close()

	var configs []Config
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if len(configs) >= MaxConfigEntries {
			return nil, fmt.Errorf("%w: limit %d", rterrors.ErrTooManyPlugins, MaxConfigEntries)
		}

		cfg, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plugin config %s: %w", path, err)
	}

	return configs, nil
}

func parseLine(line string) (Config, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return Config{}, fmt.Errorf("%w: %q", rterrors.ErrPluginConfigBad, line)
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	enabledInt, err := strconv.Atoi(fields[2])
	if err != nil {
		return Config{}, fmt.Errorf("%w: enabled field %q: %v", rterrors.ErrPluginConfigBad, fields[2], err)
	}

	typeInt, err := strconv.Atoi(fields[3])
	if err != nil {
		return Config{}, fmt.Errorf("%w: type field %q: %v", rterrors.ErrPluginConfigBad, fields[3], err)
	}

	var pluginType Type
	switch typeInt {
	case int(Native):
		pluginType = Native
	case int(Scripted):
		pluginType = Scripted
	default:
		return Config{}, fmt.Errorf("%w: %d", rterrors.ErrUnknownPluginType, typeInt)
	}

	cfg := Config{
		Name:                fields[0],
		Path:                fields[1],
		Enabled:             enabledInt != 0,
		Type:                pluginType,
		PerPluginConfigPath: fields[4],
	}
	if len(fields) >= 6 {
		cfg.VenvPath = fields[5]
	}

	return cfg, nil
}
