package plugins

import (
	"fmt"
	"plugin"
)

// loadNativeHooks opens a native plugin artifact and resolves its optional
// entry points, exactly the way discovery.go's getPluginHandler looks up
// the exact exported symbol name. Init is mandatory; every other hook is
// recorded absent (left nil) when the symbol is missing rather than
// failing the load, matching spec §4.5.
func loadNativeHooks(path string) (*NativeHooks, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open native plugin %s: %w", path, err)
	}

	initSym, err := p.Lookup("Init")
	if err != nil {
		return nil, fmt.Errorf("native plugin %s missing mandatory Init: %w", path, err)
	}
	initFn, ok := initSym.(func(*RuntimeArgs) error)
	if !ok {
		return nil, fmt.Errorf("native plugin %s Init has wrong signature", path)
	}

	hooks := &NativeHooks{Init: initFn}

	if sym, err := p.Lookup("Start"); err == nil {
		if fn, ok := sym.(func() error); ok {
			hooks.Start = fn
		}
	}
	if sym, err := p.Lookup("Stop"); err == nil {
		if fn, ok := sym.(func() error); ok {
			hooks.Stop = fn
		}
	}
	if sym, err := p.Lookup("CycleStart"); err == nil {
		if fn, ok := sym.(func()); ok {
			hooks.CycleStart = fn
		}
	}
	if sym, err := p.Lookup("CycleEnd"); err == nil {
		if fn, ok := sym.(func()); ok {
			hooks.CycleEnd = fn
		}
	}
	if sym, err := p.Lookup("Cleanup"); err == nil {
		if fn, ok := sym.(func()); ok {
			hooks.Cleanup = fn
		}
	}

	return hooks, nil
}
