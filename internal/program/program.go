// Package program implements the dynamic program loader: it opens a
// compiled control-program artifact and resolves its symbol contract. This
// follows api/internal/plugins/discovery.go's use of the standard plugin
// package exactly — plugin.Open then Lookup by exact symbol name — because
// that file already implements the idiom a compiled-artifact loader needs:
// Linux-only, exact-Go-version-at-build-time, no unload capability, exact
// symbol name and signature required.
package program

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/sitaram-kernallogicautomation/openplc-runtime-v4/internal/rterrors"
)

// Bindings is the bound symbol table for a loaded artifact. Optional
// symbols are nil when absent; required symbols are always non-nil on a
// Handle that Open returned successfully.
type Bindings struct {
	ConfigInit        func()
	ConfigRun         func(tick uint64)
	GlueVars          func()
	UpdateTime        func()
	SetBufferPointers func()

	CommonTicktimeNs *int64
	ProgramMD5       string

	// Optional debug symbols.
	SetEndianness *func(uint8)
	GetVarCount   *func() uint16
	GetVarSize    *func(idx uint16) uintptr
	GetVarAddr    *func(idx uint16) uintptr
	SetTrace      *func(idx uint16, forced bool, value uintptr)
}

// Handle owns an opened artifact and its bindings. Destroying it unbinds
// everything; the Go plugin package offers no unload, so Destroy only ever
// clears the Go-level references. The lifecycle manager holds at most one
// Handle at a time; a START after STOP opens a new Handle, and shared
// objects loaded earlier stay mapped for the life of the process.
type Handle struct {
	path     string
	raw      *plugin.Plugin
	Bindings Bindings
	closed   atomic.Bool
}

// requiredSymbols names every symbol whose absence fails Open outright.
var requiredSymbols = []string{
	"ConfigInit", "ConfigRun", "GlueVars", "UpdateTime",
	"SetBufferPointers", "CommonTicktimeNs", "ProgramMD5",
}

// LoadError is returned by Open and DiscoverLatest on failure, carrying enough detail
// for the lifecycle manager to choose between ERROR and EMPTY transitions.
type LoadError struct {
	Kind   LoadErrorKind
	Symbol string
	Detail string
}

// LoadErrorKind enumerates why a load failed.
type LoadErrorKind int

const (
	KindNotFound LoadErrorKind = iota
	KindMalformed
	KindSymbolMissing
)

func (e *LoadError) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("artifact not found: %s", e.Detail)
	case KindSymbolMissing:
		return fmt.Sprintf("required symbol missing: %s (%s)", e.Symbol, e.Detail)
	default:
		return fmt.Sprintf("artifact malformed: %s", e.Detail)
	}
}

func (e *LoadError) Unwrap() error {
	switch e.Kind {
	case KindNotFound:
		return rterrors.ErrArtifactNotFound
	case KindSymbolMissing:
		return rterrors.ErrSymbolMissing
	default:
		return rterrors.ErrArtifactMalformed
	}
}

// Open loads the artifact at path with the plugin package's immediate-
// binding, locally-visible-symbol semantics and resolves every required
// symbol. Optional symbols that are absent are recorded as unbound (left
// nil in Bindings) rather than failing the call.
func Open(path string) (*Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Kind: KindNotFound, Detail: path}
	}

	raw, err := plugin.Open(path)
	if err != nil {
		return nil, &LoadError{Kind: KindMalformed, Detail: err.Error()}
	}

	h := &Handle{path: path, raw: raw}
	if err := h.resolve(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handle) resolve() error {
	lookupFunc := func(name string) (plugin.Symbol, bool) {
		sym, err := h.raw.Lookup(name)
		return sym, err == nil
	}

	required := map[string]interface{}{}
	for _, name := range requiredSymbols {
		sym, ok := lookupFunc(name)
		if !ok {
			return &LoadError{Kind: KindSymbolMissing, Symbol: name, Detail: h.path}
		}
		required[name] = sym
	}

	var ok bool
	if h.Bindings.ConfigInit, ok = required["ConfigInit"].(func()); !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "ConfigInit", Detail: "wrong signature"}
	}
	if h.Bindings.ConfigRun, ok = required["ConfigRun"].(func(uint64)); !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "ConfigRun", Detail: "wrong signature"}
	}
	if h.Bindings.GlueVars, ok = required["GlueVars"].(func()); !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "GlueVars", Detail: "wrong signature"}
	}
	if h.Bindings.UpdateTime, ok = required["UpdateTime"].(func()); !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "UpdateTime", Detail: "wrong signature"}
	}
	if h.Bindings.SetBufferPointers, ok = required["SetBufferPointers"].(func()); !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "SetBufferPointers", Detail: "wrong signature"}
	}
	if h.Bindings.CommonTicktimeNs, ok = required["CommonTicktimeNs"].(*int64); !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "CommonTicktimeNs", Detail: "wrong signature"}
	}
	md5Ptr, ok := required["ProgramMD5"].(*string)
	if !ok {
		return &LoadError{Kind: KindSymbolMissing, Symbol: "ProgramMD5", Detail: "wrong signature"}
	}
	h.Bindings.ProgramMD5 = *md5Ptr

	// Optional debug symbols: absence is not an error.
	if sym, ok := lookupFunc("SetEndianness"); ok {
		if fn, ok := sym.(func(uint8)); ok {
			h.Bindings.SetEndianness = &fn
		}
	}
	if sym, ok := lookupFunc("GetVarCount"); ok {
		if fn, ok := sym.(func() uint16); ok {
			h.Bindings.GetVarCount = &fn
		}
	}
	if sym, ok := lookupFunc("GetVarSize"); ok {
		if fn, ok := sym.(func(uint16) uintptr); ok {
			h.Bindings.GetVarSize = &fn
		}
	}
	if sym, ok := lookupFunc("GetVarAddr"); ok {
		if fn, ok := sym.(func(uint16) uintptr); ok {
			h.Bindings.GetVarAddr = &fn
		}
	}
	if sym, ok := lookupFunc("SetTrace"); ok {
		if fn, ok := sym.(func(uint16, bool, uintptr)); ok {
			h.Bindings.SetTrace = &fn
		}
	}

	return nil
}

// Destroy unbinds the handle. The Go plugin package cannot actually unload
// the shared object from the process; this clears the Go-level bindings so
// nothing in this process can call into it again, which is the contract
// the lifecycle manager relies on.
func (h *Handle) Destroy() {
	h.closed.Store(true)
	h.Bindings = Bindings{}
}

// MD5Hex returns the string the debug protocol's 0x45 function code sends:
// the program's ProgramMD5 symbol verbatim, or, when that is empty, the
// lowercase hex MD5 of the artifact path.
func (h *Handle) MD5Hex() string {
	if h.Bindings.ProgramMD5 != "" {
		return h.Bindings.ProgramMD5
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(h.path)))
}

// DiscoverLatest scans dir for artifacts matching libplc_*.so and returns
// one, preferring the lexicographically-last name — in practice the build
// step names fresh artifacts with a nanosecond timestamp suffix, so that
// ordering is "newest wins" exactly as spec §4.3 describes.
func DiscoverLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &LoadError{Kind: KindNotFound, Detail: dir}
	}

	var candidates []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "libplc_") && strings.HasSuffix(name, ".so") {
			candidates = append(candidates, name)
		}
	}

	if len(candidates) == 0 {
		return "", &LoadError{Kind: KindNotFound, Detail: dir}
	}

	sort.Strings(candidates)
	return filepath.Join(dir, candidates[len(candidates)-1]), nil
}
