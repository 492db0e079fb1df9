package rtsched

import (
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// futex(2) operation codes for the priority-inheriting lock class. These
// are not exported by golang.org/x/sys/unix (it exposes SYS_FUTEX, the
// syscall number, but not the PI op constants), so they're defined here
// against the stable kernel ABI (linux/futex.h).
const (
	futexLockPI      = 6
	futexUnlockPI    = 7
	futexPrivateFlag = 128
)

// PIMutex is a priority-inheriting mutex for the shared image-table lock
// the scan thread and plugin threads contend on, per spec §4.5: "a thin
// wrapper around a futex-style primitive on Linux (FUTEX_LOCK_PI /
// FUTEX_UNLOCK_PI), falling back to a plain sync.Mutex with a logged
// warning on platforms where PI futexes are unavailable."
//
// The futex word holds 0 when unlocked, or the owning thread's TID (as
// returned by gettid(2)) when locked; the kernel itself performs the
// priority-inheritance boost of the owning thread while a higher-priority
// thread blocks in FUTEX_LOCK_PI, which is why Lock/Unlock must run on a
// goroutine pinned to its OS thread (the scan goroutine is pinned by
// Elevate; callers on other threads share the same property via
// runtime.LockOSThread in their own setup).
type PIMutex struct {
	futex int32 // raw futex word; accessed only via the futex(2) syscall and atomic CAS

	fallbackOnce sync.Once
	fallback     atomic.Bool // set permanently if FUTEX_LOCK_PI is unsupported (ENOSYS)
	fallbackMu   sync.Mutex

	waiting       atomic.Int64 // count of the holder plus blocked waiters, highest priority among them tracked below
	highestWaiter atomic.Int32
	boosted       atomic.Bool

	logger *zerolog.Logger
}

// NewPIMutex constructs a priority-inheriting mutex. logger may be nil, in
// which case inheritance events are not logged.
func NewPIMutex(logger *zerolog.Logger) *PIMutex {
	return &PIMutex{logger: logger}
}

// Lock acquires the mutex at the calling goroutine's declared priority.
// Scan-thread callers should pass FIFOPriority; plugin threads pass a lower
// value (e.g. 0) so inheritance has somewhere to boost from.
func (m *PIMutex) Lock(priority int32) {
	if m.waiting.Add(1) == 1 {
		m.highestWaiter.Store(priority)
	} else {
		for {
			cur := m.highestWaiter.Load()
			if priority <= cur || m.highestWaiter.CompareAndSwap(cur, priority) {
				break
			}
		}
	}

	if priority >= FIFOPriority {
		m.boosted.Store(true)
	}

	if m.fallback.Load() {
		m.fallbackMu.Lock()
		return
	}

	if err := m.lockPI(); err != nil {
		// Any non-transient failure (lockPI already retries EINTR/EAGAIN
		// internally) permanently demotes this mutex to the plain-mutex
		// fallback: once the futex word's state is in doubt, every
		// subsequent Lock/Unlock pair must agree on which path owns it,
		// so the switch has to be all-or-nothing, not per-call.
		m.fallbackOnce.Do(func() {
			if m.logger != nil {
				m.logger.Warn().Err(err).Msg("FUTEX_LOCK_PI unavailable, falling back to plain mutex")
			}
			m.fallback.Store(true)
		})
		m.fallbackMu.Lock()
	}
}

// lockPI performs the actual FUTEX_LOCK_PI syscall, retrying on the
// transient errors the kernel documents (EINTR, EAGAIN).
func (m *PIMutex) lockPI() error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(&m.futex)),
			uintptr(futexLockPI|futexPrivateFlag),
			0)
		switch errno {
		case 0:
			return nil
		case syscall.EINTR, syscall.EAGAIN:
			continue
		default:
			return errno
		}
	}
}

// Unlock releases the mutex and clears any inheritance boost this holder
// picked up.
func (m *PIMutex) Unlock() {
	m.waiting.Add(-1)
	if m.waiting.Load() == 0 {
		m.boosted.Store(false)
		m.highestWaiter.Store(0)
	}

	if m.fallback.Load() {
		m.fallbackMu.Unlock()
		return
	}

	_, _, errno := unix.Syscall(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(&m.futex)),
		uintptr(futexUnlockPI|futexPrivateFlag),
		0)
	if errno != 0 && m.logger != nil {
		m.logger.Warn().Err(errno).Msg("FUTEX_UNLOCK_PI failed")
	}
}

// Boosted reports whether a Lock at FIFOPriority or above has been requested
// since the mutex last had neither a holder nor a waiter. Exposed for the priority-discipline test (property 5).
func (m *PIMutex) Boosted() bool {
	return m.boosted.Load()
}
