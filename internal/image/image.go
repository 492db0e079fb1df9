// Package image implements the fixed-capacity I/O image tables: the shared
// memory the control program and plugins exchange. Tables hold pointers
// into control-program-owned memory, never copies of the values — the
// program allocates the storage; the table is pure indirection so plugins
// can observe or mutate it without the host ever owning the data.
package image

import "sync/atomic"

// Capacity is the fixed slot count N applying to every table (spec §3).
const Capacity = 1024

// Tables is the full set of per-width image tables. Every field is an
// array of atomic pointers so a slot can be read or rebound without ever
// observing a torn or partially-written address.
type Tables struct {
	// BoolIn and BoolOut are N slots of 8 individually-addressable bits
	// each (spec §3's bool_in[N][8]/bool_out[N][8]): every bit is its own
	// pointer into control-program memory, not a packed byte, so a single
	// bit can be rebound or read without disturbing its seven neighbors.
	BoolIn  [Capacity][8]atomic.Pointer[byte]
	BoolOut [Capacity][8]atomic.Pointer[byte]

	ByteIn  [Capacity]atomic.Pointer[uint8]
	ByteOut [Capacity]atomic.Pointer[uint8]

	IntIn  [Capacity]atomic.Pointer[uint16]
	IntOut [Capacity]atomic.Pointer[uint16]

	DintIn  [Capacity]atomic.Pointer[uint32]
	DintOut [Capacity]atomic.Pointer[uint32]

	LintIn  [Capacity]atomic.Pointer[uint64]
	LintOut [Capacity]atomic.Pointer[uint64]

	IntMem  [Capacity]atomic.Pointer[uint16]
	DintMem [Capacity]atomic.Pointer[uint32]
	LintMem [Capacity]atomic.Pointer[uint64]
}

// New returns an empty table set with every slot NULL, as after an unload.
func New() *Tables {
	return &Tables{}
}

// Clear sets every slot in every table to NULL. Used immediately after an
// unload, before the next load binds fresh addresses (spec §4.2).
func (t *Tables) Clear() {
	for i := 0; i < Capacity; i++ {
		for b := 0; b < 8; b++ {
			t.BoolIn[i][b].Store(nil)
			t.BoolOut[i][b].Store(nil)
		}
		t.ByteIn[i].Store(nil)
		t.ByteOut[i].Store(nil)
		t.IntIn[i].Store(nil)
		t.IntOut[i].Store(nil)
		t.DintIn[i].Store(nil)
		t.DintOut[i].Store(nil)
		t.LintIn[i].Store(nil)
		t.LintOut[i].Store(nil)
		t.IntMem[i].Store(nil)
		t.DintMem[i].Store(nil)
		t.LintMem[i].Store(nil)
	}
}

// FillNullWithScratch installs a pointer to a process-local zero-initialized
// scratch cell into every NULL slot, of the correct width per table, so
// concurrent plugin reads/writes cannot dereference a nil pointer. It is
// idempotent and returns the number of slots it actually filled, so callers
// can verify property 3 (NULL-fill idempotence): calling it twice in a row
// fills zero slots on the second call.
func (t *Tables) FillNullWithScratch(s *Scratch) int {
	filled := 0

	fillBool := func(arr *[Capacity][8]atomic.Pointer[byte], cells *[Capacity][8]byte) {
		for i := range arr {
			for b := range arr[i] {
				if arr[i][b].Load() == nil {
					arr[i][b].Store(&cells[i][b])
					filled++
				}
			}
		}
	}
	fillByte := func(arr *[Capacity]atomic.Pointer[uint8], cells []uint8) {
		for i := range arr {
			if arr[i].Load() == nil {
				arr[i].Store(&cells[i])
				filled++
			}
		}
	}
	fillInt := func(arr *[Capacity]atomic.Pointer[uint16], cells []uint16) {
		for i := range arr {
			if arr[i].Load() == nil {
				arr[i].Store(&cells[i])
				filled++
			}
		}
	}
	fillDint := func(arr *[Capacity]atomic.Pointer[uint32], cells []uint32) {
		for i := range arr {
			if arr[i].Load() == nil {
				arr[i].Store(&cells[i])
				filled++
			}
		}
	}
	fillLint := func(arr *[Capacity]atomic.Pointer[uint64], cells []uint64) {
		for i := range arr {
			if arr[i].Load() == nil {
				arr[i].Store(&cells[i])
				filled++
			}
		}
	}

	fillBool(&t.BoolIn, &s.boolIn)
	fillBool(&t.BoolOut, &s.boolOut)
	fillByte(&t.ByteIn, s.byteIn[:])
	fillByte(&t.ByteOut, s.byteOut[:])
	fillInt(&t.IntIn, s.intIn[:])
	fillInt(&t.IntOut, s.intOut[:])
	fillDint(&t.DintIn, s.dintIn[:])
	fillDint(&t.DintOut, s.dintOut[:])
	fillLint(&t.LintIn, s.lintIn[:])
	fillLint(&t.LintOut, s.lintOut[:])
	fillInt(&t.IntMem, s.intMem[:])
	fillDint(&t.DintMem, s.dintMem[:])
	fillLint(&t.LintMem, s.lintMem[:])

	return filled
}

// Scratch is the process-local, zero-initialized backing storage handed to
// FillNullWithScratch. It is allocated once per lifecycle manager instance
// and outlives every program load/unload cycle, satisfying the spec's
// requirement that scratch cells outlive the plugin-visible lifetime of the
// slots that point to them.
type Scratch struct {
	boolIn, boolOut          [Capacity][8]byte
	byteIn, byteOut          [Capacity]uint8
	intIn, intOut, intMem    [Capacity]uint16
	dintIn, dintOut, dintMem [Capacity]uint32
	lintIn, lintOut, lintMem [Capacity]uint64
}

// NewScratch allocates a fresh, zeroed scratch block.
func NewScratch() *Scratch {
	return &Scratch{}
}
