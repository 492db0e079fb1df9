package image

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearResetsEverySlot(t *testing.T) {
	tables := New()
	scratch := NewScratch()
	filled := tables.FillNullWithScratch(scratch)
	require.Greater(t, filled, 0)

	tables.Clear()

	for i := 0; i < Capacity; i++ {
		for b := 0; b < 8; b++ {
			assert.Nil(t, tables.BoolIn[i][b].Load())
		}
		assert.Nil(t, tables.LintMem[i].Load())
	}
}

func TestFillNullWithScratchIsIdempotent(t *testing.T) {
	tables := New()
	scratch := NewScratch()

	// 11 single-width tables (byte/int/dint/lint in/out + the three mem
	// tables) at one pointer per slot, plus bool_in/bool_out at 8 pointers
	// per slot (spec §3's per-bit addressing).
	first := tables.FillNullWithScratch(scratch)
	assert.Equal(t, Capacity*(11+2*8), first)

	second := tables.FillNullWithScratch(scratch)
	assert.Equal(t, 0, second, "second fill must install zero new pointers")
}

func TestFillNullPreservesBoundSlots(t *testing.T) {
	tables := New()
	scratch := NewScratch()

	var programOwned uint16 = 42
	tables.IntIn[5].Store(&programOwned)

	tables.FillNullWithScratch(scratch)

	assert.Same(t, &programOwned, tables.IntIn[5].Load())
}
