package regs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	rip, ok := ByName("rip")
	require.True(t, ok)
	assert.Equal(t, 16, rip.DwarfID)
	assert.Equal(t, 8, rip.Size)
	assert.Equal(t, GeneralPurpose, rip.Type)

	eax, ok := ByName("eax")
	require.True(t, ok)
	assert.Equal(t, SubRegister, eax.Type)
	assert.Equal(t, 4, eax.Size)

	rax, ok := ByName("rax")
	require.True(t, ok)
	assert.Equal(t, rax.Offset, eax.Offset)

	_, ok = ByName("r16")
	assert.False(t, ok)
}

func TestByDwarf(t *testing.T) {
	r, ok := ByDwarf(0)
	require.True(t, ok)
	assert.Equal(t, "rax", r.Name)

	xmm3, ok := ByDwarf(20)
	require.True(t, ok)
	assert.Equal(t, "xmm3", xmm3.Name)
	assert.Equal(t, Vector, xmm3.Format)

	st7, ok := ByDwarf(40)
	require.True(t, ok)
	assert.Equal(t, "st7", st7.Name)

	// sub-registers and debug registers carry no DWARF id
	_, ok = ByDwarf(-1)
	assert.False(t, ok)
}

func TestTableShape(t *testing.T) {
	all := All()
	assert.Equal(t, 125, len(all))

	// descriptors fall inside the kernel's user area
	for _, r := range all {
		assert.True(t, r.Offset >= 0 && r.Offset+r.Size <= 912, "register %s offset %d", r.Name, r.Offset)
	}

	// st and mm registers alias the same fxsave slots
	st0, _ := ByName("st0")
	mm0, _ := ByName("mm0")
	assert.Equal(t, st0.Offset, mm0.Offset)
}
