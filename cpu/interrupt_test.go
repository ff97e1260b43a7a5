package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"deadz80/mem"
)

func TestNMIIsEdgeTriggered(t *testing.T) {
	c := New(mem.NewFlat())
	c.IFF1, c.IFF2 = true, true
	c.SetNMI(1)
	assert.True(t, c.nmiPending)
	c.nmiPending = false
	c.SetNMI(1) // line already asserted: no new edge
	assert.False(t, c.nmiPending)
	c.ClearNMI(1)
	c.SetNMI(1) // deassert then reassert: new edge
	assert.True(t, c.nmiPending)
}

func TestNMIPushesPCAndJumpsTo0066(t *testing.T) {
	c := New(mem.NewFlat())
	c.PC = 0x1000
	c.IFF1, c.IFF2 = true, true
	c.SetNMI(1)
	c.Step()
	assert.Equal(t, uint16(0x0066), c.PC)
	assert.False(t, c.IFF1)
	assert.True(t, c.IFF2)
	assert.Equal(t, uint16(0x1000), c.pop16())
}

func TestIRQIgnoredWhenIFF1Clear(t *testing.T) {
	c := New(mem.NewFlat()) // Reset leaves IFF1 clear: the step runs the NOP below
	c.Bus.LoadProgram([]byte{0x00}, 0x0000)
	c.IM = 1
	c.SetIRQ(1)
	pc := c.PC
	c.Step()
	assert.NotEqual(t, uint16(0x0038), c.PC, "IRQ must not be serviced while IFF1 is clear")
	_ = pc
}

func TestHaltWakesOnInterrupt(t *testing.T) {
	c := New(mem.NewFlat())
	c.Bus.LoadProgram([]byte{0x76}, 0x0000)
	c.IFF1, c.IFF2 = true, true
	c.Step() // HALT
	assert.True(t, c.Halted)
	c.SetIRQ(1)
	c.IM = 1
	c.Step()
	assert.False(t, c.Halted)
	assert.Equal(t, uint16(0x0038), c.PC)
}

func TestRETNRestoresIFF1AndReturns(t *testing.T) {
	c := New(mem.NewFlat())
	c.Bus.LoadProgram([]byte{0xED, 0x45}, 0x0066) // RETN, as an NMI handler body would use
	c.PC = 0x1000
	c.IFF1, c.IFF2 = true, true
	c.SetNMI(1)
	c.Step() // accept NMI: pushes 0x1000, jumps to 0x0066, clears IFF1
	assert.False(t, c.IFF1)
	c.Step() // RETN at 0x0066
	assert.Equal(t, uint16(0x1000), c.PC)
	assert.True(t, c.IFF1)
}

func TestIM2VectorsThroughTable(t *testing.T) {
	c := New(mem.NewFlat())
	c.I = 0x40
	c.IM = 2
	c.IFF1, c.IFF2 = true, true
	c.IRQVector = func() byte { return 0x10 }
	c.Bus.Write16(0x4010, 0x5678)
	c.SetIRQ(1)
	c.Step()
	assert.Equal(t, uint16(0x5678), c.PC)
}
