package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"deadz80/mem"
)

func newTestCPU(program []byte) *CPU {
	bus := mem.NewFlat()
	bus.LoadProgram(program, 0x0000)
	c := New(bus)
	return c
}

// LD A,1 / INC A: A ends at 2, Z clear.
func TestIncAfterLoad(t *testing.T) {
	c := newTestCPU([]byte{0x3E, 0x01, 0x3C})
	c.Run(7) // LD A,n costs 7 T-states; INC A has not run yet
	assert.Equal(t, byte(0x01), c.A)
	c.Step()
	assert.Equal(t, byte(0x02), c.A)
	assert.False(t, c.GetFlag(FlagZ))
}

// LD B,0 / DEC B: wraps to 0xFF, sets S and H, leaves C untouched.
func TestDecWrapsAndPreservesCarry(t *testing.T) {
	c := newTestCPU([]byte{0x06, 0x00, 0x05})
	c.SetFlag(FlagC, true)
	c.Step()
	c.Step()
	assert.Equal(t, byte(0xFF), c.B)
	assert.True(t, c.GetFlag(FlagS))
	assert.True(t, c.GetFlag(FlagH))
	assert.True(t, c.GetFlag(FlagC), "DEC must not touch C")
}

// LD HL,0x8000 / ADD HL,HL: doubles to 0x0000 with carry set.
func TestAddHLHLCarry(t *testing.T) {
	c := newTestCPU([]byte{0x21, 0x00, 0x80, 0x29})
	c.Step()
	c.Step()
	assert.Equal(t, uint16(0x0000), c.HL())
	assert.True(t, c.GetFlag(FlagC))
}

// ED 44: NEG on A=1 gives A=0xFF, sets C and N.
func TestNeg(t *testing.T) {
	c := newTestCPU([]byte{0xED, 0x44})
	c.A = 0x01
	c.Step()
	assert.Equal(t, byte(0xFF), c.A)
	assert.True(t, c.GetFlag(FlagC))
	assert.True(t, c.GetFlag(FlagN))
}

// CB 47: BIT 0,A reflects bit 0 of A into Z (inverted).
func TestBitOnA(t *testing.T) {
	c := newTestCPU([]byte{0xCB, 0x47})
	c.A = 0x01
	c.Step()
	assert.False(t, c.GetFlag(FlagZ))

	c2 := newTestCPU([]byte{0xCB, 0x47})
	c2.A = 0x00
	c2.Step()
	assert.True(t, c2.GetFlag(FlagZ))
}

// DD 21 34 12 / DD 7E 02: LD IX,0x1234; LD A,(IX+2) reads the byte at 0x1236.
func TestIndexedLoad(t *testing.T) {
	c := newTestCPU([]byte{0xDD, 0x21, 0x34, 0x12, 0xDD, 0x7E, 0x02})
	c.Bus.Write8(0x1236, 0x99)
	c.Step()
	assert.Equal(t, uint16(0x1234), c.IX)
	cycles := c.Cycles
	c.Step()
	assert.Equal(t, byte(0x99), c.A)
	assert.Equal(t, uint64(19), c.Cycles-cycles)
}

func TestResetState(t *testing.T) {
	c := newTestCPU(nil)
	c.PC = 0x1234
	c.Halted = true
	c.Reset()
	assert.Equal(t, uint16(0), c.PC)
	assert.Equal(t, uint16(0xFFFF), c.SP)
	assert.Equal(t, uint16(0xFFFF), c.AF())
	assert.False(t, c.Halted)
	assert.False(t, c.IFF1)
}

func TestHaltHoldsPC(t *testing.T) {
	c := newTestCPU([]byte{0x76})
	c.Step()
	assert.True(t, c.Halted)
	pc := c.PC
	cycles := c.Cycles
	c.Step()
	assert.Equal(t, pc, c.PC)
	assert.Equal(t, uint64(4), c.Cycles-cycles)
}

func TestEIDelaysOneInstruction(t *testing.T) {
	c := newTestCPU([]byte{0xFB, 0x00, 0x00})
	c.IM = 1
	c.Step() // EI
	c.SetIRQ(1)
	c.Step() // the NOP immediately after EI: IRQ must not be accepted yet
	assert.Equal(t, uint16(0x0002), c.PC)
	c.Step() // now IRQ is accepted: PC is pushed and execution jumps to 0x0038
	assert.Equal(t, uint16(0x0038), c.PC)
}

func TestLDIRCopiesBlock(t *testing.T) {
	c := newTestCPU([]byte{0xED, 0xB0})
	c.SetHL(0x2000)
	c.SetDE(0x3000)
	c.SetBC(3)
	c.Bus.Write8(0x2000, 0x11)
	c.Bus.Write8(0x2001, 0x22)
	c.Bus.Write8(0x2002, 0x33)
	for c.BC() != 0 {
		c.Step()
	}
	assert.Equal(t, byte(0x11), c.Bus.Read8(0x3000))
	assert.Equal(t, byte(0x22), c.Bus.Read8(0x3001))
	assert.Equal(t, byte(0x33), c.Bus.Read8(0x3002))
	assert.Equal(t, uint16(0x2003), c.HL())
	assert.Equal(t, uint16(0x3003), c.DE())
}

// CCF (0x3F) moves the old carry into H before inverting C.
func TestCCFMovesOldCarryIntoH(t *testing.T) {
	c := newTestCPU([]byte{0x3F})
	c.SetFlag(FlagC, true)
	c.Step()
	assert.True(t, c.GetFlag(FlagH), "CCF must copy the old carry into H")
	assert.False(t, c.GetFlag(FlagC))

	c = newTestCPU([]byte{0x3F})
	c.SetFlag(FlagC, false)
	c.Step()
	assert.False(t, c.GetFlag(FlagH))
	assert.True(t, c.GetFlag(FlagC))
}

// CB 46 is BIT 0,(HL): X/Y must come from the high byte of HL, not the
// operand byte read from memory.
func TestBitHLTakesXYFromAddressHighByte(t *testing.T) {
	c := newTestCPU([]byte{0xCB, 0x46})
	c.SetHL(0x2800) // high byte 0x28 carries X(bit3) and Y(bit5)
	c.Bus.Write8(0x2800, 0x00)
	c.Step()
	assert.True(t, c.GetFlag(FlagX))
	assert.True(t, c.GetFlag(FlagY))
}
