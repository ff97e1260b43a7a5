package cpu

import (
	"deadz80/diag"
	"deadz80/mask"
)

// The decoder realizes the Z80's six opcode tables (main, CB, ED, DD, FD,
// DDCB/FDCB) as bit-field decomposition rather than ~1500 literal table rows:
// x=(op>>6)&3, y=(op>>3)&7, z=op&7, p=y>>1, q=y&1. DD and FD differ from the
// main table only in which index register (IX or IY) stands in for HL, so a
// single parameterized path (mode: 0=HL, 1=IX, 2=IY) covers both, following
// every H/L or (HL) reference through to IXH/IXL/(IX+d) or IYH/IYL/(IY+d).

func decompose(op byte) (x, y, z, p, q byte) {
	x = op >> 6 & 3
	y = op >> 3 & 7
	z = op & 7
	p = y >> 1
	q = y & 1
	return
}

// hlAddr returns the effective address an (HL)/(IX+d)/(IY+d) reference
// resolves to under mode.
func (c *CPU) hlAddr(mode byte, disp int8) uint16 {
	switch mode {
	case 1:
		return uint16(int32(c.IX) + int32(disp))
	case 2:
		return uint16(int32(c.IY) + int32(disp))
	default:
		return c.HL()
	}
}

// readR8/writeR8 implement the r[z] (or r[y]) 8-way register table, with
// every H/L/(HL) slot redirected per mode.
func (c *CPU) readR8(idx byte, mode byte, disp int8) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		switch mode {
		case 1:
			return c.IXH()
		case 2:
			return c.IYH()
		default:
			return c.H
		}
	case 5:
		switch mode {
		case 1:
			return c.IXL()
		case 2:
			return c.IYL()
		default:
			return c.L
		}
	case 6:
		return c.Bus.Read8(c.hlAddr(mode, disp))
	default: // 7
		return c.A
	}
}

func (c *CPU) writeR8(idx byte, mode byte, disp int8, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		switch mode {
		case 1:
			c.SetIXH(v)
		case 2:
			c.SetIYH(v)
		default:
			c.H = v
		}
	case 5:
		switch mode {
		case 1:
			c.SetIXL(v)
		case 2:
			c.SetIYL(v)
		default:
			c.L = v
		}
	case 6:
		c.Bus.Write8(c.hlAddr(mode, disp), v)
	default: // 7
		c.A = v
	}
}

// readRP/writeRP implement the rp[p] table (BC, DE, HL, SP), with the p==2
// (HL) slot redirected to IX/IY per mode.
func (c *CPU) readRP(p byte, mode byte) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		switch mode {
		case 1:
			return c.IX
		case 2:
			return c.IY
		default:
			return c.HL()
		}
	default: // 3
		return c.SP
	}
}

func (c *CPU) writeRP(p byte, mode byte, v uint16) {
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		switch mode {
		case 1:
			c.IX = v
		case 2:
			c.IY = v
		default:
			c.SetHL(v)
		}
	default: // 3
		c.SP = v
	}
}

func (c *CPU) readRP2(p byte, mode byte) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		switch mode {
		case 1:
			return c.IX
		case 2:
			return c.IY
		default:
			return c.HL()
		}
	default: // 3
		return c.AF()
	}
}

func (c *CPU) writeRP2(p byte, mode byte, v uint16) {
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		switch mode {
		case 1:
			c.IX = v
		case 2:
			c.IY = v
		default:
			c.SetHL(v)
		}
	default: // 3
		c.SetAF(v)
	}
}

func (c *CPU) condition(y byte) bool {
	switch y {
	case 0:
		return c.F&FlagZ == 0
	case 1:
		return c.F&FlagZ != 0
	case 2:
		return c.F&FlagC == 0
	case 3:
		return c.F&FlagC != 0
	case 4:
		return c.F&FlagP == 0
	case 5:
		return c.F&FlagP != 0
	case 6:
		return c.F&FlagS == 0
	default: // 7
		return c.F&FlagS != 0
	}
}

// referencesHL reports whether the main-table opcode at (x,y,z) touches the
// (HL) slot of the r[] table, the only case that needs a displacement byte
// read under DD/FD. HALT (x==1,y==6,z==6) is excluded: Z80 silicon leaves it
// un-indexed.
func referencesHL(x, y, z byte) bool {
	switch {
	case x == 0 && z == 4 && y == 6:
		return true
	case x == 0 && z == 5 && y == 6:
		return true
	case x == 0 && z == 6 && y == 6:
		return true
	case x == 1 && z == 6 && y == 6:
		return false
	case x == 1 && (y == 6 || z == 6):
		return true
	case x == 2 && z == 6:
		return true
	}
	return false
}

// execMain dispatches a freshly-fetched opcode byte from the unprefixed
// table, routing CB/ED/DD/FD to their own tables.
func (c *CPU) execMain(op byte) int {
	switch op {
	case 0xCB:
		op2 := c.fetch8()
		c.bumpR()
		return c.execCB(op2, 0, 0)
	case 0xED:
		op2 := c.fetch8()
		c.bumpR()
		return c.execED(op2)
	case 0xDD:
		return 4 + c.execIndexed(1)
	case 0xFD:
		return 4 + c.execIndexed(2)
	default:
		return c.execGroup(op, 0)
	}
}

// execIndexed consumes the opcode byte that follows a DD or FD prefix.
func (c *CPU) execIndexed(mode byte) int {
	op2 := c.fetch8()
	switch op2 {
	case 0xCB:
		disp := int8(c.fetch8())
		op3 := c.fetch8()
		return c.execIndexedCB(op3, mode, disp)
	case 0xDD:
		return 4 + c.execIndexed(1)
	case 0xFD:
		return 4 + c.execIndexed(2)
	case 0xED:
		op3 := c.fetch8()
		c.bumpR()
		return c.execED(op3)
	}
	c.bumpR()
	return c.execGroup(op2, mode)
}

// execGroup implements the main opcode table (x/y/z decomposition), shared
// by the unprefixed, DD- and FD-prefixed forms.
func (c *CPU) execGroup(op byte, mode byte) int {
	x, y, z, p, q := decompose(op)

	var disp int8
	extra := 0
	if mode != 0 && referencesHL(x, y, z) {
		disp = int8(c.fetch8())
		extra = 8 // displacement read; half-register (IXH/IXL) forms cost only the prefix, charged by the caller
		if x == 0 && z == 6 && y == 6 {
			extra = 5 // LD (IX+d),n: the immediate-n fetch absorbs part of the generic surcharge (total 19, not 22)
		}
	}

	switch x {
	case 0:
		return extra + c.execX0(y, z, p, q, mode, disp)
	case 1:
		return extra + c.execX1(y, z, mode, disp)
	case 2:
		return extra + c.execX2(y, z, mode, disp)
	default:
		return c.execX3(y, z, p, q, mode)
	}
}

func (c *CPU) execX0(y, z, p, q, mode byte, disp int8) int {
	switch z {
	case 0:
		switch y {
		case 0:
			return 4 // NOP
		case 1:
			c.ExchangeAF()
			return 4
		case 2: // DJNZ d
			d := int8(c.fetch8())
			c.B--
			if c.B != 0 {
				c.PC = uint16(int32(c.PC) + int32(d))
				return 13
			}
			return 8
		case 3: // JR d
			d := int8(c.fetch8())
			c.PC = uint16(int32(c.PC) + int32(d))
			return 12
		default: // JR cc,d (y 4..7 -> cc 0..3)
			d := int8(c.fetch8())
			if c.condition(y - 4) {
				c.PC = uint16(int32(c.PC) + int32(d))
				return 12
			}
			return 7
		}
	case 1:
		if q == 0 {
			c.writeRP(p, mode, c.fetch16())
			return 10
		}
		sum, f := add16(c.readRP(2, mode), c.readRP(p, mode), c.F)
		c.writeRP(2, mode, sum)
		c.F = f
		return 11
	case 2:
		switch {
		case q == 0 && p == 0:
			c.Bus.Write8(c.BC(), c.A)
			return 7
		case q == 0 && p == 1:
			c.Bus.Write8(c.DE(), c.A)
			return 7
		case q == 0 && p == 2:
			c.Bus.Write16(c.fetch16(), c.readRP(2, mode))
			return 16
		case q == 0: // p==3
			c.Bus.Write8(c.fetch16(), c.A)
			return 13
		case q == 1 && p == 0:
			c.A = c.Bus.Read8(c.BC())
			return 7
		case q == 1 && p == 1:
			c.A = c.Bus.Read8(c.DE())
			return 7
		case q == 1 && p == 2:
			c.writeRP(2, mode, c.Bus.Read16(c.fetch16()))
			return 16
		default: // q==1,p==3
			c.A = c.Bus.Read8(c.fetch16())
			return 13
		}
	case 3:
		v := c.readRP(p, mode)
		if q == 0 {
			c.writeRP(p, mode, v+1)
		} else {
			c.writeRP(p, mode, v-1)
		}
		return 6
	case 4:
		v := c.readR8(y, mode, disp)
		r, f := inc8(v, c.F)
		c.writeR8(y, mode, disp, r)
		c.F = f
		if y == 6 {
			return 11
		}
		return 4
	case 5:
		v := c.readR8(y, mode, disp)
		r, f := dec8(v, c.F)
		c.writeR8(y, mode, disp, r)
		c.F = f
		if y == 6 {
			return 11
		}
		return 4
	case 6:
		n := c.fetch8()
		c.writeR8(y, mode, disp, n)
		if y == 6 {
			return 10
		}
		return 7
	default: // z==7
		switch y {
		case 0:
			c.A, c.F = rlca(c.A, c.F)
		case 1:
			c.A, c.F = rrca(c.A, c.F)
		case 2:
			c.A, c.F = rla(c.A, c.F)
		case 3:
			c.A, c.F = rra(c.A, c.F)
		case 4:
			c.A, c.F = daa(c.A, c.F)
		case 5:
			c.A, c.F = cpl8(c.A, c.F)
		case 6:
			c.F = (c.F &^ (FlagH | FlagN)) | FlagC | xy(c.A)
		default: // 7: CCF. H takes the old carry, C is inverted.
			oldC := c.F & FlagC
			c.F = (c.F &^ (FlagH | FlagN | FlagC)) | xy(c.A)
			if oldC != 0 {
				c.F |= FlagH
			} else {
				c.F |= FlagC
			}
		}
		return 4
	}
}

func (c *CPU) execX1(y, z, mode byte, disp int8) int {
	if y == 6 && z == 6 {
		c.Halted = true
		return 4
	}
	v := c.readR8(z, mode, disp)
	c.writeR8(y, mode, disp, v)
	if y == 6 || z == 6 {
		return 7
	}
	return 4
}

func (c *CPU) execX2(y, z, mode byte, disp int8) int {
	v := c.readR8(z, mode, disp)
	switch y {
	case 0:
		c.A, c.F = add8(c.A, v)
	case 1:
		c.A, c.F = adc8(c.A, v, c.F&FlagC != 0)
	case 2:
		c.A, c.F = sub8(c.A, v)
	case 3:
		c.A, c.F = sbc8(c.A, v, c.F&FlagC != 0)
	case 4:
		c.A, c.F = and8(c.A, v)
	case 5:
		c.A, c.F = xor8(c.A, v)
	case 6:
		c.A, c.F = or8(c.A, v)
	default: // 7
		c.F = cp8(c.A, v)
	}
	if z == 6 {
		return 7
	}
	return 4
}

func (c *CPU) execX3(y, z, p, q, mode byte) int {
	switch z {
	case 0:
		if c.condition(y) {
			c.PC = c.pop16()
			return 11
		}
		return 5
	case 1:
		switch {
		case q == 0:
			c.writeRP2(p, mode, c.pop16())
			return 10
		case p == 0:
			c.PC = c.pop16()
			return 10
		case p == 1:
			c.Exchange()
			return 4
		case p == 2:
			c.PC = c.readRP(2, mode)
			return 4
		default: // p==3
			c.SP = c.readRP(2, mode)
			return 6
		}
	case 2:
		nn := c.fetch16()
		if c.condition(y) {
			c.PC = nn
		}
		return 10
	case 3:
		switch y {
		case 0:
			nn := c.fetch16()
			c.PC = nn
			return 10
		case 1:
			return 4 // CB prefix, handled in execMain/execIndexed before reaching here
		case 2:
			c.Bus.IOWritePort(uint16(c.fetch8())|uint16(c.A)<<8, c.A)
			return 11
		case 3:
			c.A = c.Bus.IOReadPort(uint16(c.fetch8()) | uint16(c.A)<<8)
			return 11
		case 4: // EX (SP),HL / EX (SP),IX / EX (SP),IY
			sp := c.SP
			lo := c.Bus.Read8(sp)
			hi := c.Bus.Read8(sp + 1)
			oldHi, oldLo := mask.SplitWord(c.readRP(2, mode))
			c.Bus.Write8(sp, oldLo)
			c.Bus.Write8(sp+1, oldHi)
			c.writeRP(2, mode, mask.Word(hi, lo))
			return 19
		case 5:
			hl, de := c.HL(), c.DE()
			c.SetHL(de)
			c.SetDE(hl)
			return 4
		case 6:
			c.IFF1, c.IFF2 = false, false
			return 4
		default: // 7
			c.IFF1, c.IFF2 = true, true
			c.eiDelay = true
			return 4
		}
	case 4:
		nn := c.fetch16()
		if c.condition(y) {
			c.push16(c.PC)
			c.PC = nn
			return 17
		}
		return 10
	case 5:
		switch {
		case q == 0:
			c.push16(c.readRP2(p, mode))
			return 11
		case p == 0:
			nn := c.fetch16()
			c.push16(c.PC)
			c.PC = nn
			return 17
		default:
			// p==1,2,3 are the DD/ED/FD prefixes, consumed before reaching here.
			diag.Warnf("unreachable prefix opcode byte in main table, x=3 z=5 p=%d", p)
			return 4
		}
	case 6:
		n := c.fetch8()
		switch y {
		case 0:
			c.A, c.F = add8(c.A, n)
		case 1:
			c.A, c.F = adc8(c.A, n, c.F&FlagC != 0)
		case 2:
			c.A, c.F = sub8(c.A, n)
		case 3:
			c.A, c.F = sbc8(c.A, n, c.F&FlagC != 0)
		case 4:
			c.A, c.F = and8(c.A, n)
		case 5:
			c.A, c.F = xor8(c.A, n)
		case 6:
			c.A, c.F = or8(c.A, n)
		default:
			c.F = cp8(c.A, n)
		}
		return 7
	default: // z==7, RST y*8
		c.push16(c.PC)
		c.PC = uint16(y) * 8
		return 11
	}
}

// execCB implements the bit-rotation/BIT/SET/RES table for the unprefixed
// (HL register table) form. mode/disp are always 0 here; execIndexedCB
// handles the DDCB/FDCB form separately since its addressing differs (always
// memory, operand order is displacement-then-opcode).
func (c *CPU) execCB(op byte, mode byte, disp int8) int {
	x, y, z, _, _ := decompose(op)
	v := c.readR8(z, mode, disp)
	var r byte
	switch x {
	case 0:
		var carry bool
		switch y {
		case 0:
			r, c.F = rlc(v)
		case 1:
			r, c.F = rrc(v)
		case 2:
			carry = c.F&FlagC != 0
			r, c.F = rl(v, carry)
		case 3:
			carry = c.F&FlagC != 0
			r, c.F = rr(v, carry)
		case 4:
			r, c.F = sla(v)
		case 5:
			r, c.F = sra(v)
		case 6:
			r, c.F = sll(v)
		default:
			r, c.F = srl(v)
		}
		c.writeR8(z, mode, disp, r)
	case 1:
		xySrc := v
		if z == 6 {
			xySrc = byte(c.HL() >> 8)
		}
		c.F = bitFlags(c.F, v, uint(y), xySrc)
		if z == 6 {
			return 12
		}
		return 8
	case 2:
		r = resBit(v, uint(y))
		c.writeR8(z, mode, disp, r)
	default: // 3
		r = setBit(v, uint(y))
		c.writeR8(z, mode, disp, r)
	}
	if z == 6 {
		return 15
	}
	return 8
}

// execIndexedCB implements the DDCB/FDCB table: the operand is always
// (IX+d)/(IY+d); when z!=6 the result is additionally copied into the named
// register (the documented "undocumented" double-store). The returned cost
// excludes the 4 T-states of the DD/FD prefix, which execMain adds, for totals
// of 20 (BIT) and 23 (everything else).
func (c *CPU) execIndexedCB(op byte, mode byte, disp int8) int {
	x, y, z, _, _ := decompose(op)
	addr := c.hlAddr(mode, disp)
	v := c.Bus.Read8(addr)

	var r byte
	switch x {
	case 0:
		switch y {
		case 0:
			r, c.F = rlc(v)
		case 1:
			r, c.F = rrc(v)
		case 2:
			r, c.F = rl(v, c.F&FlagC != 0)
		case 3:
			r, c.F = rr(v, c.F&FlagC != 0)
		case 4:
			r, c.F = sla(v)
		case 5:
			r, c.F = sra(v)
		case 6:
			r, c.F = sll(v)
		default:
			r, c.F = srl(v)
		}
		c.Bus.Write8(addr, r)
		if z != 6 {
			c.writeR8(z, 0, 0, r)
		}
		return 19
	case 1:
		c.F = bitFlags(c.F, v, uint(y), byte(addr>>8))
		return 16
	case 2:
		r = resBit(v, uint(y))
		c.Bus.Write8(addr, r)
		if z != 6 {
			c.writeR8(z, 0, 0, r)
		}
		return 19
	default: // 3
		r = setBit(v, uint(y))
		c.Bus.Write8(addr, r)
		if z != 6 {
			c.writeR8(z, 0, 0, r)
		}
		return 19
	}
}

// execED implements the ED-prefixed table.
func (c *CPU) execED(op byte) int {
	x, y, z, p, q := decompose(op)

	if x == 1 {
		switch z {
		case 0:
			v := c.Bus.IOReadPort(c.BC())
			if y != 6 {
				c.writeR8(y, 0, 0, v)
			}
			c.F = szFlags(v) | xy(v) | (c.F & FlagC)
			if mask.Parity(v) {
				c.F |= FlagP
			}
			return 12
		case 1:
			var v byte
			if y != 6 {
				v = c.readR8(y, 0, 0)
			}
			c.Bus.IOWritePort(c.BC(), v)
			return 12
		case 2:
			hl := c.HL()
			if q == 0 {
				r, f := sbc16(hl, c.readRP(p, 0), c.F&FlagC != 0)
				c.SetHL(r)
				c.F = f
			} else {
				r, f := adc16(hl, c.readRP(p, 0), c.F&FlagC != 0)
				c.SetHL(r)
				c.F = f
			}
			return 15
		case 3:
			nn := c.fetch16()
			if q == 0 {
				c.Bus.Write16(nn, c.readRP(p, 0))
			} else {
				c.writeRP(p, 0, c.Bus.Read16(nn))
			}
			return 20
		case 4:
			c.A, c.F = neg8(c.A)
			return 8
		case 5: // RETI (y==1) / RETN (all other y, including y==0): both pop PC
			c.IFF1 = c.IFF2
			c.PC = c.pop16()
			return 14
		case 6:
			ims := [8]byte{0, 0, 1, 2, 0, 0, 1, 2}
			c.IM = ims[y]
			return 8
		default: // 7
			switch y {
			case 0:
				c.I = c.A
			case 1:
				c.R = c.A
			case 2:
				c.A = c.I
				c.F = szFlags(c.A) | xy(c.A) | (c.F & FlagC)
				if c.IFF2 {
					c.F |= FlagP
				}
			case 3:
				c.A = c.R
				c.F = szFlags(c.A) | xy(c.A) | (c.F & FlagC)
				if c.IFF2 {
					c.F |= FlagP
				}
			case 4:
				c.rrd()
			case 5:
				c.rld()
			default:
				return 8
			}
			if y == 0 || y == 1 {
				return 9
			}
			if y == 4 || y == 5 {
				return 18
			}
			return 9
		}
	}

	if x == 2 && z <= 3 && y >= 4 {
		switch {
		case z == 0 && y == 4:
			c.ldi()
			return 16
		case z == 0 && y == 5:
			c.ldd()
			return 16
		case z == 0 && y == 6:
			return c.ldir()
		case z == 0 && y == 7:
			return c.lddr()
		case z == 1 && y == 4:
			c.cpi()
			return 16
		case z == 1 && y == 5:
			c.cpd()
			return 16
		case z == 1 && y == 6:
			return c.cpir()
		case z == 1 && y == 7:
			return c.cpdr()
		case z == 2 && y == 4:
			c.ini()
			return 16
		case z == 2 && y == 5:
			c.ind()
			return 16
		case z == 2 && y == 6:
			return c.inir()
		case z == 2 && y == 7:
			return c.indr()
		case z == 3 && y == 4:
			c.outi()
			return 16
		case z == 3 && y == 5:
			c.outd()
			return 16
		case z == 3 && y == 6:
			return c.otir()
		default: // z==3,y==7
			return c.otdr()
		}
	}

	diag.Warnf("undefined ED opcode $%02X treated as NOP", op)
	return 8
}

// rrd/rld rotate a BCD digit through A and (HL); S/Z/P/X/Y come from the new
// A, H and N are cleared, C is kept.
func (c *CPU) rrd() {
	addr := c.HL()
	m := c.Bus.Read8(addr)
	a := c.A
	newA := (a & 0xF0) | (m & 0x0F)
	newM := (a << 4) | (m >> 4)
	c.Bus.Write8(addr, newM)
	c.A = newA
	c.F = szFlags(c.A) | xy(c.A) | (c.F & FlagC)
	if mask.Parity(c.A) {
		c.F |= FlagP
	}
}

func (c *CPU) rld() {
	addr := c.HL()
	m := c.Bus.Read8(addr)
	a := c.A
	newA := (a & 0xF0) | (m >> 4)
	newM := (m << 4) | (a & 0x0F)
	c.Bus.Write8(addr, newM)
	c.A = newA
	c.F = szFlags(c.A) | xy(c.A) | (c.F & FlagC)
	if mask.Parity(c.A) {
		c.F |= FlagP
	}
}
