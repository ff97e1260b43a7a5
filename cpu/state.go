package cpu

import (
	"encoding/binary"
	"fmt"
	"io"

	"deadz80/mask"
)

// SaveState writes a fixed-layout snapshot of registers, interrupt state and
// the full 64 KiB memory image to w: main AF/BC/DE/HL, alt AF/BC/DE/HL, IX,
// IY, SP, PC, I, R, IFF1, IFF2, IM, cycles (uint64), then 65536 bytes of
// memory, all little-endian.
func (c *CPU) SaveState(w io.Writer) error {
	fields := []uint16{
		c.AF(), c.BC(), c.DE(), c.HL(),
		mask.Word(c.A_, c.F_),
		mask.Word(c.B_, c.C_),
		mask.Word(c.D_, c.E_),
		mask.Word(c.H_, c.L_),
		c.IX, c.IY, c.SP, c.PC,
	}
	for _, v := range fields {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write register field: %w", err)
		}
	}

	var flags byte
	if c.IFF1 {
		flags |= 1
	}
	if c.IFF2 {
		flags |= 2
	}
	meta := []byte{c.I, c.R, flags, c.IM}
	if _, err := w.Write(meta); err != nil {
		return fmt.Errorf("write interrupt state: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, c.Cycles); err != nil {
		return fmt.Errorf("write cycle counter: %w", err)
	}

	img := c.Bus.Snapshot()
	if _, err := w.Write(img[:]); err != nil {
		return fmt.Errorf("write memory image: %w", err)
	}
	return nil
}

// LoadState restores a snapshot written by SaveState, replacing both
// register file and memory image in full.
func (c *CPU) LoadState(r io.Reader) error {
	var fields [12]uint16
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return fmt.Errorf("read register fields: %w", err)
	}
	c.SetAF(fields[0])
	c.SetBC(fields[1])
	c.SetDE(fields[2])
	c.SetHL(fields[3])
	c.A_, c.F_ = mask.SplitWord(fields[4])
	c.B_, c.C_ = mask.SplitWord(fields[5])
	c.D_, c.E_ = mask.SplitWord(fields[6])
	c.H_, c.L_ = mask.SplitWord(fields[7])
	c.IX, c.IY, c.SP, c.PC = fields[8], fields[9], fields[10], fields[11]

	meta := make([]byte, 4)
	if _, err := io.ReadFull(r, meta); err != nil {
		return fmt.Errorf("read interrupt state: %w", err)
	}
	c.I, c.R = meta[0], meta[1]
	c.IFF1 = meta[2]&1 != 0
	c.IFF2 = meta[2]&2 != 0
	c.IM = meta[3]

	if err := binary.Read(r, binary.LittleEndian, &c.Cycles); err != nil {
		return fmt.Errorf("read cycle counter: %w", err)
	}

	var img [0x10000]byte
	if _, err := io.ReadFull(r, img[:]); err != nil {
		return fmt.Errorf("read memory image: %w", err)
	}
	c.Bus.Restore(img)
	return nil
}
