// Package mem implements the Memory/IO Interface: a 64 KiB address space
// split into 16 fixed 4 KiB pages, each either a direct-mapped buffer or a
// pair of callbacks, plus a single 16-bit I/O port callback pair.
package mem

import (
	"fmt"
	"sync"

	"deadz80/diag"
	"deadz80/mask"
)

const (
	pageSize  = 0x1000 // 4 KiB
	pageShift = 12
	pageMask  = pageSize - 1
	numPages  = 0x10000 / pageSize // 16
)

// A Page is one 4 KiB slice of the address space. A Page is either
// direct-mapped (Buf non-nil, read directly) or callback-backed (Read/Write
// non-nil); writes always go through Write, so a buffer with no write func
// models ROM (writes are silently discarded but diagnostics-logged), matching
// §4.1.
type Page struct {
	Buf   []byte // len must be pageSize when direct-mapped; nil otherwise
	Read  func(addr uint16) byte
	Write func(addr uint16, data byte)
}

// A Bus is the central object that connects the CPU to memory and I/O. Like
// the reference Bus, it is the single pointer shared between components; but
// unlike the 6502 bus, addresses are never flat-mapped to a single backing
// array — every access goes through page dispatch.
type Bus struct {
	Pages [numPages]Page

	IORead  func(port uint16) byte
	IOWrite func(port uint16, data byte)

	unmapped sync.Map // key -> struct{}, addresses already diagnosed once
}

// NewFlat builds a Bus with all 16 pages backed by a single contiguous 64 KiB
// buffer, read directly and written through a Write func into the same
// buffer; the simplest configuration and the one most tests use.
func NewFlat() *Bus {
	b := &Bus{}
	ram := make([]byte, 0x10000)
	write := func(addr uint16, data byte) { ram[addr] = data }
	for p := range numPages {
		b.Pages[p] = Page{Buf: ram[p*pageSize : (p+1)*pageSize], Write: write}
	}
	return b
}

// LoadProgram copies program into memory starting at addr, byte for byte,
// without touching T-states. It is a test/harness convenience, not part of
// the core's public contract.
func (b *Bus) LoadProgram(program []byte, addr uint16) {
	for i, v := range program {
		b.Write8(addr+uint16(i), v)
	}
}

// diagUnmapped logs an unmapped access once per (op, addr) pair and then
// stays quiet for every repeat, so a tight loop hammering the same bad
// address doesn't flood the diagnostic sink.
func (b *Bus) diagUnmapped(op string, addr uint16) {
	key := fmt.Sprintf("%s:%04x", op, addr)
	if _, seen := b.unmapped.LoadOrStore(key, struct{}{}); seen {
		return
	}
	diag.Warnf("unmapped %s access at $%04X", op, addr)
}

// Read8 reads one byte from addr, per §4.1: a direct buffer wins over a
// callback; an unmapped page yields 0xFF and a diagnostic.
func (b *Bus) Read8(addr uint16) byte {
	page := &b.Pages[addr>>pageShift]
	switch {
	case page.Buf != nil:
		return page.Buf[addr&pageMask]
	case page.Read != nil:
		return page.Read(addr)
	default:
		b.diagUnmapped("read", addr)
		return 0xFF
	}
}

// Write8 writes one byte to addr through the page's Write callback. A buffer
// page with no Write callback is ROM: the write is discarded and logged once
// per address, but not diagnosed as unmapped (the page -is- mapped, it is
// just not writable). A page with neither buffer nor callback is genuinely
// unmapped.
func (b *Bus) Write8(addr uint16, data byte) {
	page := &b.Pages[addr>>pageShift]
	switch {
	case page.Write != nil:
		page.Write(addr, data)
	case page.Buf != nil:
		if _, seen := b.unmapped.LoadOrStore(fmt.Sprintf("rom:%04x", addr), struct{}{}); !seen {
			diag.Warnf("write to ROM at $%04X discarded", addr)
		}
	default:
		b.diagUnmapped("write", addr)
	}
}

// Read16 reads a little-endian word at addr, addr+1 (wrapping at 16 bits).
func (b *Bus) Read16(addr uint16) uint16 {
	lo := b.Read8(addr)
	hi := b.Read8(addr + 1)
	return mask.Word(hi, lo)
}

// Write16 writes a little-endian word at addr, addr+1 (wrapping at 16 bits).
func (b *Bus) Write16(addr uint16, v uint16) {
	hi, lo := mask.SplitWord(v)
	b.Write8(addr, lo)
	b.Write8(addr+1, hi)
}

// IOReadPort and IOWritePort invoke the single I/O callback pair. A missing
// callback behaves like an unmapped memory access: 0xFF on read, discarded
// on write, both diagnostics-logged.
func (b *Bus) IOReadPort(port uint16) byte {
	if b.IORead == nil {
		b.diagUnmapped("io-read", port)
		return 0xFF
	}
	return b.IORead(port)
}

func (b *Bus) IOWritePort(port uint16, data byte) {
	if b.IOWrite == nil {
		b.diagUnmapped("io-write", port)
		return
	}
	b.IOWrite(port, data)
}

// Snapshot returns a 64 KiB flat copy of the address space, reading every
// byte through Read8. It exists for the save-state codec (§6); direct-mapped
// pages are the common case so this is cheap in practice.
func (b *Bus) Snapshot() [0x10000]byte {
	var out [0x10000]byte
	for addr := 0; addr < 0x10000; addr++ {
		out[addr] = b.Read8(uint16(addr))
	}
	return out
}

// Restore writes a full 64 KiB image back through Write8.
func (b *Bus) Restore(img [0x10000]byte) {
	for addr := 0; addr < 0x10000; addr++ {
		b.Write8(uint16(addr), img[addr])
	}
}
