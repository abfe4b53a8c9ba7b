package cpu

import (
	"fmt"

	"github.com/pkg/errors"
)

type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason := "memory error"
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		reason = "out of range write"
	case MEM_READ_UNMAPPED:
		reason = "out of range read"
	case MEM_FETCH_UNMAPPED:
		reason = "out of range fetch"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

// Mem is a flat physical address space backed by a single byte arena.
// The interpreter uses the Read/Write helpers, which behave like an open bus
// outside the arena (reads return 0xff, writes are dropped). Host-facing methods
// (MemRead, MemWrite) are bounds-checked and return *MemError instead.
type Mem struct {
	data []byte
	// physical addresses are masked before every access; clearing bit 20 emulates the A20 gate
	mask uint32
	// Mem.hooks is set when passing *Mem to NewHooks()
	hooks *Hooks
}

const a20Bit = 1 << 20

func NewMem(size int) *Mem {
	return &Mem{
		data: make([]byte, size),
		mask: 0xffffffff,
	}
}

func (m *Mem) Size() int {
	return len(m.data)
}

// SetA20 enables or disables address line 20.
func (m *Mem) SetA20(on bool) {
	if on {
		m.mask |= a20Bit
	} else {
		m.mask &^= a20Bit
	}
}

func (m *Mem) A20() bool {
	return m.mask&a20Bit != 0
}

// Bytes exposes the arena for bulk operations like savestates.
func (m *Mem) Bytes() []byte {
	return m.data
}

func (m *Mem) check(addr uint64, size int) bool {
	return addr <= uint64(len(m.data)) && uint64(size) <= uint64(len(m.data))-addr
}

func (m *Mem) MemReadInto(p []byte, addr uint64) error {
	if !m.check(addr, len(p)) {
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_READ_UNMAPPED}
	}
	copy(p, m.data[addr:])
	return nil
}

func (m *Mem) MemRead(addr, size uint64) ([]byte, error) {
	p := make([]byte, size)
	if err := m.MemReadInto(p, addr); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Mem) MemWrite(addr uint64, p []byte) error {
	if !m.check(addr, len(p)) {
		return &MemError{Addr: addr, Size: len(p), Enum: MEM_WRITE_UNMAPPED}
	}
	copy(m.data[addr:], p)
	return nil
}

func (m *Mem) fault(access int, addr uint32, size int, val uint32) {
	if m.hooks != nil {
		m.hooks.OnFault(access, uint64(addr), size, int64(val))
	}
}

func (m *Mem) Read8(addr uint32) uint8 {
	addr &= m.mask
	if addr >= uint32(len(m.data)) {
		m.fault(MEM_READ_UNMAPPED, addr, 1, 0)
		return 0xff
	}
	v := m.data[addr]
	if m.hooks != nil && len(m.hooks.mem) > 0 {
		m.hooks.OnMem(MEM_READ, uint64(addr), 1, int64(v))
	}
	return v
}

func (m *Mem) Read16(addr uint32) uint16 {
	a := addr & m.mask
	if a+1 < uint32(len(m.data)) && a+1 > a {
		v := uint16(m.data[a]) | uint16(m.data[a+1])<<8
		if m.hooks != nil && len(m.hooks.mem) > 0 {
			m.hooks.OnMem(MEM_READ, uint64(a), 2, int64(v))
		}
		return v
	}
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

func (m *Mem) Read32(addr uint32) uint32 {
	a := addr & m.mask
	if a+3 < uint32(len(m.data)) && a+3 > a {
		d := m.data[a : a+4]
		v := uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16 | uint32(d[3])<<24
		if m.hooks != nil && len(m.hooks.mem) > 0 {
			m.hooks.OnMem(MEM_READ, uint64(a), 4, int64(v))
		}
		return v
	}
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

func (m *Mem) Write8(addr uint32, v uint8) {
	addr &= m.mask
	if addr >= uint32(len(m.data)) {
		m.fault(MEM_WRITE_UNMAPPED, addr, 1, uint32(v))
		return
	}
	m.data[addr] = v
	if m.hooks != nil && len(m.hooks.mem) > 0 {
		m.hooks.OnMem(MEM_WRITE, uint64(addr), 1, int64(v))
	}
}

func (m *Mem) Write16(addr uint32, v uint16) {
	a := addr & m.mask
	if a+1 < uint32(len(m.data)) && a+1 > a {
		m.data[a] = byte(v)
		m.data[a+1] = byte(v >> 8)
		if m.hooks != nil && len(m.hooks.mem) > 0 {
			m.hooks.OnMem(MEM_WRITE, uint64(a), 2, int64(v))
		}
		return
	}
	m.Write8(addr, byte(v))
	m.Write8(addr+1, byte(v>>8))
}

func (m *Mem) Write32(addr uint32, v uint32) {
	a := addr & m.mask
	if a+3 < uint32(len(m.data)) && a+3 > a {
		d := m.data[a : a+4]
		d[0], d[1], d[2], d[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
		if m.hooks != nil && len(m.hooks.mem) > 0 {
			m.hooks.OnMem(MEM_WRITE, uint64(a), 4, int64(v))
		}
		return
	}
	m.Write16(addr, uint16(v))
	m.Write16(addr+2, uint16(v>>16))
}

// Fetch copies len(p) bytes starting at addr, used for instruction prefetch.
// It bypasses memory hooks; fetches are reported through code hooks instead.
func (m *Mem) Fetch(addr uint32, p []byte) {
	for i := range p {
		a := (addr + uint32(i)) & m.mask
		if a < uint32(len(m.data)) {
			p[i] = m.data[a]
		} else {
			p[i] = 0xff
		}
	}
}

func (m *Mem) ReadUint(addr uint64, size int) (uint64, error) {
	if size > 8 {
		return 0, errors.Errorf("ReadUint size too large: %d > 8", size)
	}
	p, err := m.MemRead(addr, uint64(size))
	if err != nil {
		return 0, err
	}
	return UnpackUint(size, p)
}

func (m *Mem) WriteUint(addr uint64, size int, val uint64) error {
	var buf [8]byte
	if size > 8 {
		return errors.Errorf("WriteUint size too large: %d > 8", size)
	}
	if _, err := PackUint(size, buf[:], val); err != nil {
		return err
	}
	return m.MemWrite(addr, buf[:size])
}
