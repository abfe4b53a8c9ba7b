package x86

import (
	"fmt"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindSegment
	KindLDT
	KindTSS16
	KindTSS32
	KindCallGate16
	KindCallGate32
	KindTaskGate
	KindIntGate16
	KindIntGate32
	KindTrapGate16
	KindTrapGate32
)

var kindNames = []string{
	"invalid", "segment", "ldt", "tss16", "tss32", "callgate16", "callgate32",
	"taskgate", "intgate16", "intgate32", "trapgate16", "trapgate32",
}

func (k Kind) String() string {
	return kindNames[k]
}

// access byte bits
const (
	AccPresent  = 0x80
	AccSegment  = 0x10 // S: code or data, clear for system descriptors
	AccCode     = 0x08
	AccConform  = 0x04 // code: conforming, data: expand down
	AccReadable = 0x02 // code: readable, data: writable
	AccAccessed = 0x01

	tssBusy = 0x02
)

// flags nibble bits
const (
	FlagGranular = 0x8
	FlagBig      = 0x4
)

// Descriptor is a decoded GDT, LDT or IDT entry.
type Descriptor struct {
	Base   uint32
	Limit  uint32
	Access uint8
	Flags  uint8

	// gates
	Selector uint16
	Offset   uint32
	Count    uint8
}

func ParseDescriptor(lo, hi uint32) Descriptor {
	d := Descriptor{
		Base:     lo>>16 | (hi&0xff)<<16 | hi&0xff000000,
		Limit:    lo&0xffff | hi&0xf0000,
		Access:   uint8(hi >> 8),
		Flags:    uint8(hi>>20) & 0xf,
		Selector: uint16(lo >> 16),
		Offset:   lo&0xffff | hi&0xffff0000,
		Count:    uint8(hi) & 0x1f,
	}
	if d.Flags&FlagGranular != 0 {
		d.Limit = d.Limit<<12 | 0xfff
	}
	if d.Kind() == KindCallGate16 || d.Kind() == KindIntGate16 || d.Kind() == KindTrapGate16 {
		d.Offset &= 0xffff
	}
	return d
}

// NewSegment builds a code/data segment descriptor.
// A limit above 1MB is stored page granular.
func NewSegment(base, limit uint32, access, flags uint8) Descriptor {
	if limit > 0xfffff {
		flags |= FlagGranular
	}
	return Descriptor{Base: base, Limit: limit, Access: access | AccSegment, Flags: flags}
}

// NewSystem builds a TSS or LDT descriptor.
func NewSystem(kind Kind, base, limit uint32, dpl uint8) Descriptor {
	var typ uint8
	switch kind {
	case KindLDT:
		typ = 0x2
	case KindTSS16:
		typ = 0x1
	case KindTSS32:
		typ = 0x9
	}
	return Descriptor{Base: base, Limit: limit, Access: AccPresent | dpl<<5 | typ}
}

// NewGate builds a call, task, interrupt or trap gate.
func NewGate(kind Kind, sel uint16, off uint32, dpl, count uint8) Descriptor {
	typ := map[Kind]uint8{
		KindCallGate16: 0x4, KindCallGate32: 0xc, KindTaskGate: 0x5,
		KindIntGate16: 0x6, KindIntGate32: 0xe, KindTrapGate16: 0x7, KindTrapGate32: 0xf,
	}[kind]
	return Descriptor{Access: AccPresent | dpl<<5 | typ, Selector: sel, Offset: off, Count: count}
}

// Encode packs the descriptor into its 8-byte table form.
func (d Descriptor) Encode() (lo, hi uint32) {
	k := d.Kind()
	if d.Access&AccSegment == 0 && k != KindLDT && k != KindTSS16 && k != KindTSS32 {
		lo = d.Offset&0xffff | uint32(d.Selector)<<16
		hi = d.Offset&0xffff0000 | uint32(d.Access)<<8 | uint32(d.Count&0x1f)
		return lo, hi
	}
	limit := d.Limit
	if d.Flags&FlagGranular != 0 {
		limit >>= 12
	}
	lo = limit&0xffff | d.Base<<16
	hi = (d.Base>>16)&0xff | uint32(d.Access)<<8 | limit&0xf0000 | uint32(d.Flags)<<20 | d.Base&0xff000000
	return lo, hi
}

func (d Descriptor) Present() bool { return d.Access&AccPresent != 0 }
func (d Descriptor) DPL() uint8    { return (d.Access >> 5) & 3 }
func (d Descriptor) Type() uint8   { return d.Access & 0xf }
func (d Descriptor) Big() bool     { return d.Flags&FlagBig != 0 }

func (d Descriptor) Kind() Kind {
	if d.Access&AccSegment != 0 {
		return KindSegment
	}
	switch d.Type() {
	case 0x1, 0x3:
		return KindTSS16
	case 0x2:
		return KindLDT
	case 0x4:
		return KindCallGate16
	case 0x5:
		return KindTaskGate
	case 0x6:
		return KindIntGate16
	case 0x7:
		return KindTrapGate16
	case 0x9, 0xb:
		return KindTSS32
	case 0xc:
		return KindCallGate32
	case 0xe:
		return KindIntGate32
	case 0xf:
		return KindTrapGate32
	}
	return KindInvalid
}

func (d Descriptor) IsCode() bool {
	return d.Access&(AccSegment|AccCode) == AccSegment|AccCode
}

func (d Descriptor) IsData() bool {
	return d.Access&(AccSegment|AccCode) == AccSegment
}

func (d Descriptor) Conforming() bool { return d.IsCode() && d.Access&AccConform != 0 }
func (d Descriptor) Readable() bool   { return d.IsData() || d.Access&AccReadable != 0 }
func (d Descriptor) Writable() bool   { return d.IsData() && d.Access&AccReadable != 0 }
func (d Descriptor) Busy() bool       { return d.Type()&tssBusy != 0 }

func (d Descriptor) String() string {
	if d.Access&AccSegment == 0 && d.Kind() != KindTSS16 && d.Kind() != KindTSS32 && d.Kind() != KindLDT {
		return fmt.Sprintf("%s sel=%#x off=%#x dpl=%d p=%v", d.Kind(), d.Selector, d.Offset, d.DPL(), d.Present())
	}
	return fmt.Sprintf("%s base=%#x limit=%#x access=%#x dpl=%d p=%v", d.Kind(), d.Base, d.Limit, d.Access, d.DPL(), d.Present())
}

func (d Descriptor) cache(sel uint16) SegCache {
	return SegCache{Sel: sel, Base: d.Base, Limit: d.Limit, Access: d.Access, Big: d.Big(), Valid: true}
}

// descAddr returns the linear address of the descriptor sel refers to.
func (c *Cpu) descAddr(sel uint16) (uint32, bool) {
	idx := uint32(sel &^ 7)
	if sel&4 != 0 {
		if !c.LDTR.Valid || idx+7 > c.LDTR.Limit {
			return 0, false
		}
		return c.LDTR.Base + idx, true
	}
	if idx+7 > c.GDTR.Limit {
		return 0, false
	}
	return c.GDTR.Base + idx, true
}

// descriptor fetches the descriptor for sel, raising #GP(sel) when it is outside its table.
func (c *Cpu) descriptor(sel uint16) (Descriptor, uint32) {
	addr, ok := c.descAddr(sel)
	if !ok {
		gp(sel & 0xfffc)
	}
	return ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4)), addr
}

func (c *Cpu) setAccessBits(addr uint32, bits uint8) {
	a := c.Mem.Read8(addr + 5)
	if a&bits != bits {
		c.Mem.Write8(addr+5, a|bits)
	}
}

// ReadDescriptor looks up sel in the GDT or LDT.
func (c *Cpu) ReadDescriptor(sel uint16) (Descriptor, bool) {
	addr, ok := c.descAddr(sel)
	if !ok {
		return Descriptor{}, false
	}
	return ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4)), true
}

// WriteDescriptor stores d at sel's slot in the GDT or LDT.
func (c *Cpu) WriteDescriptor(sel uint16, d Descriptor) bool {
	addr, ok := c.descAddr(sel)
	if !ok {
		return false
	}
	lo, hi := d.Encode()
	c.Mem.Write32(addr, lo)
	c.Mem.Write32(addr+4, hi)
	return true
}
