package x86

import (
	"github.com/pkg/errors"
)

// host register enums for RegRead and RegWrite
const (
	REG_EAX = iota
	REG_ECX
	REG_EDX
	REG_EBX
	REG_ESP
	REG_EBP
	REG_ESI
	REG_EDI
	REG_EIP
	REG_EFLAGS
	REG_ES
	REG_CS
	REG_SS
	REG_DS
	REG_FS
	REG_GS
	REG_LDTR
	REG_TR
	REG_CR0
	REG_CR2
	REG_CR3
	REG_GDTR_BASE
	REG_GDTR_LIMIT
	REG_IDTR_BASE
	REG_IDTR_LIMIT
	REG_CPL
	REG_MISC // Shadow | TrapDeferred<<1 | Halted<<2

	// hidden descriptor caches: three enums (base, limit, attributes) for each of
	// ES CS SS DS FS GS LDTR TR in that order
	REG_CACHE

	REG_END = REG_CACHE + 8*3
)

var RegNames = map[int]string{
	REG_EAX: "eax", REG_ECX: "ecx", REG_EDX: "edx", REG_EBX: "ebx",
	REG_ESP: "esp", REG_EBP: "ebp", REG_ESI: "esi", REG_EDI: "edi",
	REG_EIP: "eip", REG_EFLAGS: "eflags",
	REG_ES: "es", REG_CS: "cs", REG_SS: "ss", REG_DS: "ds", REG_FS: "fs", REG_GS: "gs",
	REG_LDTR: "ldtr", REG_TR: "tr",
	REG_CR0: "cr0", REG_CR2: "cr2", REG_CR3: "cr3",
	REG_GDTR_BASE: "gdtr", REG_GDTR_LIMIT: "gdtr_limit",
	REG_IDTR_BASE: "idtr", REG_IDTR_LIMIT: "idtr_limit",
	REG_CPL: "cpl", REG_MISC: "misc",
}

func init() {
	names := []string{"es", "cs", "ss", "ds", "fs", "gs", "ldtr", "tr"}
	for i, name := range names {
		RegNames[REG_CACHE+i*3] = name + "_base"
		RegNames[REG_CACHE+i*3+1] = name + "_limit"
		RegNames[REG_CACHE+i*3+2] = name + "_attr"
	}
}

func (c *Cpu) cache(i int) *SegCache {
	switch i {
	case 6:
		return &c.LDTR
	case 7:
		return &c.TR
	}
	return &c.Seg[i]
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (c *Cpu) RegRead(enum int) (uint64, error) {
	switch {
	case enum >= REG_EAX && enum <= REG_EDI:
		return uint64(c.Regs[enum]), nil
	case enum >= REG_ES && enum <= REG_GS:
		return uint64(c.Seg[enum-REG_ES].Sel), nil
	case enum >= REG_CACHE && enum < REG_END:
		s := c.cache((enum - REG_CACHE) / 3)
		switch (enum - REG_CACHE) % 3 {
		case 0:
			return uint64(s.Base), nil
		case 1:
			return uint64(s.Limit), nil
		default:
			return uint64(s.Access) | b2u(s.Big)<<8 | b2u(s.Valid)<<9, nil
		}
	}
	switch enum {
	case REG_EIP:
		return uint64(c.EIP), nil
	case REG_EFLAGS:
		return uint64(c.Flags), nil
	case REG_LDTR:
		return uint64(c.LDTR.Sel), nil
	case REG_TR:
		return uint64(c.TR.Sel), nil
	case REG_CR0:
		return uint64(c.CR0), nil
	case REG_CR2:
		return uint64(c.CR2), nil
	case REG_CR3:
		return uint64(c.CR3), nil
	case REG_GDTR_BASE:
		return uint64(c.GDTR.Base), nil
	case REG_GDTR_LIMIT:
		return uint64(c.GDTR.Limit), nil
	case REG_IDTR_BASE:
		return uint64(c.IDTR.Base), nil
	case REG_IDTR_LIMIT:
		return uint64(c.IDTR.Limit), nil
	case REG_CPL:
		return uint64(c.CPL), nil
	case REG_MISC:
		return b2u(c.Shadow) | b2u(c.TrapDeferred)<<1 | b2u(c.Halted)<<2, nil
	}
	return 0, errors.Errorf("unknown register enum: %d", enum)
}

// RegWrite sets a register from the host. Segment selector writes recompute the
// base in real and V86 mode; in protected mode they only set the visible selector,
// use LoadSegment to reload the cache from the descriptor tables.
func (c *Cpu) RegWrite(enum int, val uint64) error {
	v := uint32(val)
	switch {
	case enum >= REG_EAX && enum <= REG_EDI:
		c.Regs[enum] = v
		return nil
	case enum >= REG_ES && enum <= REG_GS:
		s := &c.Seg[enum-REG_ES]
		s.Sel = uint16(v)
		if c.RealLike() {
			s.Base = uint32(s.Sel) << 4
			s.Valid = true
		}
		return nil
	case enum >= REG_CACHE && enum < REG_END:
		s := c.cache((enum - REG_CACHE) / 3)
		switch (enum - REG_CACHE) % 3 {
		case 0:
			s.Base = v
		case 1:
			s.Limit = v
		default:
			s.Access = uint8(v)
			s.Big = v&0x100 != 0
			s.Valid = v&0x200 != 0
		}
		return nil
	}
	switch enum {
	case REG_EIP:
		c.EIP = v
	case REG_EFLAGS:
		c.Flags = v&flagsValid | flagsFixed
	case REG_LDTR:
		c.LDTR.Sel = uint16(v)
	case REG_TR:
		c.TR.Sel = uint16(v)
	case REG_CR0:
		c.CR0 = v | CR0_ET
	case REG_CR2:
		c.CR2 = v
	case REG_CR3:
		c.CR3 = v
	case REG_GDTR_BASE:
		c.GDTR.Base = v
	case REG_GDTR_LIMIT:
		c.GDTR.Limit = v & 0xffff
	case REG_IDTR_BASE:
		c.IDTR.Base = v
	case REG_IDTR_LIMIT:
		c.IDTR.Limit = v & 0xffff
	case REG_CPL:
		c.CPL = uint8(v & 3)
	case REG_MISC:
		c.Shadow = v&1 != 0
		c.TrapDeferred = v&2 != 0
		c.Halted = v&4 != 0
	default:
		return errors.Errorf("unknown register enum: %d", enum)
	}
	return nil
}

// width-generic register access; w is the operand width in bytes
func (c *Cpu) reg(w int, r int) uint32 {
	switch w {
	case 1:
		if r < 4 {
			return c.Regs[r] & 0xff
		}
		return (c.Regs[r-4] >> 8) & 0xff
	case 2:
		return c.Regs[r] & 0xffff
	}
	return c.Regs[r]
}

func (c *Cpu) setReg(w int, r int, v uint32) {
	switch w {
	case 1:
		if r < 4 {
			c.Regs[r] = c.Regs[r]&^0xff | v&0xff
		} else {
			c.Regs[r-4] = c.Regs[r-4]&^0xff00 | (v&0xff)<<8
		}
	case 2:
		c.Regs[r] = c.Regs[r]&^0xffff | v&0xffff
	default:
		c.Regs[r] = v
	}
}

func (c *Cpu) Reg8(r int) uint8          { return uint8(c.reg(1, r)) }
func (c *Cpu) Reg16(r int) uint16        { return uint16(c.reg(2, r)) }
func (c *Cpu) SetReg8(r int, v uint8)    { c.setReg(1, r, uint32(v)) }
func (c *Cpu) SetReg16(r int, v uint16)  { c.setReg(2, r, uint32(v)) }
func (c *Cpu) SetFlag(f uint32, on bool) { c.setFlag(f, on) }
