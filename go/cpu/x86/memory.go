package x86

// base returns a segment base for a data access, faulting on a null selector.
func (c *Cpu) base(seg int) uint32 {
	s := &c.Seg[seg]
	if !s.Valid {
		if seg == SS {
			ss(0)
		}
		gp(0)
	}
	return s.Base
}

func (c *Cpu) readLinear(w int, addr uint32) uint32 {
	switch w {
	case 1:
		return uint32(c.Mem.Read8(addr))
	case 2:
		return uint32(c.Mem.Read16(addr))
	}
	return c.Mem.Read32(addr)
}

func (c *Cpu) writeLinear(w int, addr uint32, v uint32) {
	switch w {
	case 1:
		c.Mem.Write8(addr, uint8(v))
	case 2:
		c.Mem.Write16(addr, uint16(v))
	default:
		c.Mem.Write32(addr, v)
	}
}

func (c *Cpu) read(w int, seg int, off uint32) uint32 {
	return c.readLinear(w, c.base(seg)+off)
}

func (c *Cpu) write(w int, seg int, off uint32, v uint32) {
	c.writeLinear(w, c.base(seg)+off, v)
}

func (c *Cpu) readBlock(addr uint32, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = c.Mem.Read8(addr + uint32(i))
	}
	return p
}

func (c *Cpu) writeBlock(addr uint32, p []byte) {
	for i, b := range p {
		c.Mem.Write8(addr+uint32(i), b)
	}
}

// stack is a cursor over a stack segment, used to build or unwind frames
// before committing the new SS:ESP.
type stack struct {
	c    *Cpu
	base uint32
	sp   uint32
	mask uint32
}

func (c *Cpu) stack() *stack {
	return &stack{c: c, base: c.base(SS), sp: c.Regs[ESP], mask: c.spMask()}
}

func newStack(c *Cpu, sc SegCache, sp uint32) *stack {
	mask := uint32(0xffff)
	if sc.Big {
		mask = 0xffffffff
	}
	return &stack{c: c, base: sc.Base, sp: sp, mask: mask}
}

func (s *stack) push(w int, v uint32) {
	s.sp = s.sp&^s.mask | (s.sp-uint32(w))&s.mask
	s.c.writeLinear(w, s.base+s.sp&s.mask, v)
}

func (s *stack) pop(w int) uint32 {
	v := s.c.readLinear(w, s.base+s.sp&s.mask)
	s.skip(uint32(w))
	return v
}

func (s *stack) skip(n uint32) {
	s.sp = s.sp&^s.mask | (s.sp+n)&s.mask
}

func (c *Cpu) push(w int, v uint32) {
	s := c.stack()
	s.push(w, v)
	c.Regs[ESP] = s.sp
}

func (c *Cpu) pop(w int) uint32 {
	s := c.stack()
	v := s.pop(w)
	c.Regs[ESP] = s.sp
	return v
}

// Push16 and Pop16 are for host code servicing real mode interrupts.
func (c *Cpu) Push16(v uint16) { c.push(2, uint32(v)) }
func (c *Cpu) Pop16() uint16   { return uint16(c.pop(2)) }

// ReadString reads bytes at seg:off until term, at most max of them.
func (c *Cpu) ReadString(seg int, off uint32, term byte, max int) []byte {
	var out []byte
	base := c.Seg[seg].Base
	for i := 0; i < max; i++ {
		b := c.Mem.Read8(base + (off+uint32(i))&c.offMask())
		if b == term {
			break
		}
		out = append(out, b)
	}
	return out
}

// FetchCode fills p with the code bytes at CS:EIP. In 16-bit code the offset
// wraps at 0xffff.
func (c *Cpu) FetchCode(p []byte) {
	if c.Seg[CS].Big {
		c.Mem.Fetch(c.PC(), p)
		return
	}
	base := c.Seg[CS].Base
	for i := range p {
		c.Mem.Fetch(base+(c.EIP+uint32(i))&0xffff, p[i:i+1])
	}
}

func (c *Cpu) offMask() uint32 {
	if c.Big() {
		return 0xffffffff
	}
	return 0xffff
}
