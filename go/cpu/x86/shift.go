package x86

const (
	shRol = iota
	shRor
	shRcl
	shRcr
	shShl
	shShr
	shSal
	shSar
)

var shiftNames = []string{"rol", "ror", "rcl", "rcr", "shl", "shr", "sal", "sar"}

// shift applies group 2 operation op to v. The count is masked to 5 bits and
// a zero count leaves the flags alone.
func (c *Cpu) shift(op, w int, v uint32, n uint32) uint32 {
	n &= 31
	if n == 0 {
		return v
	}
	bits := uint32(w * 8)
	mask := widthMask(w)
	sign := signBit(w)
	v &= mask
	var res uint32
	switch op {
	case shRol:
		cnt := n % bits
		res = (v<<cnt | v>>(bits-cnt)) & mask
		c.setFlag(FlagCF, res&1 != 0)
		c.setFlag(FlagOF, (res&sign != 0) != (res&1 != 0))
		return res
	case shRor:
		cnt := n % bits
		res = (v>>cnt | v<<(bits-cnt)) & mask
		c.setFlag(FlagCF, res&sign != 0)
		c.setFlag(FlagOF, (res&sign != 0) != (res&(sign>>1) != 0))
		return res
	case shRcl:
		cf := c.carry()
		res = v
		for i := n % (bits + 1); i > 0; i-- {
			out := res&sign != 0
			res = (res<<1 | cf) & mask
			cf = 0
			if out {
				cf = 1
			}
		}
		c.setFlag(FlagCF, cf != 0)
		c.setFlag(FlagOF, (res&sign != 0) != (cf != 0))
		return res
	case shRcr:
		cf := c.carry()
		res = v
		for i := n % (bits + 1); i > 0; i-- {
			out := res & 1
			res = res>>1 | cf<<(bits-1)
			cf = out
		}
		c.setFlag(FlagCF, cf != 0)
		c.setFlag(FlagOF, (res&sign != 0) != (res&(sign>>1) != 0))
		return res
	case shShl, shSal:
		wide := uint64(v) << n
		res = uint32(wide) & mask
		cf := (wide>>bits)&1 != 0
		c.setFlag(FlagCF, cf)
		c.setFlag(FlagOF, (res&sign != 0) != cf)
	case shShr:
		res = uint32(uint64(v) >> n)
		c.setFlag(FlagCF, (uint64(v)>>(n-1))&1 != 0)
		c.setFlag(FlagOF, v&sign != 0)
	case shSar:
		sv := int64(int32(signExtend(v, w)))
		res = uint32(sv>>n) & mask
		c.setFlag(FlagCF, (sv>>(n-1))&1 != 0)
		c.setFlag(FlagOF, false)
	}
	c.Flags &^= FlagAF
	c.setSZP(w, res)
	return res
}

// shiftDouble implements SHLD (left) and SHRD.
func (c *Cpu) shiftDouble(w int, left bool, n uint32) {
	n &= 31
	if n == 0 {
		return
	}
	bits := uint32(w * 8)
	mask := uint64(widthMask(w))
	dst := c.rm(w)
	src := c.reg(w, c.regField())
	var res uint32
	var cf bool
	if left {
		wide := uint64(dst)<<bits | uint64(src)
		res = uint32((wide << n >> bits) & mask)
		cf = (wide>>(2*bits-n))&1 != 0
	} else {
		wide := uint64(src)<<bits | uint64(dst)
		res = uint32((wide >> n) & mask)
		cf = (wide>>(n-1))&1 != 0
	}
	c.setFlag(FlagCF, cf)
	c.setFlag(FlagOF, (res^dst)&signBit(w) != 0)
	c.Flags &^= FlagAF
	c.setSZP(w, res)
	c.setRM(w, res)
}

func (s *isa) shiftOps() {
	for i := 0; i < 8; i++ {
		op := i
		name := shiftNames[op]
		s.grp(0xc0, op, MAll, name, func(c *Cpu) {
			v := c.rm(1)
			c.setRM(1, c.shift(op, 1, v, uint32(c.fetch8())))
		})
		s.ovGrp(0xc1, op, name, func(w int) Handler {
			return func(c *Cpu) {
				v := c.rm(w)
				c.setRM(w, c.shift(op, w, v, uint32(c.fetch8())))
			}
		})
		s.grp(0xd0, op, MAll, name, func(c *Cpu) { c.setRM(1, c.shift(op, 1, c.rm(1), 1)) })
		s.ovGrp(0xd1, op, name, func(w int) Handler {
			return func(c *Cpu) { c.setRM(w, c.shift(op, w, c.rm(w), 1)) }
		})
		s.grp(0xd2, op, MAll, name, func(c *Cpu) { c.setRM(1, c.shift(op, 1, c.rm(1), c.reg(1, CL))) })
		s.ovGrp(0xd3, op, name, func(w int) Handler {
			return func(c *Cpu) { c.setRM(w, c.shift(op, w, c.rm(w), c.reg(1, CL))) }
		})
	}
	s.ov(0x0fa4, "shld", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.shiftDouble(w, true, uint32(c.fetch8()))
		}
	})
	s.ov(0x0fa5, "shld", func(w int) Handler {
		return func(c *Cpu) { c.shiftDouble(w, true, c.reg(1, CL)) }
	})
	s.ov(0x0fac, "shrd", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.shiftDouble(w, false, uint32(c.fetch8()))
		}
	})
	s.ov(0x0fad, "shrd", func(w int) Handler {
		return func(c *Cpu) { c.shiftDouble(w, false, c.reg(1, CL)) }
	})
}
