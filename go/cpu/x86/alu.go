package x86

const (
	aluAdd = iota
	aluOr
	aluAdc
	aluSbb
	aluAnd
	aluSub
	aluXor
	aluCmp
)

var aluNames = []string{"add", "or", "adc", "sbb", "and", "sub", "xor", "cmp"}

// alu computes a two-operand ALU op and sets flags.
func (c *Cpu) alu(op, w int, a, b uint32) uint32 {
	m := widthMask(w)
	a, b = a&m, b&m
	switch op {
	case aluAdd:
		return c.flagsAdd(w, a, b, 0)
	case aluOr:
		return c.flagsLogic(w, a|b)
	case aluAdc:
		return c.flagsAdd(w, a, b, c.carry())
	case aluSbb:
		return c.flagsSub(w, a, b, c.carry())
	case aluAnd:
		return c.flagsLogic(w, a&b)
	case aluXor:
		return c.flagsLogic(w, a^b)
	}
	// sub, cmp
	return c.flagsSub(w, a, b, 0)
}

func (c *Cpu) aluRM(op, w int, src uint32) {
	res := c.alu(op, w, c.rm(w), src)
	if op != aluCmp {
		c.setRM(w, res)
	}
}

func (c *Cpu) aluReg(op, w, r int, src uint32) {
	res := c.alu(op, w, c.reg(w, r), src)
	if op != aluCmp {
		c.setReg(w, r, res)
	}
}

func (c *Cpu) incdec(w int, v uint32, dec bool) uint32 {
	cf := c.Flags & FlagCF
	var res uint32
	if dec {
		res = c.flagsSub(w, v&widthMask(w), 1, 0)
	} else {
		res = c.flagsAdd(w, v&widthMask(w), 1, 0)
	}
	c.Flags = c.Flags&^FlagCF | cf
	return res
}

func (c *Cpu) mul(w int, src uint32) {
	var hi bool
	switch w {
	case 1:
		r := c.reg(1, AL) * (src & 0xff)
		c.setReg(2, EAX, r)
		hi = r>>8 != 0
	case 2:
		r := c.reg(2, EAX) * (src & 0xffff)
		c.setReg(2, EAX, r)
		c.setReg(2, EDX, r>>16)
		hi = r>>16 != 0
	default:
		r := uint64(c.Regs[EAX]) * uint64(src)
		c.Regs[EAX] = uint32(r)
		c.Regs[EDX] = uint32(r >> 32)
		hi = r>>32 != 0
	}
	c.setFlag(FlagCF|FlagOF, hi)
}

func (c *Cpu) imul1(w int, src uint32) {
	var ovf bool
	switch w {
	case 1:
		r := int32(int8(c.reg(1, AL))) * int32(int8(src))
		c.setReg(2, EAX, uint32(r))
		ovf = r != int32(int8(r))
	case 2:
		r := int32(int16(c.reg(2, EAX))) * int32(int16(src))
		c.setReg(2, EAX, uint32(r))
		c.setReg(2, EDX, uint32(r)>>16)
		ovf = r != int32(int16(r))
	default:
		r := int64(int32(c.Regs[EAX])) * int64(int32(src))
		c.Regs[EAX] = uint32(r)
		c.Regs[EDX] = uint32(uint64(r) >> 32)
		ovf = r != int64(int32(r))
	}
	c.setFlag(FlagCF|FlagOF, ovf)
}

// imul is the truncating two and three operand form.
func (c *Cpu) imul(w int, a, b uint32) uint32 {
	r := int64(int32(signExtend(a, w))) * int64(int32(signExtend(b, w)))
	res := uint32(r) & widthMask(w)
	c.setFlag(FlagCF|FlagOF, r != int64(int32(signExtend(res, w))))
	return res
}

func (c *Cpu) div(w int, src uint32) {
	src &= widthMask(w)
	if src == 0 {
		throw(VecDE)
	}
	switch w {
	case 1:
		n := c.reg(2, EAX)
		q := n / src
		if q > 0xff {
			throw(VecDE)
		}
		c.setReg(1, AL, q)
		c.setReg(1, AH, n%src)
	case 2:
		n := c.reg(2, EDX)<<16 | c.reg(2, EAX)
		q := n / src
		if q > 0xffff {
			throw(VecDE)
		}
		c.setReg(2, EAX, q)
		c.setReg(2, EDX, n%src)
	default:
		n := uint64(c.Regs[EDX])<<32 | uint64(c.Regs[EAX])
		q := n / uint64(src)
		if q > 0xffffffff {
			throw(VecDE)
		}
		c.Regs[EAX] = uint32(q)
		c.Regs[EDX] = uint32(n % uint64(src))
	}
}

func (c *Cpu) idiv(w int, src uint32) {
	s := int64(int32(signExtend(src&widthMask(w), w)))
	if s == 0 {
		throw(VecDE)
	}
	var n, lo, hi int64
	switch w {
	case 1:
		n, lo, hi = int64(int16(c.reg(2, EAX))), -0x80, 0x7f
	case 2:
		n, lo, hi = int64(int32(c.reg(2, EDX)<<16|c.reg(2, EAX))), -0x8000, 0x7fff
	default:
		n, lo, hi = int64(uint64(c.Regs[EDX])<<32|uint64(c.Regs[EAX])), -0x80000000, 0x7fffffff
	}
	// MinInt64 / -1 wraps instead of panicking, and is caught by the range check
	q, r := n/s, n%s
	if q < lo || q > hi {
		throw(VecDE)
	}
	switch w {
	case 1:
		c.setReg(1, AL, uint32(q))
		c.setReg(1, AH, uint32(r))
	case 2:
		c.setReg(2, EAX, uint32(q))
		c.setReg(2, EDX, uint32(r))
	default:
		c.Regs[EAX] = uint32(q)
		c.Regs[EDX] = uint32(r)
	}
}

func (s *isa) aluOps() {
	for i, name := range aluNames {
		op := i
		base := uint16(i * 8)
		s.add(base, MAll, name, func(c *Cpu) {
			c.decodeModRM()
			c.aluRM(op, 1, c.reg(1, c.regField()))
		})
		s.ov(base+1, name, func(w int) Handler {
			return func(c *Cpu) {
				c.decodeModRM()
				c.aluRM(op, w, c.reg(w, c.regField()))
			}
		})
		s.add(base+2, MAll, name, func(c *Cpu) {
			c.decodeModRM()
			c.aluReg(op, 1, c.regField(), c.rm(1))
		})
		s.ov(base+3, name, func(w int) Handler {
			return func(c *Cpu) {
				c.decodeModRM()
				c.aluReg(op, w, c.regField(), c.rm(w))
			}
		})
		s.add(base+4, MAll, name, func(c *Cpu) {
			c.aluReg(op, 1, AL, c.fetchImm(1))
		})
		s.ov(base+5, name, func(w int) Handler {
			return func(c *Cpu) { c.aluReg(op, w, EAX, c.fetchImm(w)) }
		})

		// group 1
		s.grp(0x80, op, MAll, name, func(c *Cpu) { c.aluRM(op, 1, c.fetchImm(1)) })
		s.grp(0x82, op, MAll, name, func(c *Cpu) { c.aluRM(op, 1, c.fetchImm(1)) })
		s.ovGrp(0x81, op, name, func(w int) Handler {
			return func(c *Cpu) { c.aluRM(op, w, c.fetchImm(w)) }
		})
		s.ovGrp(0x83, op, name, func(w int) Handler {
			return func(c *Cpu) { c.aluRM(op, w, c.fetchSimm8()) }
		})
	}

	// test
	s.add(0x84, MAll, "test", func(c *Cpu) {
		c.decodeModRM()
		c.flagsLogic(1, c.rm(1)&c.reg(1, c.regField()))
	})
	s.ov(0x85, "test", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.flagsLogic(w, c.rm(w)&c.reg(w, c.regField()))
		}
	})
	s.add(0xa8, MAll, "test", func(c *Cpu) { c.flagsLogic(1, c.reg(1, AL)&c.fetchImm(1)) })
	s.ov(0xa9, "test", func(w int) Handler {
		return func(c *Cpu) { c.flagsLogic(w, c.reg(w, EAX)&c.fetchImm(w)) }
	})

	// inc/dec r16/32
	for r := 0; r < 8; r++ {
		reg := r
		s.ov(0x40+uint16(r), "inc", func(w int) Handler {
			return func(c *Cpu) { c.setReg(w, reg, c.incdec(w, c.reg(w, reg), false)) }
		})
		s.ov(0x48+uint16(r), "dec", func(w int) Handler {
			return func(c *Cpu) { c.setReg(w, reg, c.incdec(w, c.reg(w, reg), true)) }
		})
	}
	// group 4 and 5 inc/dec
	s.grp(0xfe, 0, MAll, "inc", func(c *Cpu) { c.setRM(1, c.incdec(1, c.rm(1), false)) })
	s.grp(0xfe, 1, MAll, "dec", func(c *Cpu) { c.setRM(1, c.incdec(1, c.rm(1), true)) })
	s.ovGrp(0xff, 0, "inc", func(w int) Handler {
		return func(c *Cpu) { c.setRM(w, c.incdec(w, c.rm(w), false)) }
	})
	s.ovGrp(0xff, 1, "dec", func(w int) Handler {
		return func(c *Cpu) { c.setRM(w, c.incdec(w, c.rm(w), true)) }
	})

	// group 3
	for _, g := range []struct {
		op uint16
		w  int
	}{{0xf6, 1}, {0xf7, 2}, {0xf7, 4}} {
		w := g.w
		modes := uint8(MAll)
		if g.op == 0xf7 {
			modes = O16
			if w == 4 {
				modes = O32
			}
		}
		test := func(c *Cpu) { c.flagsLogic(w, c.rm(w)&c.fetchImm(w)) }
		s.grp(g.op, 0, modes, "test", test)
		s.grp(g.op, 1, modes, "test", test)
		s.grp(g.op, 2, modes, "not", func(c *Cpu) { c.setRM(w, ^c.rm(w)) })
		s.grp(g.op, 3, modes, "neg", func(c *Cpu) {
			v := c.rm(w)
			c.setRM(w, c.flagsSub(w, 0, v, 0))
		})
		s.grp(g.op, 4, modes, "mul", func(c *Cpu) { c.mul(w, c.rm(w)) })
		s.grp(g.op, 5, modes, "imul", func(c *Cpu) { c.imul1(w, c.rm(w)) })
		s.grp(g.op, 6, modes, "div", func(c *Cpu) { c.div(w, c.rm(w)) })
		s.grp(g.op, 7, modes, "idiv", func(c *Cpu) { c.idiv(w, c.rm(w)) })
	}

	// imul multi-operand forms
	s.ov(0x0faf, "imul", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			r := c.regField()
			c.setReg(w, r, c.imul(w, c.reg(w, r), c.rm(w)))
		}
	})
	s.ov(0x69, "imul", func(w int) Handler {
		return func(c *Cpu) {
			src := c.rm(w)
			c.setReg(w, c.regField(), c.imul(w, src, c.fetchImm(w)))
		}
	})
	s.ov(0x6b, "imul", func(w int) Handler {
		return func(c *Cpu) {
			src := c.rm(w)
			c.setReg(w, c.regField(), c.imul(w, src, c.fetchSimm8()))
		}
	})

	// cmpxchg, xadd
	cmpxchg := func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			dest := c.rm(w)
			acc := c.reg(w, EAX)
			c.flagsSub(w, acc, dest, 0)
			if acc == dest {
				c.setRM(w, c.reg(w, c.regField()))
			} else {
				c.setRM(w, dest)
				c.setReg(w, EAX, dest)
			}
		}
	}
	xadd := func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			dest := c.rm(w)
			r := c.regField()
			sum := c.flagsAdd(w, dest, c.reg(w, r), 0)
			c.setReg(w, r, dest)
			c.setRM(w, sum)
		}
	}
	s.add(0x0fb0, MAll, "cmpxchg", cmpxchg(1))
	s.ov(0x0fb1, "cmpxchg", cmpxchg)
	s.add(0x0fc0, MAll, "xadd", xadd(1))
	s.ov(0x0fc1, "xadd", xadd)
}
