package x86

func (c *Cpu) jumpRel(w int, rel uint32) {
	c.EIP = (c.EIP + rel) & widthMask(w)
}

// counter is CX or ECX, selected by the address size.
func (c *Cpu) counter() uint32 {
	if c.a32 {
		return c.Regs[ECX]
	}
	return c.Regs[ECX] & 0xffff
}

func (c *Cpu) setCounter(v uint32) {
	if c.a32 {
		c.Regs[ECX] = v
	} else {
		c.setReg(2, ECX, v)
	}
}

// loop decrements the counter and branches to rel while it is nonzero and cond holds.
func (c *Cpu) loop(w int, cond bool) {
	rel := c.fetchSimm8()
	n := c.counter() - 1
	c.setCounter(n)
	if c.counter() != 0 && cond {
		c.jumpRel(w, rel)
	}
}

func (s *isa) branchOps() {
	for cc := 0; cc < 16; cc++ {
		cond := uint8(cc)
		s.ov(0x70+uint16(cc), "j", func(w int) Handler {
			return func(c *Cpu) {
				rel := c.fetchSimm8()
				if c.cond(cond) {
					c.jumpRel(w, rel)
				}
			}
		})
		s.ov(0x0f80+uint16(cc), "j", func(w int) Handler {
			return func(c *Cpu) {
				rel := signExtend(c.fetchImm(w), w)
				if c.cond(cond) {
					c.jumpRel(w, rel)
				}
			}
		})
	}
	s.ov(0xeb, "jmp", func(w int) Handler {
		return func(c *Cpu) { c.jumpRel(w, c.fetchSimm8()) }
	})
	s.ov(0xe9, "jmp", func(w int) Handler {
		return func(c *Cpu) { c.jumpRel(w, signExtend(c.fetchImm(w), w)) }
	})
	s.ov(0xe8, "call", func(w int) Handler {
		return func(c *Cpu) {
			rel := signExtend(c.fetchImm(w), w)
			c.push(w, c.EIP)
			c.jumpRel(w, rel)
		}
	})
	s.ovGrp(0xff, 2, "call", func(w int) Handler {
		return func(c *Cpu) {
			target := c.rm(w)
			c.push(w, c.EIP)
			c.EIP = target
		}
	})
	s.ovGrp(0xff, 4, "jmp", func(w int) Handler {
		return func(c *Cpu) { c.EIP = c.rm(w) }
	})

	// far transfers
	s.ov(0x9a, "callf", func(w int) Handler {
		return func(c *Cpu) {
			off := c.fetchImm(w)
			sel := c.fetch16()
			c.farCall(sel, off, w)
		}
	})
	s.ov(0xea, "jmpf", func(w int) Handler {
		return func(c *Cpu) {
			off := c.fetchImm(w)
			sel := c.fetch16()
			c.farJump(sel, off, w)
		}
	})
	s.ovGrp(0xff, 3, "callf", func(w int) Handler {
		return func(c *Cpu) {
			c.mustMem()
			off := c.eaPlus(w, 0)
			sel := uint16(c.eaPlus(2, uint32(w)))
			c.farCall(sel, off, w)
		}
	})
	s.ovGrp(0xff, 5, "jmpf", func(w int) Handler {
		return func(c *Cpu) {
			c.mustMem()
			off := c.eaPlus(w, 0)
			sel := uint16(c.eaPlus(2, uint32(w)))
			c.farJump(sel, off, w)
		}
	})

	// returns
	s.ov(0xc3, "ret", func(w int) Handler {
		return func(c *Cpu) { c.EIP = c.pop(w) }
	})
	s.ov(0xc2, "ret", func(w int) Handler {
		return func(c *Cpu) {
			imm := uint32(c.fetch16())
			st := c.stack()
			eip := st.pop(w)
			st.skip(imm)
			c.Regs[ESP] = st.sp
			c.EIP = eip
		}
	})
	s.ov(0xcb, "retf", func(w int) Handler {
		return func(c *Cpu) { c.farReturn(w, 0) }
	})
	s.ov(0xca, "retf", func(w int) Handler {
		return func(c *Cpu) { c.farReturn(w, uint32(c.fetch16())) }
	})

	// loops
	s.ov(0xe2, "loop", func(w int) Handler {
		return func(c *Cpu) { c.loop(w, true) }
	})
	s.ov(0xe1, "loope", func(w int) Handler {
		return func(c *Cpu) { c.loop(w, c.flag(FlagZF)) }
	})
	s.ov(0xe0, "loopne", func(w int) Handler {
		return func(c *Cpu) { c.loop(w, !c.flag(FlagZF)) }
	})
	s.ov(0xe3, "jcxz", func(w int) Handler {
		return func(c *Cpu) {
			rel := c.fetchSimm8()
			if c.counter() == 0 {
				c.jumpRel(w, rel)
			}
		}
	})

	// interrupts
	s.add(0xcc, MAll, "int3", func(c *Cpu) { c.interrupt(VecBP, true, false, 0) })
	s.add(0xcd, MAll, "int", func(c *Cpu) {
		vec := c.fetch8()
		c.v86Sensitive()
		c.interrupt(vec, true, false, 0)
	})
	s.add(0xce, MAll, "into", func(c *Cpu) {
		if c.flag(FlagOF) {
			c.interrupt(VecOF, true, false, 0)
		}
	})
	s.add(0xf1, MAll, "int1", func(c *Cpu) { c.interrupt(VecDB, false, false, 0) })
	s.ov(0xcf, "iret", func(w int) Handler {
		return func(c *Cpu) { c.iret(w) }
	})
	s.ov(0x62, "bound", func(w int) Handler {
		return func(c *Cpu) {
			c.mustMem()
			v := int32(signExtend(c.reg(w, c.regField()), w))
			lo := int32(signExtend(c.eaPlus(w, 0), w))
			hi := int32(signExtend(c.eaPlus(w, uint32(w)), w))
			if v < lo || v > hi {
				throw(VecBR)
			}
		}
	})
}
