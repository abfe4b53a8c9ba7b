package x86

// moffs reads the memory offset operand of A0-A3
func (c *Cpu) moffs() uint32 {
	if c.a32 {
		return c.fetch32()
	}
	return uint32(c.fetch16())
}

func (c *Cpu) sregField() int {
	r := c.regField()
	if r > GS {
		ud()
	}
	return r
}

// loadFarPointer implements LDS, LES, LSS, LFS and LGS.
func (c *Cpu) loadFarPointer(w int, seg int) {
	c.mustMem()
	off := c.eaPlus(w, 0)
	sel := uint16(c.eaPlus(2, uint32(w)))
	c.loadSeg(seg, sel)
	c.setReg(w, c.regField(), off)
}

func (s *isa) movOps() {
	s.add(0x88, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		c.setRM(1, c.reg(1, c.regField()))
	})
	s.ov(0x89, "mov", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.setRM(w, c.reg(w, c.regField()))
		}
	})
	s.add(0x8a, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		c.setReg(1, c.regField(), c.rm(1))
	})
	s.ov(0x8b, "mov", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.setReg(w, c.regField(), c.rm(w))
		}
	})
	s.ov(0x8c, "mov", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			sel := uint32(c.Seg[c.sregField()].Sel)
			if c.rmIsReg {
				c.setRM(w, sel)
			} else {
				c.setRM(2, sel)
			}
		}
	})
	s.add(0x8e, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		seg := c.sregField()
		if seg == CS {
			ud()
		}
		c.loadSeg(seg, uint16(c.rm(2)))
	})
	s.ov(0x8d, "lea", func(w int) Handler {
		return func(c *Cpu) {
			c.mustMem()
			c.setReg(w, c.regField(), c.ea)
		}
	})

	// moffs
	s.add(0xa0, MAll, "mov", func(c *Cpu) {
		c.setReg(1, AL, c.read(1, c.seg(DS), c.moffs()))
	})
	s.ov(0xa1, "mov", func(w int) Handler {
		return func(c *Cpu) { c.setReg(w, EAX, c.read(w, c.seg(DS), c.moffs())) }
	})
	s.add(0xa2, MAll, "mov", func(c *Cpu) {
		c.write(1, c.seg(DS), c.moffs(), c.reg(1, AL))
	})
	s.ov(0xa3, "mov", func(w int) Handler {
		return func(c *Cpu) { c.write(w, c.seg(DS), c.moffs(), c.reg(w, EAX)) }
	})

	for r := 0; r < 8; r++ {
		reg := r
		s.add(0xb0+uint16(r), MAll, "mov", func(c *Cpu) { c.setReg(1, reg, c.fetchImm(1)) })
		s.ov(0xb8+uint16(r), "mov", func(w int) Handler {
			return func(c *Cpu) { c.setReg(w, reg, c.fetchImm(w)) }
		})
	}
	s.grp(0xc6, 0, MAll, "mov", func(c *Cpu) { c.setRM(1, c.fetchImm(1)) })
	s.ovGrp(0xc7, 0, "mov", func(w int) Handler {
		return func(c *Cpu) { c.setRM(w, c.fetchImm(w)) }
	})

	// movzx, movsx
	s.ov(0x0fb6, "movzx", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.setReg(w, c.regField(), c.rm(1))
		}
	})
	s.ov(0x0fb7, "movzx", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.setReg(w, c.regField(), c.rm(2))
		}
	})
	s.ov(0x0fbe, "movsx", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.setReg(w, c.regField(), signExtend(c.rm(1), 1))
		}
	})
	s.ov(0x0fbf, "movsx", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			c.setReg(w, c.regField(), signExtend(c.rm(2), 2))
		}
	})

	// xchg
	s.add(0x86, MAll, "xchg", func(c *Cpu) {
		c.decodeModRM()
		r := c.regField()
		v := c.rm(1)
		c.setRM(1, c.reg(1, r))
		c.setReg(1, r, v)
	})
	s.ov(0x87, "xchg", func(w int) Handler {
		return func(c *Cpu) {
			c.decodeModRM()
			r := c.regField()
			v := c.rm(w)
			c.setRM(w, c.reg(w, r))
			c.setReg(w, r, v)
		}
	})
	s.add(0x90, MAll, "nop", func(c *Cpu) {})
	for r := 1; r < 8; r++ {
		reg := r
		s.ov(0x90+uint16(r), "xchg", func(w int) Handler {
			return func(c *Cpu) {
				v := c.reg(w, reg)
				c.setReg(w, reg, c.reg(w, EAX))
				c.setReg(w, EAX, v)
			}
		})
	}
	for r := 0; r < 8; r++ {
		reg := r
		s.add(0x0fc8+uint16(r), O32, "bswap", func(c *Cpu) {
			v := c.Regs[reg]
			c.Regs[reg] = v>>24 | (v>>8)&0xff00 | (v<<8)&0xff0000 | v<<24
		})
	}

	// far pointer loads
	s.ov(0xc4, "les", func(w int) Handler { return func(c *Cpu) { c.loadFarPointer(w, ES) } })
	s.ov(0xc5, "lds", func(w int) Handler { return func(c *Cpu) { c.loadFarPointer(w, DS) } })
	s.ov(0x0fb2, "lss", func(w int) Handler { return func(c *Cpu) { c.loadFarPointer(w, SS) } })
	s.ov(0x0fb4, "lfs", func(w int) Handler { return func(c *Cpu) { c.loadFarPointer(w, FS) } })
	s.ov(0x0fb5, "lgs", func(w int) Handler { return func(c *Cpu) { c.loadFarPointer(w, GS) } })

	s.add(0xd7, MAll, "xlat", func(c *Cpu) {
		off := c.Regs[EBX] + c.reg(1, AL)
		if !c.a32 {
			off &= 0xffff
		}
		c.setReg(1, AL, c.read(1, c.seg(DS), off))
	})

	// sign extension
	s.add(0x98, O16, "cbw", func(c *Cpu) { c.setReg(2, EAX, signExtend(c.reg(1, AL), 1)) })
	s.add(0x98, O32, "cwde", func(c *Cpu) { c.Regs[EAX] = signExtend(c.reg(2, EAX), 2) })
	s.add(0x99, O16, "cwd", func(c *Cpu) {
		c.setReg(2, EDX, uint32(int32(int16(c.reg(2, EAX)))>>16))
	})
	s.add(0x99, O32, "cdq", func(c *Cpu) {
		c.Regs[EDX] = uint32(int32(c.Regs[EAX]) >> 31)
	})

	// setcc
	for cc := 0; cc < 16; cc++ {
		cond := uint8(cc)
		s.add(0x0f90+uint16(cc), MAll, "set", func(c *Cpu) {
			var v uint32
			if c.cond(cond) {
				v = 1
			}
			c.setRM(1, v)
		})
	}

	// flag moves and flag bit ops
	s.add(0x9e, MAll, "sahf", func(c *Cpu) {
		mask := uint32(FlagSF | FlagZF | FlagAF | FlagPF | FlagCF)
		c.Flags = c.Flags&^mask | c.reg(1, AH)&mask
	})
	s.add(0x9f, MAll, "lahf", func(c *Cpu) {
		c.setReg(1, AH, c.Flags&0xd5|flagsFixed)
	})
	s.add(0xd6, MAll, "salc", func(c *Cpu) {
		var v uint32
		if c.flag(FlagCF) {
			v = 0xff
		}
		c.setReg(1, AL, v)
	})
	s.add(0xf5, MAll, "cmc", func(c *Cpu) { c.Flags ^= FlagCF })
	s.add(0xf8, MAll, "clc", func(c *Cpu) { c.setFlag(FlagCF, false) })
	s.add(0xf9, MAll, "stc", func(c *Cpu) { c.setFlag(FlagCF, true) })
	s.add(0xfc, MAll, "cld", func(c *Cpu) { c.setFlag(FlagDF, false) })
	s.add(0xfd, MAll, "std", func(c *Cpu) { c.setFlag(FlagDF, true) })
}
