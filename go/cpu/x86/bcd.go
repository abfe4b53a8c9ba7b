package x86

func (s *isa) bcdOps() {
	s.add(0x27, MAll, "daa", func(c *Cpu) {
		al := c.reg(1, AL)
		old := al
		cf := c.flag(FlagCF)
		if al&0xf > 9 || c.flag(FlagAF) {
			al += 6
			c.setFlag(FlagAF, true)
		} else {
			c.setFlag(FlagAF, false)
		}
		if old > 0x99 || cf {
			al += 0x60
			c.setFlag(FlagCF, true)
		} else {
			c.setFlag(FlagCF, false)
		}
		c.setReg(1, AL, al)
		c.setSZP(1, al)
	})
	s.add(0x2f, MAll, "das", func(c *Cpu) {
		al := c.reg(1, AL)
		old := al
		cf := c.flag(FlagCF)
		c.setFlag(FlagCF, false)
		if al&0xf > 9 || c.flag(FlagAF) {
			c.setFlag(FlagCF, cf || al < 6)
			al -= 6
			c.setFlag(FlagAF, true)
		} else {
			c.setFlag(FlagAF, false)
		}
		if old > 0x99 || cf {
			al -= 0x60
			c.setFlag(FlagCF, true)
		}
		c.setReg(1, AL, al)
		c.setSZP(1, al)
	})
	s.add(0x37, MAll, "aaa", func(c *Cpu) {
		ax := c.reg(2, EAX)
		adjust := ax&0xf > 9 || c.flag(FlagAF)
		if adjust {
			ax += 0x106
		}
		c.setFlag(FlagAF, adjust)
		c.setFlag(FlagCF, adjust)
		c.setReg(2, EAX, ax&0xff0f)
	})
	s.add(0x3f, MAll, "aas", func(c *Cpu) {
		ax := c.reg(2, EAX)
		adjust := ax&0xf > 9 || c.flag(FlagAF)
		if adjust {
			ax -= 6
			ax -= 0x100
		}
		c.setFlag(FlagAF, adjust)
		c.setFlag(FlagCF, adjust)
		c.setReg(2, EAX, ax&0xff0f)
	})
	s.add(0xd4, MAll, "aam", func(c *Cpu) {
		base := uint32(c.fetch8())
		if base == 0 {
			throw(VecDE)
		}
		al := c.reg(1, AL)
		c.setReg(1, AH, al/base)
		c.setReg(1, AL, al%base)
		c.Flags &^= FlagCF | FlagOF | FlagAF
		c.setSZP(1, al%base)
	})
	s.add(0xd5, MAll, "aad", func(c *Cpu) {
		base := uint32(c.fetch8())
		al := (c.reg(1, AL) + c.reg(1, AH)*base) & 0xff
		c.setReg(2, EAX, al)
		c.Flags &^= FlagCF | FlagOF | FlagAF
		c.setSZP(1, al)
	})
}
