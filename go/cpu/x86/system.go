package x86

// privileged faults instructions that need CPL 0 outside of real mode.
func (c *Cpu) privileged() {
	if c.Protected() && c.CPL != 0 {
		gp(0)
	}
}

// protectedOnly raises #UD in real and V86 mode.
func (c *Cpu) protectedOnly() {
	if c.RealLike() {
		ud()
	}
}

// visible looks up sel for LAR, LSL, VERR and VERW. It reports false instead
// of faulting when the descriptor is missing or too privileged.
func (c *Cpu) visible(sel uint16, accept func(d Descriptor) bool) (Descriptor, uint32, bool) {
	if sel&^3 == 0 {
		return Descriptor{}, 0, false
	}
	addr, ok := c.descAddr(sel)
	if !ok {
		return Descriptor{}, 0, false
	}
	hi := c.Mem.Read32(addr + 4)
	d := ParseDescriptor(c.Mem.Read32(addr), hi)
	if !accept(d) {
		return d, hi, false
	}
	if !d.Conforming() && (d.DPL() < c.CPL || d.DPL() < uint8(sel&3)) {
		return d, hi, false
	}
	return d, hi, true
}

func (c *Cpu) storeTable(t TableReg) {
	c.mustMem()
	base := t.Base
	if !c.o32 {
		base &= 0xffffff
	}
	c.write(2, c.eaSeg, c.ea, t.Limit)
	c.write(4, c.eaSeg, c.eaOffset(2), base)
}

func (c *Cpu) loadTable() TableReg {
	c.mustMem()
	c.privileged()
	limit := c.eaPlus(2, 0)
	base := c.eaPlus(4, 2)
	if !c.o32 {
		base &= 0xffffff
	}
	return TableReg{Base: base, Limit: limit}
}

// eaOffset is the memory operand offset plus off, wrapped at the address size.
func (c *Cpu) eaOffset(off uint32) uint32 {
	ea := c.ea + off
	if !c.a32 {
		ea &= 0xffff
	}
	return ea
}

func (c *Cpu) setCR0(v uint32) {
	c.CR0 = v | CR0_ET
}

func (s *isa) systemOps() {
	// group 6
	s.grp(0x0f00, 0, MAll, "sldt", func(c *Cpu) {
		c.protectedOnly()
		c.setRM(2, uint32(c.LDTR.Sel))
	})
	s.grp(0x0f00, 1, MAll, "str", func(c *Cpu) {
		c.protectedOnly()
		c.setRM(2, uint32(c.TR.Sel))
	})
	s.grp(0x0f00, 2, MAll, "lldt", func(c *Cpu) {
		c.protectedOnly()
		c.privileged()
		c.loadLDT(uint16(c.rm(2)), gp)
	})
	s.grp(0x0f00, 3, MAll, "ltr", func(c *Cpu) {
		c.protectedOnly()
		c.privileged()
		c.loadTR(uint16(c.rm(2)))
	})
	s.grp(0x0f00, 4, MAll, "verr", func(c *Cpu) {
		c.protectedOnly()
		_, _, ok := c.visible(uint16(c.rm(2)), func(d Descriptor) bool {
			return d.Kind() == KindSegment && d.Readable()
		})
		c.setFlag(FlagZF, ok)
	})
	s.grp(0x0f00, 5, MAll, "verw", func(c *Cpu) {
		c.protectedOnly()
		_, _, ok := c.visible(uint16(c.rm(2)), func(d Descriptor) bool {
			return d.Writable()
		})
		c.setFlag(FlagZF, ok)
	})

	// group 7
	s.grp(0x0f01, 0, MAll, "sgdt", func(c *Cpu) { c.storeTable(c.GDTR) })
	s.grp(0x0f01, 1, MAll, "sidt", func(c *Cpu) { c.storeTable(c.IDTR) })
	s.grp(0x0f01, 2, MAll, "lgdt", func(c *Cpu) { c.GDTR = c.loadTable() })
	s.grp(0x0f01, 3, MAll, "lidt", func(c *Cpu) { c.IDTR = c.loadTable() })
	s.grp(0x0f01, 4, MAll, "smsw", func(c *Cpu) {
		c.decodeModRM()
		if c.rmIsReg && c.o32 {
			c.setRM(4, c.CR0)
		} else {
			c.setRM(2, c.CR0&0xffff)
		}
	})
	s.grp(0x0f01, 6, MAll, "lmsw", func(c *Cpu) {
		c.privileged()
		v := c.rm(2) & 0xf
		// LMSW can set PE but never clear it
		c.setCR0(c.CR0&^0xe | v)
	})
	s.grp(0x0f01, 7, MAll, "invlpg", func(c *Cpu) {
		c.mustMem()
		c.privileged()
	})

	s.ov(0x0f02, "lar", func(w int) Handler {
		return func(c *Cpu) {
			c.protectedOnly()
			_, hi, ok := c.visible(uint16(c.rm(2)), func(d Descriptor) bool {
				switch d.Kind() {
				case KindInvalid, KindIntGate16, KindIntGate32, KindTrapGate16, KindTrapGate32:
					return false
				}
				return true
			})
			c.setFlag(FlagZF, ok)
			if ok {
				c.setReg(w, c.regField(), hi&0x00f0ff00)
			}
		}
	})
	s.ov(0x0f03, "lsl", func(w int) Handler {
		return func(c *Cpu) {
			c.protectedOnly()
			d, _, ok := c.visible(uint16(c.rm(2)), func(d Descriptor) bool {
				switch d.Kind() {
				case KindSegment, KindLDT, KindTSS16, KindTSS32:
					return true
				}
				return false
			})
			c.setFlag(FlagZF, ok)
			if ok {
				c.setReg(w, c.regField(), d.Limit)
			}
		}
	})
	s.add(0x0f06, MAll, "clts", func(c *Cpu) {
		c.privileged()
		c.CR0 &^= CR0_TS
	})
	s.add(0x0f08, MAll, "invd", func(c *Cpu) { c.privileged() })
	s.add(0x0f09, MAll, "wbinvd", func(c *Cpu) { c.privileged() })
	s.add(0x0f0b, MAll, "ud2", func(c *Cpu) { ud() })

	// control and debug registers, always register operands
	s.add(0x0f20, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		c.privileged()
		var v uint32
		switch c.regField() {
		case 0:
			v = c.CR0
		case 2:
			v = c.CR2
		case 3:
			v = c.CR3
		default:
			ud()
		}
		c.Regs[c.modrm&7] = v
	})
	s.add(0x0f22, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		c.privileged()
		v := c.Regs[c.modrm&7]
		switch c.regField() {
		case 0:
			c.setCR0(v)
		case 2:
			c.CR2 = v
		case 3:
			c.CR3 = v
		default:
			ud()
		}
	})
	s.add(0x0f21, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		c.privileged()
		c.Regs[c.modrm&7] = c.DR[c.regField()]
	})
	s.add(0x0f23, MAll, "mov", func(c *Cpu) {
		c.decodeModRM()
		c.privileged()
		c.DR[c.regField()] = c.Regs[c.modrm&7]
	})

	s.add(0x63, MAll, "arpl", func(c *Cpu) {
		c.protectedOnly()
		dst := c.rm(2)
		src := c.reg(2, c.regField())
		if dst&3 < src&3 {
			c.setRM(2, dst&^3|src&3)
			c.setFlag(FlagZF, true)
		} else {
			c.setFlag(FlagZF, false)
		}
	})

	s.add(0xf4, MAll, "hlt", func(c *Cpu) {
		c.privileged()
		c.Halted = true
	})
	s.add(0xfa, MAll, "cli", func(c *Cpu) {
		c.ifCheck()
		c.setFlag(FlagIF, false)
	})
	s.add(0xfb, MAll, "sti", func(c *Cpu) {
		c.ifCheck()
		if !c.flag(FlagIF) {
			c.inhibit = true
		}
		c.setFlag(FlagIF, true)
	})

	s.add(0x0fa2, MAll, "cpuid", func(c *Cpu) {
		switch c.Regs[EAX] {
		case 0:
			// "GenuineIntel"
			c.Regs[EAX] = 1
			c.Regs[EBX] = 0x756e6547
			c.Regs[EDX] = 0x49656e69
			c.Regs[ECX] = 0x6c65746e
		default:
			c.Regs[EAX] = 0x402
			c.Regs[EBX] = 0
			c.Regs[ECX] = 0
			c.Regs[EDX] = 0
			if c.FPU != nil {
				c.Regs[EDX] = 1
			}
		}
	})
}

// ifCheck faults CLI and STI when the current level may not change IF.
func (c *Cpu) ifCheck() {
	if c.V86() {
		c.v86Sensitive()
	} else if c.Protected() && c.CPL > c.IOPL() {
		gp(0)
	}
}
