package x86

// v86Sensitive raises #GP(0) for instructions that trap to the monitor in V86 mode
// when IOPL is below 3.
func (c *Cpu) v86Sensitive() {
	if c.V86() && c.IOPL() < 3 {
		gp(0)
	}
}

func (s *isa) stackOps() {
	for r := 0; r < 8; r++ {
		reg := r
		s.ov(0x50+uint16(r), "push", func(w int) Handler {
			return func(c *Cpu) { c.push(w, c.reg(w, reg)) }
		})
		s.ov(0x58+uint16(r), "pop", func(w int) Handler {
			return func(c *Cpu) {
				st := c.stack()
				v := st.pop(w)
				c.Regs[ESP] = st.sp
				c.setReg(w, reg, v)
			}
		})
	}
	s.ov(0x68, "push", func(w int) Handler {
		return func(c *Cpu) { c.push(w, c.fetchImm(w)) }
	})
	s.ov(0x6a, "push", func(w int) Handler {
		return func(c *Cpu) { c.push(w, c.fetchSimm8()) }
	})
	s.ovGrp(0xff, 6, "push", func(w int) Handler {
		return func(c *Cpu) { c.push(w, c.rm(w)) }
	})
	s.ovGrp(0x8f, 0, "pop", func(w int) Handler {
		return func(c *Cpu) {
			// the destination address is computed with ESP already incremented
			st := c.stack()
			v := st.pop(w)
			old := c.Regs[ESP]
			c.Regs[ESP] = st.sp
			c.decodeModRM()
			if c.eaStack {
				c.ea += st.sp - old
			}
			if f, err := catch(func() { c.setRM(w, v) }); err != nil || f != nil {
				c.Regs[ESP] = old
				if err != nil {
					panic(fatal{err})
				}
				panic(f)
			}
		}
	})

	// segment registers
	pushSeg := func(op uint16, seg int) {
		s.ov(op, "push", func(w int) Handler {
			return func(c *Cpu) { c.push(w, uint32(c.Seg[seg].Sel)) }
		})
	}
	popSeg := func(op uint16, seg int) {
		s.ov(op, "pop", func(w int) Handler {
			return func(c *Cpu) {
				st := c.stack()
				sel := uint16(st.pop(w))
				c.loadSeg(seg, sel)
				c.Regs[ESP] = st.sp
			}
		})
	}
	pushSeg(0x06, ES)
	popSeg(0x07, ES)
	pushSeg(0x0e, CS)
	pushSeg(0x16, SS)
	popSeg(0x17, SS)
	pushSeg(0x1e, DS)
	popSeg(0x1f, DS)
	pushSeg(0x0fa0, FS)
	popSeg(0x0fa1, FS)
	pushSeg(0x0fa8, GS)
	popSeg(0x0fa9, GS)

	s.ov(0x60, "pusha", func(w int) Handler {
		return func(c *Cpu) {
			sp := c.Regs[ESP]
			st := c.stack()
			for r := EAX; r <= EDI; r++ {
				v := c.Regs[r]
				if r == ESP {
					v = sp
				}
				st.push(w, v&widthMask(w))
			}
			c.Regs[ESP] = st.sp
		}
	})
	s.ov(0x61, "popa", func(w int) Handler {
		return func(c *Cpu) {
			st := c.stack()
			var vals [8]uint32
			for r := EDI; r >= EAX; r-- {
				vals[r] = st.pop(w)
			}
			for r := EAX; r <= EDI; r++ {
				if r != ESP {
					c.setReg(w, r, vals[r])
				}
			}
			c.Regs[ESP] = st.sp
		}
	})

	s.ov(0x9c, "pushf", func(w int) Handler {
		return func(c *Cpu) {
			c.v86Sensitive()
			c.push(w, c.pushedFlags())
		}
	})
	s.ov(0x9d, "popf", func(w int) Handler {
		return func(c *Cpu) {
			c.v86Sensitive()
			st := c.stack()
			v := st.pop(w)
			c.Regs[ESP] = st.sp
			c.writeFlags(v, w)
		}
	})

	s.ov(0xc8, "enter", func(w int) Handler {
		return func(c *Cpu) {
			size := uint32(c.fetch16())
			level := uint32(c.fetch8()) & 31
			st := c.stack()
			st.push(w, c.reg(w, EBP))
			frame := st.sp
			if level > 0 {
				bp := newStack(c, c.Seg[SS], c.Regs[EBP])
				for i := uint32(1); i < level; i++ {
					bp.sp = bp.sp&^bp.mask | (bp.sp-uint32(w))&bp.mask
					st.push(w, c.readLinear(w, bp.base+bp.sp&bp.mask))
				}
				st.push(w, frame)
			}
			st.sp = st.sp&^st.mask | (st.sp-size)&st.mask
			c.setReg(w, EBP, frame)
			c.Regs[ESP] = st.sp
		}
	})
	s.ov(0xc9, "leave", func(w int) Handler {
		return func(c *Cpu) {
			st := c.stack()
			st.sp = st.sp&^st.mask | c.Regs[EBP]&st.mask
			v := st.pop(w)
			c.Regs[ESP] = st.sp
			c.setReg(w, EBP, v)
		}
	})
}
