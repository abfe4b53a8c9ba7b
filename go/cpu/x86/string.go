package x86

// index reads SI or DI at the address size.
func (c *Cpu) index(r int) uint32 {
	if c.a32 {
		return c.Regs[r]
	}
	return c.Regs[r] & 0xffff
}

// advance steps SI or DI by w in the direction given by DF.
func (c *Cpu) advance(r int, w int) {
	d := uint32(w)
	if c.flag(FlagDF) {
		d = -d
	}
	if c.a32 {
		c.Regs[r] += d
	} else {
		c.setReg(2, r, c.Regs[r]+d)
	}
}

// repeat runs one string iteration, or all of them under a REP prefix.
// The counter is decremented after each completed iteration so a fault
// resumes where it left off.
func (c *Cpu) repeat(cmp bool, fn func()) {
	if c.rep == repNone {
		fn()
		return
	}
	for c.counter() != 0 {
		fn()
		c.setCounter(c.counter() - 1)
		if cmp && (c.rep == repE) != c.flag(FlagZF) {
			break
		}
	}
}

func (c *Cpu) movs(w int) {
	c.repeat(false, func() {
		v := c.read(w, c.seg(DS), c.index(ESI))
		c.write(w, ES, c.index(EDI), v)
		c.advance(ESI, w)
		c.advance(EDI, w)
	})
}

func (c *Cpu) cmps(w int) {
	c.repeat(true, func() {
		a := c.read(w, c.seg(DS), c.index(ESI))
		b := c.read(w, ES, c.index(EDI))
		c.flagsSub(w, a, b, 0)
		c.advance(ESI, w)
		c.advance(EDI, w)
	})
}

func (c *Cpu) stos(w int) {
	c.repeat(false, func() {
		c.write(w, ES, c.index(EDI), c.reg(w, EAX))
		c.advance(EDI, w)
	})
}

func (c *Cpu) lods(w int) {
	c.repeat(false, func() {
		c.setReg(w, EAX, c.read(w, c.seg(DS), c.index(ESI)))
		c.advance(ESI, w)
	})
}

func (c *Cpu) scas(w int) {
	c.repeat(true, func() {
		c.flagsSub(w, c.reg(w, EAX), c.read(w, ES, c.index(EDI)), 0)
		c.advance(EDI, w)
	})
}

func (c *Cpu) ins(w int) {
	port := uint16(c.Regs[EDX])
	c.checkIO()
	c.repeat(false, func() {
		c.write(w, ES, c.index(EDI), c.in(w, port))
		c.advance(EDI, w)
	})
}

func (c *Cpu) outs(w int) {
	port := uint16(c.Regs[EDX])
	c.checkIO()
	c.repeat(false, func() {
		c.out(w, port, c.read(w, c.seg(DS), c.index(ESI)))
		c.advance(ESI, w)
	})
}

func (s *isa) stringOps() {
	ops := []struct {
		op   uint16
		name string
		fn   func(c *Cpu, w int)
	}{
		{0xa4, "movs", (*Cpu).movs},
		{0xa6, "cmps", (*Cpu).cmps},
		{0xaa, "stos", (*Cpu).stos},
		{0xac, "lods", (*Cpu).lods},
		{0xae, "scas", (*Cpu).scas},
		{0x6c, "ins", (*Cpu).ins},
		{0x6e, "outs", (*Cpu).outs},
	}
	for _, o := range ops {
		fn := o.fn
		s.add(o.op, MAll, o.name+"b", func(c *Cpu) { fn(c, 1) })
		s.ov(o.op+1, o.name, func(w int) Handler {
			return func(c *Cpu) { fn(c, w) }
		})
	}
}
