package x86

// FPU executes floating point escape instructions (D8-DF).
type FPU interface {
	// Exec runs escape opcode op with its ModRM byte. For memory forms, addr
	// is the linear address of the operand and mem is set.
	Exec(c *Cpu, op, modrm uint8, addr uint32, mem bool) error
}

func (s *isa) fpuOps() {
	for op := uint16(0xd8); op <= 0xdf; op++ {
		esc := uint8(op)
		s.add(op, MAll, "esc", func(c *Cpu) {
			c.decodeModRM()
			if c.CR0&(CR0_EM|CR0_TS) != 0 {
				throw(VecNM)
			}
			if c.FPU == nil {
				return
			}
			var addr uint32
			if !c.rmIsReg {
				addr = c.base(c.eaSeg) + c.ea
			}
			if err := c.FPU.Exec(c, esc, c.modrm, addr, !c.rmIsReg); err != nil {
				panic(fatal{err})
			}
		})
	}
	s.add(0x9b, MAll, "wait", func(c *Cpu) {
		if c.CR0&(CR0_MP|CR0_TS) == CR0_MP|CR0_TS {
			throw(VecNM)
		}
	})
}
