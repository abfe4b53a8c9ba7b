package x86

var parityTable [256]bool

func init() {
	for i := range parityTable {
		bits := 0
		for v := i; v != 0; v >>= 1 {
			bits += v & 1
		}
		parityTable[i] = bits%2 == 0
	}
}

// operand widths are in bytes: 1, 2 or 4
func widthMask(w int) uint32 {
	switch w {
	case 1:
		return 0xff
	case 2:
		return 0xffff
	}
	return 0xffffffff
}

func signBit(w int) uint32 {
	return 1 << (uint(w)*8 - 1)
}

func signExtend(v uint32, w int) uint32 {
	switch w {
	case 1:
		return uint32(int32(int8(v)))
	case 2:
		return uint32(int32(int16(v)))
	}
	return v
}

func (c *Cpu) flag(f uint32) bool {
	return c.Flags&f != 0
}

func (c *Cpu) setFlag(f uint32, on bool) {
	if on {
		c.Flags |= f
	} else {
		c.Flags &^= f
	}
}

func (c *Cpu) carry() uint32 {
	return c.Flags & FlagCF
}

// setSZP sets SF, ZF and PF from a result of width w.
func (c *Cpu) setSZP(w int, res uint32) {
	res &= widthMask(w)
	f := c.Flags &^ (FlagSF | FlagZF | FlagPF)
	if res == 0 {
		f |= FlagZF
	}
	if res&signBit(w) != 0 {
		f |= FlagSF
	}
	if parityTable[res&0xff] {
		f |= FlagPF
	}
	c.Flags = f
}

func (c *Cpu) flagsAdd(w int, a, b, cin uint32) uint32 {
	mask := widthMask(w)
	wide := uint64(a) + uint64(b) + uint64(cin)
	res := uint32(wide) & mask
	c.setFlag(FlagCF, wide > uint64(mask))
	c.setFlag(FlagOF, (a^res)&(b^res)&signBit(w) != 0)
	c.setFlag(FlagAF, (a^b^res)&0x10 != 0)
	c.setSZP(w, res)
	return res
}

func (c *Cpu) flagsSub(w int, a, b, cin uint32) uint32 {
	mask := widthMask(w)
	res := (a - b - cin) & mask
	c.setFlag(FlagCF, uint64(a) < uint64(b)+uint64(cin))
	c.setFlag(FlagOF, (a^b)&(a^res)&signBit(w) != 0)
	c.setFlag(FlagAF, (a^b^res)&0x10 != 0)
	c.setSZP(w, res)
	return res
}

func (c *Cpu) flagsLogic(w int, res uint32) uint32 {
	res &= widthMask(w)
	c.Flags &^= FlagCF | FlagOF | FlagAF
	c.setSZP(w, res)
	return res
}

// cond evaluates a Jcc/SETcc condition code.
func (c *Cpu) cond(cc uint8) bool {
	var r bool
	switch (cc >> 1) & 7 {
	case 0:
		r = c.flag(FlagOF)
	case 1:
		r = c.flag(FlagCF)
	case 2:
		r = c.flag(FlagZF)
	case 3:
		r = c.flag(FlagCF | FlagZF)
	case 4:
		r = c.flag(FlagSF)
	case 5:
		r = c.flag(FlagPF)
	case 6:
		r = c.flag(FlagSF) != c.flag(FlagOF)
	case 7:
		r = c.flag(FlagZF) || c.flag(FlagSF) != c.flag(FlagOF)
	}
	if cc&1 != 0 {
		return !r
	}
	return r
}

// writeFlags loads a FLAGS image the way POPF and IRET do: which bits may change
// depends on the mode, CPL and IOPL at the time of the write.
func (c *Cpu) writeFlags(v uint32, w int) {
	mask := uint32(flagsArith | FlagTF | FlagDF | FlagNT | FlagAC | FlagID)
	if !c.Protected() || c.CPL == 0 {
		mask |= FlagIOPL
	}
	if !c.Protected() || c.CPL <= c.IOPL() {
		mask |= FlagIF
	}
	if w == 2 {
		mask &= 0xffff
	}
	c.Flags = (c.Flags&^mask | v&mask) & flagsValid | flagsFixed
}

// pushedFlags is the FLAGS image stored by PUSHF and interrupt entry.
func (c *Cpu) pushedFlags() uint32 {
	return c.Flags &^ (FlagVM | FlagRF)
}
