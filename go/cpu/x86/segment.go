package x86

// LoadSegment loads a segment register the way MOV Sreg does. It is atomic: on
// a fault the register and its cache are left untouched and the fault is returned.
func (c *Cpu) LoadSegment(seg int, sel uint16) error {
	f, err := catch(func() { c.loadSeg(seg, sel) })
	if err != nil {
		return err
	}
	if f != nil {
		return f
	}
	return nil
}

func (c *Cpu) loadSeg(seg int, sel uint16) {
	if c.RealLike() {
		s := &c.Seg[seg]
		s.Sel = sel
		s.Base = uint32(sel) << 4
		s.Valid = true
		if c.V86() {
			s.Limit = 0xffff
			s.Access = 0xf3
			s.Big = false
		}
		switch seg {
		case CS:
			s.Big = false
			if c.V86() {
				c.CPL = 3
			} else {
				c.CPL = 0
			}
		case SS:
			c.inhibit = true
		}
		return
	}
	idx := sel &^ 3
	rpl := uint8(sel & 3)
	switch seg {
	case CS:
		if idx == 0 {
			gp(0)
		}
		d, addr := c.descriptor(sel)
		if !d.IsCode() {
			gp(idx)
		}
		if !d.Present() {
			np(idx)
		}
		cpl := c.CPL
		if !d.Conforming() {
			cpl = d.DPL()
		}
		c.setAccessBits(addr, AccAccessed)
		c.setCS(sel, d, cpl)
	case SS:
		if idx == 0 {
			gp(0)
		}
		d, addr := c.descriptor(sel)
		if rpl != c.CPL || d.DPL() != c.CPL || !d.Writable() {
			gp(idx)
		}
		if !d.Present() {
			ss(idx)
		}
		c.setAccessBits(addr, AccAccessed)
		c.Seg[SS] = d.cache(sel)
		c.inhibit = true
	default:
		if idx == 0 {
			c.Seg[seg] = SegCache{Sel: sel}
			return
		}
		d, addr := c.descriptor(sel)
		if d.Kind() != KindSegment || !d.Readable() {
			gp(idx)
		}
		if !d.Conforming() && (d.DPL() < c.CPL || d.DPL() < rpl) {
			gp(idx)
		}
		if !d.Present() {
			np(idx)
		}
		c.setAccessBits(addr, AccAccessed)
		c.Seg[seg] = d.cache(sel)
	}
}

// setCS commits a new code segment. Callers have validated d.
func (c *Cpu) setCS(sel uint16, d Descriptor, cpl uint8) {
	c.Seg[CS] = d.cache(sel&^3 | uint16(cpl))
	c.CPL = cpl
}

// codeTarget validates a code segment for a far JMP or CALL at the current CPL.
func (c *Cpu) codeTarget(sel uint16, d Descriptor) {
	idx := sel &^ 3
	if !d.IsCode() {
		gp(idx)
	}
	if d.Conforming() {
		if d.DPL() > c.CPL {
			gp(idx)
		}
	} else if uint8(sel&3) > c.CPL || d.DPL() != c.CPL {
		gp(idx)
	}
	if !d.Present() {
		np(idx)
	}
}

// validStack checks a stack segment for privilege level pl, raising fault(vec) on failure.
func (c *Cpu) validStack(sel uint16, pl uint8, vec uint8) Descriptor {
	idx := sel &^ 3
	if idx == 0 {
		throwCode(vec, 0)
	}
	addr, ok := c.descAddr(sel)
	if !ok {
		throwCode(vec, uint32(idx))
	}
	d := ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4))
	if uint8(sel&3) != pl || d.DPL() != pl || !d.Writable() {
		throwCode(vec, uint32(idx))
	}
	if !d.Present() {
		ss(idx)
	}
	return d
}

// tssStack reads the SS:ESP pair for privilege level pl from the current TSS.
func (c *Cpu) tssStack(pl uint8) (uint16, uint32) {
	if !c.TR.Valid {
		ts(c.TR.Sel &^ 3)
	}
	if c.trIs32() {
		off := uint32(pl)*8 + 4
		if off+5 > c.TR.Limit {
			ts(c.TR.Sel &^ 3)
		}
		return c.Mem.Read16(c.TR.Base + off + 4), c.Mem.Read32(c.TR.Base + off)
	}
	off := uint32(pl)*4 + 2
	if off+3 > c.TR.Limit {
		ts(c.TR.Sel &^ 3)
	}
	return c.Mem.Read16(c.TR.Base + off + 2), uint32(c.Mem.Read16(c.TR.Base + off))
}

// nullInaccessible clears data segment registers that the new, less privileged
// CPL may not use, after a return to an outer level.
func (c *Cpu) nullInaccessible() {
	for _, seg := range []int{ES, DS, FS, GS} {
		s := &c.Seg[seg]
		if !s.Valid {
			continue
		}
		code := s.Access&AccCode != 0
		conforming := code && s.Access&AccConform != 0
		if !conforming && (s.Access>>5)&3 < c.CPL {
			*s = SegCache{}
		}
	}
}

func (c *Cpu) farJump(sel uint16, off uint32, w int) {
	off &= widthMask(w)
	if c.RealLike() {
		c.loadSeg(CS, sel)
		c.EIP = off
		return
	}
	if sel&^3 == 0 {
		gp(0)
	}
	d, _ := c.descriptor(sel)
	switch d.Kind() {
	case KindSegment:
		c.codeTarget(sel, d)
		c.setCS(sel, d, c.CPL)
		c.EIP = off
	case KindCallGate16, KindCallGate32:
		cd := c.gateTarget(sel, d)
		c.codeTarget(d.Selector&^3|uint16(c.CPL), cd)
		c.setCS(d.Selector, cd, c.CPL)
		c.EIP = d.Offset
	case KindTaskGate, KindTSS16, KindTSS32:
		c.taskTransfer(sel, d, switchJump)
	default:
		gp(sel &^ 3)
	}
}

// gateTarget checks gate privilege and returns the target code descriptor.
func (c *Cpu) gateTarget(sel uint16, gate Descriptor) Descriptor {
	idx := sel &^ 3
	if gate.DPL() < c.CPL || gate.DPL() < uint8(sel&3) {
		gp(idx)
	}
	if !gate.Present() {
		np(idx)
	}
	target := gate.Selector &^ 3
	if target == 0 {
		gp(0)
	}
	cd, _ := c.descriptor(gate.Selector)
	if !cd.IsCode() || cd.DPL() > c.CPL {
		gp(target)
	}
	if !cd.Present() {
		np(target)
	}
	return cd
}

func (c *Cpu) farCall(sel uint16, off uint32, w int) {
	off &= widthMask(w)
	if c.RealLike() {
		cs, eip := uint32(c.Seg[CS].Sel), c.EIP
		st := c.stack()
		st.push(w, cs)
		st.push(w, eip)
		c.loadSeg(CS, sel)
		c.Regs[ESP] = st.sp
		c.EIP = off
		return
	}
	if sel&^3 == 0 {
		gp(0)
	}
	d, _ := c.descriptor(sel)
	switch d.Kind() {
	case KindSegment:
		c.codeTarget(sel, d)
		st := c.stack()
		st.push(w, uint32(c.Seg[CS].Sel))
		st.push(w, c.EIP)
		c.setCS(sel, d, c.CPL)
		c.Regs[ESP] = st.sp
		c.EIP = off
	case KindCallGate16, KindCallGate32:
		c.callGate(sel, d)
	case KindTaskGate, KindTSS16, KindTSS32:
		c.taskTransfer(sel, d, switchCall)
	default:
		gp(sel &^ 3)
	}
}

func (c *Cpu) callGate(sel uint16, gate Descriptor) {
	cd := c.gateTarget(sel, gate)
	gw := 2
	if gate.Kind() == KindCallGate32 {
		gw = 4
	}
	oldCS, oldEIP := uint32(c.Seg[CS].Sel), c.EIP
	if !cd.Conforming() && cd.DPL() < c.CPL {
		// inner privilege: switch to the stack for the target level
		if gate.Count > 0 {
			notImplemented("call gate parameter copy")
		}
		pl := cd.DPL()
		newSS, newESP := c.tssStack(pl)
		sd := c.validStack(newSS, pl, VecTS)
		oldSS, oldESP := uint32(c.Seg[SS].Sel), c.Regs[ESP]
		st := newStack(c, sd.cache(newSS), newESP)
		st.push(gw, oldSS)
		st.push(gw, oldESP)
		st.push(gw, oldCS)
		st.push(gw, oldEIP)
		c.Seg[SS] = sd.cache(newSS)
		c.Regs[ESP] = st.sp
		c.setCS(gate.Selector, cd, pl)
	} else {
		st := c.stack()
		st.push(gw, oldCS)
		st.push(gw, oldEIP)
		c.Regs[ESP] = st.sp
		c.setCS(gate.Selector, cd, c.CPL)
	}
	c.EIP = gate.Offset
}

// farReturn implements RETF imm.
func (c *Cpu) farReturn(w int, imm uint32) {
	st := c.stack()
	eip := st.pop(w)
	sel := uint16(st.pop(w))
	if c.RealLike() {
		c.loadSeg(CS, sel)
		st.skip(imm)
		c.Regs[ESP] = st.sp
		c.EIP = eip
		return
	}
	rpl := uint8(sel & 3)
	cd := c.returnTarget(sel)
	if rpl == c.CPL {
		st.skip(imm)
		c.setCS(sel, cd, c.CPL)
		c.Regs[ESP] = st.sp
		c.EIP = eip
		return
	}
	// outer privilege level
	st.skip(imm)
	esp := st.pop(w)
	ssSel := uint16(st.pop(w))
	sd := c.validStack(ssSel, rpl, VecGP)
	c.setCS(sel, cd, rpl)
	c.Seg[SS] = sd.cache(ssSel)
	stk := newStack(c, c.Seg[SS], esp)
	stk.skip(imm)
	c.Regs[ESP] = stk.sp
	c.EIP = eip
	c.nullInaccessible()
}

// returnTarget validates the CS popped by RETF or IRET.
func (c *Cpu) returnTarget(sel uint16) Descriptor {
	idx := sel &^ 3
	rpl := uint8(sel & 3)
	if idx == 0 {
		gp(0)
	}
	if rpl < c.CPL {
		gp(idx)
	}
	d, _ := c.descriptor(sel)
	if !d.IsCode() {
		gp(idx)
	}
	if d.Conforming() {
		if d.DPL() > rpl {
			gp(idx)
		}
	} else if d.DPL() != rpl {
		gp(idx)
	}
	if !d.Present() {
		np(idx)
	}
	return d
}
