package x86

import (
	"fmt"
)

// RaiseInterrupt delivers vector now, as INT n would when software is set and as
// an external interrupt otherwise. Only fatal errors are returned.
func (c *Cpu) RaiseInterrupt(vector uint8, software bool) error {
	return c.deliver(func() { c.interrupt(vector, software, false, 0) })
}

// RaiseException delivers a processor exception. The error code is pushed for
// vectors that define one.
func (c *Cpu) RaiseException(vector uint8, code uint32) error {
	f := &Fault{Vector: vector, Code: code, HasCode: hasErrorCode(vector)}
	return c.deliver(func() { c.exception(f) })
}

// RequestIRQ queues a maskable hardware interrupt. It is taken between
// instructions once IF is set and no instruction shadow is active.
func (c *Cpu) RequestIRQ(vector uint8) {
	c.irqs = append(c.irqs, vector)
}

// PendingIRQs returns the number of queued hardware interrupts.
func (c *Cpu) PendingIRQs() int {
	return len(c.irqs)
}

func (c *Cpu) pollIRQ() error {
	if len(c.irqs) == 0 || c.Flags&FlagIF == 0 || c.Shadow {
		return nil
	}
	vec := c.irqs[0]
	c.irqs = c.irqs[1:]
	return c.deliver(func() { c.interrupt(vec, false, false, 0) })
}

// interrupt transfers control to the handler for vec. soft is set for INT n,
// INT3 and INTO, which are subject to the gate privilege check.
func (c *Cpu) interrupt(vec uint8, soft, hasCode bool, code uint32) {
	c.delivered = true
	c.Halted = false
	c.OnIntr(uint32(vec))
	if c.Protected() {
		c.protInterrupt(vec, soft, hasCode, code)
	} else {
		c.realInterrupt(vec)
	}
}

func (c *Cpu) realInterrupt(vec uint8) {
	ptr := c.Mem.Read32(c.IDTR.Base + uint32(vec)*4)
	if ptr == 0 {
		fmt.Fprintf(c.Output, "int %#02x at %04x:%04x: null vector, ignored\n", vec, c.Seg[CS].Sel, c.EIP)
		return
	}
	st := c.stack()
	st.push(2, c.Flags)
	st.push(2, uint32(c.Seg[CS].Sel))
	st.push(2, c.EIP)
	c.Regs[ESP] = st.sp
	c.loadSeg(CS, uint16(ptr>>16))
	c.EIP = ptr & 0xffff
	c.Flags &^= FlagIF | FlagTF | FlagAC
}

func (c *Cpu) protInterrupt(vec uint8, soft, hasCode bool, code uint32) {
	var ext uint16 = 1
	if soft {
		ext = 0
	}
	idtCode := uint16(vec)<<3 | 2 | ext
	off := uint32(vec) * 8
	if off+7 > c.IDTR.Limit {
		gp(idtCode)
	}
	gate := ParseDescriptor(c.Mem.Read32(c.IDTR.Base+off), c.Mem.Read32(c.IDTR.Base+off+4))
	kind := gate.Kind()
	switch kind {
	case KindIntGate16, KindIntGate32, KindTrapGate16, KindTrapGate32, KindTaskGate:
	default:
		gp(idtCode)
	}
	// the RPL of the gate's target selector is not checked
	if soft && gate.DPL() < c.CPL {
		gp(idtCode)
	}
	if !gate.Present() {
		np(idtCode)
	}
	if kind == KindTaskGate {
		c.taskSwitch(gate.Selector, switchInt)
		if hasCode {
			w := 2
			if c.trIs32() {
				w = 4
			}
			c.push(w, code)
		}
		return
	}

	sel := gate.Selector
	idx := sel &^ 3
	if idx == 0 {
		gp(ext)
	}
	addr, ok := c.descAddr(sel)
	if !ok {
		gp(idx | ext)
	}
	cd := ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4))
	if !cd.IsCode() || cd.DPL() > c.CPL {
		gp(idx | ext)
	}
	if !cd.Present() {
		np(idx | ext)
	}
	w := 2
	if kind == KindIntGate32 || kind == KindTrapGate32 {
		w = 4
	}
	flags := c.Flags &^ FlagRF
	oldCS, oldEIP := uint32(c.Seg[CS].Sel), c.EIP
	inner := !cd.Conforming() && cd.DPL() < c.CPL
	if c.V86() && (!inner || cd.DPL() != 0) {
		// a V86 handler must run at CPL 0 on its own stack
		gp(idx | ext)
	}

	var st *stack
	var newSS SegCache
	pl := c.CPL
	if inner {
		pl = cd.DPL()
		ssSel, esp := c.tssStack(pl)
		sd := c.validStack(ssSel, pl, VecTS)
		newSS = sd.cache(ssSel)
		st = newStack(c, newSS, esp)
		if c.V86() {
			st.push(w, uint32(c.Seg[GS].Sel))
			st.push(w, uint32(c.Seg[FS].Sel))
			st.push(w, uint32(c.Seg[DS].Sel))
			st.push(w, uint32(c.Seg[ES].Sel))
		}
		st.push(w, uint32(c.Seg[SS].Sel))
		st.push(w, c.Regs[ESP])
	} else {
		st = c.stack()
	}
	st.push(w, flags)
	st.push(w, oldCS)
	st.push(w, oldEIP)
	if hasCode {
		st.push(w, code)
	}

	// commit
	if c.V86() {
		for _, seg := range []int{ES, DS, FS, GS} {
			c.Seg[seg] = SegCache{}
		}
	}
	if inner {
		c.Seg[SS] = newSS
	}
	c.Regs[ESP] = st.sp
	c.Flags &^= FlagTF | FlagNT | FlagVM | FlagRF
	if kind == KindIntGate16 || kind == KindIntGate32 {
		c.Flags &^= FlagIF
	}
	c.setCS(sel, cd, pl)
	c.EIP = gate.Offset
}

// iret implements IRET (w=2) and IRETD (w=4).
func (c *Cpu) iret(w int) {
	if c.RealLike() {
		if c.V86() && c.IOPL() < 3 {
			gp(0)
		}
		st := c.stack()
		eip := st.pop(w)
		cs := uint16(st.pop(w))
		flags := st.pop(w)
		c.loadSeg(CS, cs)
		c.Regs[ESP] = st.sp
		c.EIP = eip & widthMask(w)
		c.writeFlags(flags, w)
		return
	}
	if c.Flags&FlagNT != 0 {
		c.taskSwitch(c.Mem.Read16(c.TR.Base), switchIret)
		return
	}
	st := c.stack()
	eip := st.pop(w)
	sel := uint16(st.pop(w))
	flags := st.pop(w)
	if w == 4 && flags&FlagVM != 0 && c.CPL == 0 {
		c.iretV86(st, eip, sel, flags)
		return
	}
	rpl := uint8(sel & 3)
	cd := c.returnTarget(sel)
	if rpl == c.CPL {
		c.writeFlags(flags, w)
		c.setCS(sel, cd, rpl)
		c.Regs[ESP] = st.sp
		c.EIP = eip
		return
	}
	// outer privilege level
	esp := st.pop(w)
	ssSel := uint16(st.pop(w))
	sd := c.validStack(ssSel, rpl, VecGP)
	c.writeFlags(flags, w)
	c.setCS(sel, cd, rpl)
	c.Seg[SS] = sd.cache(ssSel)
	if w == 2 {
		esp |= c.Regs[ESP] &^ 0xffff
	}
	c.Regs[ESP] = esp
	c.EIP = eip
	c.nullInaccessible()
}

// iretV86 finishes an IRETD whose FLAGS image has VM set.
func (c *Cpu) iretV86(st *stack, eip uint32, cs uint16, flags uint32) {
	esp := st.pop(4)
	ss := uint16(st.pop(4))
	es := uint16(st.pop(4))
	ds := uint16(st.pop(4))
	fs := uint16(st.pop(4))
	gs := uint16(st.pop(4))
	c.Flags = flags&flagsValid | flagsFixed
	c.loadSeg(CS, cs)
	c.loadSeg(SS, ss)
	c.loadSeg(ES, es)
	c.loadSeg(DS, ds)
	c.loadSeg(FS, fs)
	c.loadSeg(GS, gs)
	c.Regs[ESP] = esp
	c.EIP = eip & 0xffff
}
