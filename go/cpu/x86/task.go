package x86

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// what caused a task switch
const (
	switchJump = iota
	switchCall
	switchInt
	switchIret
)

// tss32 is the 386 task-state segment. Selector slots occupy the low word of a dword.
type tss32 struct {
	Link   uint32
	Stacks [6]uint32 // esp0, ss0, esp1, ss1, esp2, ss2
	CR3    uint32
	EIP    uint32
	EFlags uint32
	Regs   [8]uint32
	Segs   [6]uint32 // ES, CS, SS, DS, FS, GS
	LDT    uint32
	Trap   uint16
	IOMap  uint16
}

// tss16 is the 286 task-state segment.
type tss16 struct {
	Link   uint16
	Stacks [6]uint16 // sp0, ss0, sp1, ss1, sp2, ss2
	IP     uint16
	Flags  uint16
	Regs   [8]uint16
	Segs   [4]uint16 // ES, CS, SS, DS
	LDT    uint16
}

const (
	tss32Size = 104
	tss16Size = 44
)

// taskImage is the processor state held by either TSS layout.
type taskImage struct {
	EIP   uint32
	Flags uint32
	CR3   uint32
	Regs  [8]uint32
	Segs  [6]uint16
	LDT   uint16
}

// trIs32 reports whether the current task register holds a 386 TSS.
func (c *Cpu) trIs32() bool {
	return c.TR.Access&0x8 != 0
}

func (c *Cpu) unpack(addr uint32, n int, v interface{}) {
	r := bytes.NewReader(c.readBlock(addr, n))
	if err := struc.UnpackWithOrder(r, v, binary.LittleEndian); err != nil {
		panic(fatal{errors.Wrap(err, "tss unpack")})
	}
}

func (c *Cpu) pack(addr uint32, v interface{}) {
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, v, binary.LittleEndian); err != nil {
		panic(fatal{errors.Wrap(err, "tss pack")})
	}
	c.writeBlock(addr, buf.Bytes())
}

// saveTask writes the dynamic fields of the outgoing task into the TSS at base.
func (c *Cpu) saveTask(base uint32, is32 bool, flags uint32) {
	if is32 {
		var t tss32
		c.unpack(base, tss32Size, &t)
		t.CR3, t.EIP, t.EFlags = c.CR3, c.EIP, flags
		t.Regs = c.Regs
		for i := range t.Segs {
			t.Segs[i] = uint32(c.Seg[i].Sel)
		}
		c.pack(base, &t)
		return
	}
	var t tss16
	c.unpack(base, tss16Size, &t)
	t.IP, t.Flags = uint16(c.EIP), uint16(flags)
	for i := range t.Regs {
		t.Regs[i] = uint16(c.Regs[i])
	}
	for i := range t.Segs {
		t.Segs[i] = c.Seg[i].Sel
	}
	c.pack(base, &t)
}

// loadTask reads the incoming task. A 286 TSS leaves the upper register halves,
// CR3, FS and GS as they were.
func (c *Cpu) loadTask(base uint32, is32 bool) taskImage {
	var img taskImage
	if is32 {
		var t tss32
		c.unpack(base, tss32Size, &t)
		img.EIP, img.Flags, img.CR3 = t.EIP, t.EFlags, t.CR3
		img.Regs = t.Regs
		for i, s := range t.Segs {
			img.Segs[i] = uint16(s)
		}
		img.LDT = uint16(t.LDT)
		return img
	}
	var t tss16
	c.unpack(base, tss16Size, &t)
	img.EIP, img.Flags, img.CR3 = uint32(t.IP), uint32(t.Flags), c.CR3
	for i, r := range t.Regs {
		img.Regs[i] = c.Regs[i]&0xffff0000 | uint32(r)
	}
	for i, s := range t.Segs {
		img.Segs[i] = s
	}
	img.Segs[FS], img.Segs[GS] = c.Seg[FS].Sel, c.Seg[GS].Sel
	img.LDT = t.LDT
	return img
}

// taskTransfer handles a far JMP or CALL to a task gate or TSS descriptor.
func (c *Cpu) taskTransfer(sel uint16, d Descriptor, kind int) {
	idx := sel &^ 3
	if d.DPL() < c.CPL || d.DPL() < uint8(sel&3) {
		gp(idx)
	}
	if !d.Present() {
		np(idx)
	}
	if d.Kind() == KindTaskGate {
		sel = d.Selector
	}
	c.taskSwitch(sel, kind)
}

// taskSwitch saves the current task into its TSS and resumes the task named by sel.
// Faults raised once the new state is committed are taken in the new task.
func (c *Cpu) taskSwitch(sel uint16, kind int) {
	idx := sel &^ 3
	fault := gp
	if kind == switchIret {
		fault = ts
	}
	if sel&4 != 0 {
		fault(idx)
	}
	addr, ok := c.descAddr(sel)
	if !ok {
		fault(idx)
	}
	d := ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4))
	k := d.Kind()
	if k != KindTSS16 && k != KindTSS32 || d.Busy() != (kind == switchIret) {
		fault(idx)
	}
	if !d.Present() {
		np(idx)
	}
	is32 := k == KindTSS32
	min := uint32(tss16Size - 1)
	if is32 {
		min = tss32Size - 1
	}
	if d.Limit < min {
		ts(idx)
	}
	if !c.TR.Valid {
		ts(c.TR.Sel &^ 3)
	}

	flags := c.Flags
	if kind == switchIret {
		flags &^= FlagNT
	}
	c.saveTask(c.TR.Base, c.trIs32(), flags)
	if kind == switchJump || kind == switchIret {
		if old, ok := c.descAddr(c.TR.Sel); ok {
			c.Mem.Write8(old+5, c.Mem.Read8(old+5)&^tssBusy)
		}
	}
	img := c.loadTask(d.Base, is32)
	if kind == switchCall || kind == switchInt {
		c.Mem.Write16(d.Base, c.TR.Sel)
		img.Flags |= FlagNT
	}
	if kind != switchIret {
		c.Mem.Write8(addr+5, c.Mem.Read8(addr+5)|tssBusy)
		d.Access |= tssBusy
	}

	// commit
	c.TR = d.cache(sel)
	c.CR0 |= CR0_TS
	c.CR3 = img.CR3
	c.Regs = img.Regs
	c.EIP = img.EIP
	c.Flags = img.Flags&flagsValid | flagsFixed
	if !is32 {
		c.Flags &^= FlagVM
	}
	c.opEIP, c.prefixCount = c.EIP, 0

	c.loadLDT(img.LDT, ts)
	if c.V86() {
		for seg, s := range img.Segs {
			c.loadSeg(seg, s)
		}
		return
	}
	c.CPL = uint8(img.Segs[CS] & 3)
	c.taskSeg(CS, img.Segs[CS])
	c.taskSeg(SS, img.Segs[SS])
	for _, seg := range []int{ES, DS, FS, GS} {
		c.taskSeg(seg, img.Segs[seg])
	}
}

// taskSeg loads a segment register from an incoming TSS. Protection
// failures are reported as #TS(selector).
func (c *Cpu) taskSeg(seg int, sel uint16) {
	f, err := catch(func() {
		if seg == CS {
			d, _ := c.descriptor(sel)
			if d.IsCode() && !d.Conforming() && d.DPL() != uint8(sel&3) {
				gp(sel &^ 3)
			}
		}
		c.loadSeg(seg, sel)
	})
	if err != nil {
		panic(fatal{err})
	}
	if f != nil {
		if f.Vector == VecGP {
			ts(sel &^ 3)
		}
		panic(f)
	}
}

// loadLDT loads LDTR from a GDT selector, raising fault(selector) on a bad descriptor.
func (c *Cpu) loadLDT(sel uint16, fault func(uint16)) {
	idx := sel &^ 3
	if idx == 0 {
		c.LDTR = SegCache{Sel: sel, Access: 0x82}
		return
	}
	if sel&4 != 0 {
		fault(idx)
	}
	addr, ok := c.descAddr(sel)
	if !ok {
		fault(idx)
	}
	d := ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4))
	if d.Kind() != KindLDT {
		fault(idx)
	}
	if !d.Present() {
		np(idx)
	}
	c.LDTR = d.cache(sel)
}

// loadTR implements LTR: the TSS must be available, and becomes busy.
func (c *Cpu) loadTR(sel uint16) {
	idx := sel &^ 3
	if idx == 0 || sel&4 != 0 {
		gp(idx)
	}
	addr, ok := c.descAddr(sel)
	if !ok {
		gp(idx)
	}
	d := ParseDescriptor(c.Mem.Read32(addr), c.Mem.Read32(addr+4))
	if k := d.Kind(); k != KindTSS16 && k != KindTSS32 || d.Busy() {
		gp(idx)
	}
	if !d.Present() {
		np(idx)
	}
	c.Mem.Write8(addr+5, c.Mem.Read8(addr+5)|tssBusy)
	d.Access |= tssBusy
	c.TR = d.cache(sel)
}
