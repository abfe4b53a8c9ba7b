package x86

import (
	"testing"
)

const (
	testMem = 0x110000

	codeSeg  = 0x1000
	stackSeg = 0x2000
	dataSeg  = 0x3000
	// real mode handlers are placed at codeSeg:handlerOff
	handlerOff = 0x400
)

// realCpu returns a real mode processor with code at codeSeg:0000.
func realCpu(t *testing.T, code ...byte) *Cpu {
	c, err := NewCpu(testMem, nil)
	if err != nil {
		t.Fatal(err)
	}
	segs := []struct {
		seg int
		sel uint16
	}{{CS, codeSeg}, {SS, stackSeg}, {DS, dataSeg}, {ES, dataSeg}}
	for _, s := range segs {
		if err := c.LoadSegment(s.seg, s.sel); err != nil {
			t.Fatal(err)
		}
	}
	c.Regs[ESP] = 0xfffe
	c.EIP = 0
	c.writeBlock(c.Seg[CS].Base, code)
	return c
}

func setVector(c *Cpu, vec uint8, seg, off uint16) {
	c.Mem.Write32(uint32(vec)*4, uint32(seg)<<16|uint32(off))
}

func step(t *testing.T, c *Cpu, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := c.Step(); err != nil {
			t.Fatal(err)
		}
	}
}

// stackWord reads the 16-bit word at SS:SP+off
func stackWord(c *Cpu, off uint32) uint16 {
	return c.Mem.Read16(c.Seg[SS].Base + (c.Regs[ESP]+off)&c.spMask())
}

func expect(t *testing.T, name string, got, want uint32) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %#x, want %#x", name, got, want)
	}
}

// protected mode fixture: flat segments, a TSS per task, one call gate and one task gate
const (
	gdtBase = 0x800
	idtBase = 0x1000
	tssA    = 0x3000
	tssB    = 0x3100

	selCode0    = 0x08
	selData0    = 0x10
	selCode3    = 0x1b
	selData3    = 0x23
	selTSSA     = 0x28
	selGate     = 0x33
	selAbsent   = 0x38
	selTSSB     = 0x40
	selTaskGate = 0x4b

	stack0 = 0x9000
	stack3 = 0x8000
)

func protCpu(t *testing.T) *Cpu {
	c, err := NewCpu(testMem, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.GDTR = TableReg{Base: gdtBase, Limit: 0x4f}
	c.IDTR = TableReg{Base: idtBase, Limit: 0x7ff}
	descs := []struct {
		sel uint16
		d   Descriptor
	}{
		{selCode0, NewSegment(0, 0xfffff, AccPresent|AccCode|AccReadable, 0)},
		{selData0, NewSegment(0, 0xfffff, AccPresent|AccReadable, FlagBig)},
		{selCode3, NewSegment(0, 0xfffff, AccPresent|3<<5|AccCode|AccReadable, 0)},
		{selData3, NewSegment(0, 0xfffff, AccPresent|3<<5|AccReadable, FlagBig)},
		{selTSSA, NewSystem(KindTSS32, tssA, tss32Size-1, 0)},
		{selGate, NewGate(KindCallGate16, selCode0, 0x6000, 3, 0)},
		{selAbsent, NewSegment(0, 0xffff, AccReadable, 0)},
		{selTSSB, NewSystem(KindTSS32, tssB, tss32Size-1, 0)},
		{selTaskGate, NewGate(KindTaskGate, selTSSB, 0, 3, 0)},
	}
	for _, v := range descs {
		if !c.WriteDescriptor(v.sel, v.d) {
			t.Fatalf("descriptor %#x outside the GDT", v.sel)
		}
	}
	c.CR0 |= CR0_PE
	for _, seg := range []int{CS, SS, DS, ES} {
		sel := uint16(selData0)
		if seg == CS {
			sel = selCode0
		}
		if err := c.LoadSegment(seg, sel); err != nil {
			t.Fatal(err)
		}
	}
	// ring 0 stack for inward transfers
	c.Mem.Write32(tssA+4, stack0)
	c.Mem.Write16(tssA+8, selData0)
	if f, err := catch(func() { c.loadTR(selTSSA) }); f != nil || err != nil {
		t.Fatal(f, err)
	}
	c.Regs[ESP] = stack0
	return c
}

// toRing3 drops the processor to CPL 3 on the ring 3 stack.
func toRing3(t *testing.T, c *Cpu) {
	for _, seg := range []int{CS, SS, DS, ES} {
		sel := uint16(selData3)
		if seg == CS {
			sel = selCode3
		}
		if err := c.LoadSegment(seg, sel); err != nil {
			t.Fatal(err)
		}
	}
	c.Regs[ESP] = stack3
}

func setGate(c *Cpu, vec uint8, d Descriptor) {
	lo, hi := d.Encode()
	c.Mem.Write32(idtBase+uint32(vec)*8, lo)
	c.Mem.Write32(idtBase+uint32(vec)*8+4, hi)
}
