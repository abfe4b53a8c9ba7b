package x86

import (
	"testing"
)

func TestPushPop(t *testing.T) {
	// push ax; push 0x1234; pop bx; pop cx
	c := realCpu(t, 0x50, 0x68, 0x34, 0x12, 0x5b, 0x59)
	c.Regs[EAX] = 0xbeef
	step(t, c, 2)
	expect(t, "sp", c.Regs[ESP], 0xfffa)
	expect(t, "top", uint32(stackWord(c, 0)), 0x1234)
	step(t, c, 2)
	expect(t, "bx", c.Regs[EBX], 0x1234)
	expect(t, "cx", c.Regs[ECX], 0xbeef)
	expect(t, "sp", c.Regs[ESP], 0xfffe)
}

func TestPushSPWraps(t *testing.T) {
	// push ax with SP at zero wraps to the top of the segment
	c := realCpu(t, 0x50)
	c.Regs[ESP] = 0
	c.Regs[EAX] = 0x5a5a
	step(t, c, 1)
	expect(t, "sp", c.Regs[ESP], 0xfffe)
	expect(t, "top", uint32(c.Mem.Read16(stackSeg<<4+0xfffe)), 0x5a5a)
}

func TestPushSP(t *testing.T) {
	// push sp stores the value before the decrement
	c := realCpu(t, 0x54)
	step(t, c, 1)
	expect(t, "top", uint32(stackWord(c, 0)), 0xfffe)
}

func TestPushaPopa(t *testing.T) {
	// pusha; popa
	c := realCpu(t, 0x60, 0x61)
	for r := EAX; r <= EDI; r++ {
		if r != ESP {
			c.Regs[r] = uint32(r + 1)
		}
	}
	step(t, c, 1)
	expect(t, "sp", c.Regs[ESP], 0xfffe-16)
	expect(t, "stacked di", uint32(stackWord(c, 0)), EDI+1)
	expect(t, "stacked sp", uint32(stackWord(c, 6)), 0xfffe)
	expect(t, "stacked ax", uint32(stackWord(c, 14)), EAX+1)
	for r := EAX; r <= EDI; r++ {
		if r != ESP {
			c.Regs[r] = 0
		}
	}
	step(t, c, 1)
	for r := EAX; r <= EDI; r++ {
		if r != ESP {
			expect(t, RegNames[r], c.Regs[r], uint32(r+1))
		}
	}
	expect(t, "sp", c.Regs[ESP], 0xfffe)
}

func TestPushfPopf(t *testing.T) {
	// pushf; popf
	c := realCpu(t, 0x9c, 0x9d)
	c.Flags |= FlagCF | FlagDF
	step(t, c, 1)
	expect(t, "stacked flags", uint32(stackWord(c, 0))&(FlagCF|FlagDF), FlagCF|FlagDF)
	c.Mem.Write16(stackSeg<<4+c.Regs[ESP], FlagZF|FlagIF)
	step(t, c, 1)
	expect(t, "flags", c.Flags&(arithFlags|FlagDF|FlagIF), FlagZF|FlagIF)
	if c.Flags&flagsFixed == 0 {
		t.Error("reserved bit 1 cleared")
	}
}

func TestPopSegment(t *testing.T) {
	// push cs; pop ds
	c := realCpu(t, 0x0e, 0x1f)
	step(t, c, 2)
	expect(t, "ds", uint32(c.Seg[DS].Sel), codeSeg)
	expect(t, "ds base", c.Seg[DS].Base, codeSeg<<4)
	expect(t, "sp", c.Regs[ESP], 0xfffe)
}

func TestPopMemory(t *testing.T) {
	// push 0x4321; pop word [0x10]
	c := realCpu(t, 0x68, 0x21, 0x43, 0x8f, 0x06, 0x10, 0x00)
	step(t, c, 2)
	expect(t, "mem", uint32(c.Mem.Read16(dataSeg<<4+0x10)), 0x4321)
	expect(t, "sp", c.Regs[ESP], 0xfffe)
}

func TestPopStackRelative(t *testing.T) {
	// pop word [esp] stores to the slot above the popped one
	c := realCpu(t, 0x67, 0x8f, 0x04, 0x24)
	c.Regs[ESP] = 0xfffa
	c.Mem.Write16(stackSeg<<4+0xfffa, 0x1111)
	c.Mem.Write16(stackSeg<<4+0xfffc, 0x2222)
	step(t, c, 1)
	expect(t, "sp", c.Regs[ESP], 0xfffc)
	expect(t, "[sp]", uint32(c.Mem.Read16(stackSeg<<4+0xfffc)), 0x1111)
}

func TestEnterLeave(t *testing.T) {
	// enter 8, 0; leave
	c := realCpu(t, 0xc8, 0x08, 0x00, 0x00, 0xc9)
	c.Regs[EBP] = 0x1111
	step(t, c, 1)
	expect(t, "bp", c.Regs[EBP], 0xfffc)
	expect(t, "sp", c.Regs[ESP], 0xfffc-8)
	expect(t, "saved bp", uint32(c.Mem.Read16(stackSeg<<4+0xfffc)), 0x1111)
	step(t, c, 1)
	expect(t, "bp", c.Regs[EBP], 0x1111)
	expect(t, "sp", c.Regs[ESP], 0xfffe)
}

func TestEnterNested(t *testing.T) {
	// enter 0, 2 copies one frame pointer from the outer frame
	c := realCpu(t, 0xc8, 0x00, 0x00, 0x02)
	c.Regs[EBP] = 0xff00
	c.Mem.Write16(stackSeg<<4+0xfefe, 0xaaaa)
	step(t, c, 1)
	expect(t, "bp", c.Regs[EBP], 0xfffc)
	expect(t, "sp", c.Regs[ESP], 0xfff8)
	expect(t, "outer frame", uint32(stackWord(c, 2)), 0xaaaa)
	expect(t, "frame", uint32(stackWord(c, 0)), 0xfffc)
}
