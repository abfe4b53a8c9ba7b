package x86

import (
	"testing"
)

func TestRepMovsb(t *testing.T) {
	c := realCpu(t, 0xf3, 0xa4)
	c.writeBlock(dataSeg<<4+0x10, []byte("hello"))
	c.Regs[ESI] = 0x10
	c.Regs[EDI] = 0x100
	c.Regs[ECX] = 5
	step(t, c, 1)
	expect(t, "cx", c.Regs[ECX], 0)
	expect(t, "si", c.Regs[ESI], 0x15)
	expect(t, "di", c.Regs[EDI], 0x105)
	expect(t, "eip", c.EIP, 2)
	if got := string(c.readBlock(dataSeg<<4+0x100, 5)); got != "hello" {
		t.Errorf("copied %q", got)
	}
}

func TestRepZeroCount(t *testing.T) {
	c := realCpu(t, 0xf3, 0xaa)
	c.Regs[EDI] = 0x100
	c.Regs[EAX] = 0x55
	step(t, c, 1)
	expect(t, "di", c.Regs[EDI], 0x100)
	expect(t, "mem", uint32(c.Mem.Read8(dataSeg<<4+0x100)), 0)
}

func TestRepeCmpsb(t *testing.T) {
	c := realCpu(t, 0xf3, 0xa6)
	c.writeBlock(dataSeg<<4+0x10, []byte("abcX"))
	c.writeBlock(dataSeg<<4+0x100, []byte("abcY"))
	c.Regs[ESI] = 0x10
	c.Regs[EDI] = 0x100
	c.Regs[ECX] = 10
	step(t, c, 1)
	expect(t, "cx", c.Regs[ECX], 6)
	expect(t, "si", c.Regs[ESI], 0x14)
	if c.flag(FlagZF) {
		t.Error("ZF set after a mismatch")
	}
}

func TestRepneScasb(t *testing.T) {
	c := realCpu(t, 0xf2, 0xae)
	c.writeBlock(dataSeg<<4+0x100, []byte("abc\x00"))
	c.Regs[EDI] = 0x100
	c.Regs[ECX] = 0xffff
	step(t, c, 1)
	expect(t, "di", c.Regs[EDI], 0x104)
	expect(t, "cx", c.Regs[ECX], 0xffff-4)
	if !c.flag(FlagZF) {
		t.Error("terminator not found")
	}
}

func TestStoswBackwards(t *testing.T) {
	c := realCpu(t, 0xab)
	c.Flags |= FlagDF
	c.Regs[EAX] = 0xaaaa
	c.Regs[EDI] = 0x200
	step(t, c, 1)
	expect(t, "mem", uint32(c.Mem.Read16(dataSeg<<4+0x200)), 0xaaaa)
	expect(t, "di", c.Regs[EDI], 0x1fe)
}

func TestLodsSegmentOverride(t *testing.T) {
	// es: lodsb
	c := realCpu(t, 0x26, 0xac)
	if err := c.LoadSegment(ES, 0x4000); err != nil {
		t.Fatal(err)
	}
	c.Mem.Write8(0x40000+0x20, 0x99)
	c.Regs[ESI] = 0x20
	step(t, c, 1)
	expect(t, "al", uint32(c.Reg8(AL)), 0x99)
	expect(t, "si", c.Regs[ESI], 0x21)
}

func TestIndexWraps(t *testing.T) {
	// movsb with 16-bit addressing wraps SI and DI within the segment
	c := realCpu(t, 0xa4)
	c.Mem.Write8(dataSeg<<4+0xffff, 0x77)
	c.Regs[ESI] = 0xffff
	c.Regs[EDI] = 0x10
	step(t, c, 1)
	expect(t, "si", c.Regs[ESI], 0)
	expect(t, "mem", uint32(c.Mem.Read8(dataSeg<<4+0x10)), 0x77)
}
