package x86

import (
	"testing"
)

func TestPortsDefault(t *testing.T) {
	p := NewPorts()
	if v := p.In8(0x3da); v != 0xff {
		t.Errorf("open bus read %#x", v)
	}
	if v := p.In32(0x100); v != 0xffffffff {
		t.Errorf("open bus dword read %#x", v)
	}
	var writes []uint16
	p.SetDefault(func(uint16) uint8 { return 0 }, func(port uint16, v uint8) { writes = append(writes, port) })
	p.Out16(0x80, 0x1234)
	if len(writes) != 2 || writes[0] != 0x80 || writes[1] != 0x81 {
		t.Errorf("word write split into %v", writes)
	}
	if v := p.In8(0x3da); v != 0 {
		t.Errorf("replaced default read %#x", v)
	}
}

func TestPortsWordSplit(t *testing.T) {
	p := NewPorts()
	regs := map[uint16]uint8{0x60: 0x34, 0x61: 0x12}
	for port := range regs {
		p.Register8(port, func(port uint16) uint8 { return regs[port] }, func(port uint16, v uint8) { regs[port] = v })
	}
	if v := p.In16(0x60); v != 0x1234 {
		t.Errorf("in16 got %#x", v)
	}
	p.Out16(0x60, 0xbeef)
	if regs[0x60] != 0xef || regs[0x61] != 0xbe {
		t.Errorf("out16 wrote %#x %#x", regs[0x60], regs[0x61])
	}
}

func TestPortsWordHandler(t *testing.T) {
	p := NewPorts()
	var last uint16
	p.Register16(0x1f0, func(uint16) uint16 { return 0xabcd }, func(_ uint16, v uint16) { last = v })
	if v := p.In16(0x1f0); v != 0xabcd {
		t.Errorf("in16 got %#x", v)
	}
	p.Out32(0x1f0, 0x11112222)
	if last != 0x2222 {
		t.Errorf("low word went to %#x", last)
	}
}

func TestInOutInstructions(t *testing.T) {
	// out 0x70, al; mov dx, 0x71; in al, dx
	c := realCpu(t, 0xe6, 0x70, 0xba, 0x71, 0x00, 0xec)
	var cmos uint8
	c.Ports.Register8(0x70, nil, func(_ uint16, v uint8) { cmos = v })
	c.Ports.Register8(0x71, func(uint16) uint8 { return 0x42 }, nil)
	c.Regs[EAX] = 0x0f
	step(t, c, 3)
	if cmos != 0x0f {
		t.Errorf("out wrote %#x", cmos)
	}
	expect(t, "al", uint32(c.Reg8(AL)), 0x42)
}

func TestIOPrivilege(t *testing.T) {
	c := protCpu(t)
	setGate(c, VecGP, NewGate(KindIntGate32, selCode0, 0x4800, 0, 0))
	toRing3(t, c)
	c.EIP = 0x5000
	// in al, 0x60
	c.writeBlock(0x5000, []byte{0xe4, 0x60})
	step(t, c, 1)
	expect(t, "eip", c.EIP, 0x4800)

	c = protCpu(t)
	toRing3(t, c)
	c.Flags |= FlagIOPL
	c.EIP = 0x5000
	c.writeBlock(0x5000, []byte{0xe4, 0x60})
	step(t, c, 1)
	expect(t, "eip", c.EIP, 0x5002)
	expect(t, "al", uint32(c.Reg8(AL)), 0xff)
}
