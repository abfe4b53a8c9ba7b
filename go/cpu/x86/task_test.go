package x86

import (
	"testing"
)

// taskCpu fills TSS B with a ring 0 task starting at 0x7000.
func taskCpu(t *testing.T) *Cpu {
	c := protCpu(t)
	img := tss32{
		EIP:    0x7000,
		EFlags: flagsFixed,
		Segs:   [6]uint32{selData0, selCode0, selData0, selData0, 0, 0},
	}
	img.Regs[ESP] = 0x7800
	img.Regs[EAX] = 0xb0b0
	if f, err := catch(func() { c.pack(tssB, &img) }); f != nil || err != nil {
		t.Fatal(f, err)
	}
	c.EIP = 0x4000
	c.Regs[EAX] = 0xa0a0
	return c
}

func busy(t *testing.T, c *Cpu, sel uint16) bool {
	d, ok := c.ReadDescriptor(sel)
	if !ok {
		t.Fatalf("no descriptor %#x", sel)
	}
	return d.Busy()
}

func TestTaskJump(t *testing.T) {
	c := taskCpu(t)
	// jmp 0x40:0
	c.writeBlock(0x4000, []byte{0xea, 0x00, 0x00, selTSSB, 0x00})
	step(t, c, 1)
	expect(t, "tr", uint32(c.TR.Sel), selTSSB)
	expect(t, "eip", c.EIP, 0x7000)
	expect(t, "esp", c.Regs[ESP], 0x7800)
	expect(t, "eax", c.Regs[EAX], 0xb0b0)
	expect(t, "cs", uint32(c.Seg[CS].Sel), selCode0)
	if c.CR0&CR0_TS == 0 {
		t.Error("CR0.TS not set by the switch")
	}
	if c.flag(FlagNT) {
		t.Error("NT set by a jump")
	}
	if busy(t, c, selTSSA) || !busy(t, c, selTSSB) {
		t.Error("busy bits not moved to the new task")
	}
	// the old task was saved
	expect(t, "saved eip", c.Mem.Read32(tssA+0x20), 0x4005)
	expect(t, "saved eax", c.Mem.Read32(tssA+0x28), 0xa0a0)
	expect(t, "saved cs", c.Mem.Read32(tssA+0x4c), selCode0)
}

func TestTaskGateCallAndReturn(t *testing.T) {
	c := taskCpu(t)
	// call 0x4b:0
	c.writeBlock(0x4000, []byte{0x9a, 0x00, 0x00, selTaskGate, 0x00})
	// iret
	c.writeBlock(0x7000, []byte{0xcf})

	step(t, c, 1)
	expect(t, "tr", uint32(c.TR.Sel), selTSSB)
	expect(t, "eip", c.EIP, 0x7000)
	expect(t, "link", uint32(c.Mem.Read16(tssB)), selTSSA)
	if !c.flag(FlagNT) {
		t.Error("NT not set in the nested task")
	}
	if !busy(t, c, selTSSA) || !busy(t, c, selTSSB) {
		t.Error("both tasks should be busy while nested")
	}

	step(t, c, 1)
	expect(t, "tr", uint32(c.TR.Sel), selTSSA)
	expect(t, "eip", c.EIP, 0x4005)
	expect(t, "eax", c.Regs[EAX], 0xa0a0)
	expect(t, "esp", c.Regs[ESP], stack0)
	if busy(t, c, selTSSB) {
		t.Error("returned-from task still busy")
	}
	if !busy(t, c, selTSSA) {
		t.Error("resumed task not busy")
	}
	if c.flag(FlagNT) {
		t.Error("NT set after returning to the outer task")
	}
	expect(t, "saved eip", c.Mem.Read32(tssB+0x20), 0x7001)
}

func TestTaskBusyFault(t *testing.T) {
	c := taskCpu(t)
	// jmp 0x28:0 to the running task
	c.writeBlock(0x4000, []byte{0xea, 0x00, 0x00, selTSSA, 0x00})
	setGate(c, VecGP, NewGate(KindIntGate32, selCode0, 0x4800, 0, 0))
	step(t, c, 1)
	expect(t, "eip", c.EIP, 0x4800)
	expect(t, "error code", c.Mem.Read32(c.Regs[ESP]), selTSSA)
	expect(t, "tr", uint32(c.TR.Sel), selTSSA)
}

func TestTaskBadSegment(t *testing.T) {
	c := taskCpu(t)
	// a ring 3 stack in a ring 0 task is reported as #TS in the new task
	c.Mem.Write32(tssB+0x50, selData3)
	c.writeBlock(0x4000, []byte{0xea, 0x00, 0x00, selTSSB, 0x00})
	setGate(c, VecTS, NewGate(KindIntGate32, selCode0, 0x4800, 0, 0))
	step(t, c, 1)
	expect(t, "tr", uint32(c.TR.Sel), selTSSB)
	expect(t, "eip", c.EIP, 0x4800)
	expect(t, "error code", c.Mem.Read32(c.Regs[ESP]), selData3&^3)
	expect(t, "stacked eip", c.Mem.Read32(c.Regs[ESP]+4), 0x7000)
}

func TestLoadTaskRegister(t *testing.T) {
	c := protCpu(t)
	f, err := catch(func() { c.loadTR(selTSSA) })
	if err != nil {
		t.Fatal(err)
	}
	if f == nil || f.Vector != VecGP || f.Code != selTSSA {
		t.Errorf("ltr of a busy TSS: got %v", f)
	}
	f, _ = catch(func() { c.loadTR(selTSSB) })
	if f != nil {
		t.Fatal(f)
	}
	if !busy(t, c, selTSSB) {
		t.Error("ltr did not mark the TSS busy")
	}
}

func TestTSS16(t *testing.T) {
	c := protCpu(t)
	if !c.WriteDescriptor(selTSSB, NewSystem(KindTSS16, tssB, tss16Size-1, 0)) {
		t.Fatal("descriptor outside the GDT")
	}
	img := tss16{IP: 0x7000, Flags: flagsFixed, Segs: [4]uint16{selData0, selCode0, selData0, selData0}}
	img.Regs[ESP] = 0x7800
	img.Regs[EAX] = 0x1234
	if f, err := catch(func() { c.pack(tssB, &img) }); f != nil || err != nil {
		t.Fatal(f, err)
	}
	c.EIP = 0x4000
	c.Regs[EAX] = 0xdead0000
	c.writeBlock(0x4000, []byte{0xea, 0x00, 0x00, selTSSB, 0x00})
	step(t, c, 1)
	expect(t, "eip", c.EIP, 0x7000)
	expect(t, "eax", c.Regs[EAX], 0xdead1234)
	expect(t, "sp", c.Regs[ESP], 0x7800)
	if c.trIs32() {
		t.Error("task register reports a 32-bit TSS")
	}
}
