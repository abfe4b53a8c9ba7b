package x86

import (
	"testing"

	"github.com/pkg/errors"
)

func TestRealSegmentLoad(t *testing.T) {
	c := realCpu(t)
	if err := c.LoadSegment(ES, 0xb800); err != nil {
		t.Fatal(err)
	}
	expect(t, "es base", c.Seg[ES].Base, 0xb8000)
	if !c.Seg[ES].Valid {
		t.Error("real mode segment marked invalid")
	}
}

func TestProtectedSegmentFaults(t *testing.T) {
	tests := []struct {
		name string
		seg  int
		sel  uint16
		vec  uint8
		code uint32
	}{
		{"not present", DS, selAbsent, VecNP, selAbsent},
		{"system descriptor", DS, selTSSA, VecGP, selTSSA},
		{"stack rpl", SS, selData3, VecGP, selData3 &^ 3},
		{"outside gdt", ES, 0x50, VecGP, 0x50},
		{"null stack", SS, 0, VecGP, 0},
		{"data in cs", CS, selData0, VecGP, selData0},
	}
	for _, v := range tests {
		c := protCpu(t)
		before := c.Seg[v.seg]
		err := c.LoadSegment(v.seg, v.sel)
		f, ok := err.(*Fault)
		if !ok {
			t.Errorf("%s: expected a fault, got %v", v.name, err)
			continue
		}
		if f.Vector != v.vec || f.Code != v.code {
			t.Errorf("%s: got %s, want vector %d code %#x", v.name, f, v.vec, v.code)
		}
		if c.Seg[v.seg] != before {
			t.Errorf("%s: register changed by a failed load", v.name)
		}
	}
}

func TestAccessedBit(t *testing.T) {
	c := protCpu(t)
	d, _ := c.ReadDescriptor(selData3)
	if d.Access&AccAccessed != 0 {
		t.Fatal("fixture descriptor already accessed")
	}
	if err := c.LoadSegment(FS, selData3); err != nil {
		t.Fatal(err)
	}
	d, _ = c.ReadDescriptor(selData3)
	if d.Access&AccAccessed == 0 {
		t.Error("accessed bit not set by a segment load")
	}
}

func TestNullSelector(t *testing.T) {
	// mov ax, [0]
	c := protCpu(t)
	c.EIP = 0x4000
	c.writeBlock(0x4000, []byte{0x8b, 0x06, 0x00, 0x00})
	if err := c.LoadSegment(DS, 0); err != nil {
		t.Fatal(err)
	}
	if c.Seg[DS].Valid {
		t.Fatal("null selector marked valid")
	}
	setGate(c, VecGP, NewGate(KindIntGate16, selCode0, 0x4800, 0, 0))
	step(t, c, 1)
	expect(t, "eip", c.EIP, 0x4800)
	expect(t, "error code", uint32(stackWord(c, 0)), 0)
	expect(t, "stacked ip", uint32(stackWord(c, 2)), 0x4000)
}

func TestFarJumpSameLevel(t *testing.T) {
	// jmp 0x08:0x4100
	c := protCpu(t)
	c.EIP = 0x4000
	c.writeBlock(0x4000, []byte{0xea, 0x00, 0x41, selCode0, 0x00})
	step(t, c, 1)
	expect(t, "cs", uint32(c.Seg[CS].Sel), selCode0)
	expect(t, "eip", c.EIP, 0x4100)
}

func TestFarJumpPrivilegeFault(t *testing.T) {
	// jmp 0x1b:0 from ring 0 to a nonconforming ring 3 segment
	c := protCpu(t)
	c.EIP = 0x4000
	c.writeBlock(0x4000, []byte{0xea, 0x00, 0x00, selCode3, 0x00})
	setGate(c, VecGP, NewGate(KindIntGate16, selCode0, 0x4800, 0, 0))
	step(t, c, 1)
	expect(t, "eip", c.EIP, 0x4800)
	expect(t, "error code", uint32(stackWord(c, 0)), selCode3&^3)
}

func TestCallGateInward(t *testing.T) {
	c := protCpu(t)
	toRing3(t, c)
	c.EIP = 0x5000
	// call far 0x33:0
	c.writeBlock(0x5000, []byte{0x9a, 0x00, 0x00, selGate, 0x00})
	// retf
	c.writeBlock(0x6000, []byte{0xcb})

	step(t, c, 1)
	expect(t, "cs", uint32(c.Seg[CS].Sel), selCode0)
	expect(t, "cpl", uint32(c.CPL), 0)
	expect(t, "eip", c.EIP, 0x6000)
	expect(t, "ss", uint32(c.Seg[SS].Sel), selData0)
	expect(t, "esp", c.Regs[ESP], stack0-8)
	expect(t, "return ip", uint32(stackWord(c, 0)), 0x5005)
	expect(t, "return cs", uint32(stackWord(c, 2)), selCode3)
	expect(t, "outer sp", uint32(stackWord(c, 4)), stack3)
	expect(t, "outer ss", uint32(stackWord(c, 6)), selData3)

	step(t, c, 1)
	expect(t, "cs", uint32(c.Seg[CS].Sel), selCode3)
	expect(t, "cpl", uint32(c.CPL), 3)
	expect(t, "eip", c.EIP, 0x5005)
	expect(t, "ss", uint32(c.Seg[SS].Sel), selData3)
	expect(t, "esp", c.Regs[ESP], stack3)
}

func TestOuterReturnNullsSegments(t *testing.T) {
	c := protCpu(t)
	toRing3(t, c)
	c.EIP = 0x5000
	c.writeBlock(0x5000, []byte{0x9a, 0x00, 0x00, selGate, 0x00})
	// mov ax, 0x10; mov ds, ax; retf
	c.writeBlock(0x6000, []byte{0xb8, selData0, 0x00, 0x8e, 0xd8, 0xcb})
	step(t, c, 4)
	expect(t, "cpl", uint32(c.CPL), 3)
	if c.Seg[DS].Valid {
		t.Error("ring 0 data segment still loaded after the return to ring 3")
	}
	if !c.Seg[ES].Valid {
		t.Error("ring 3 data segment was cleared")
	}
}

func TestCallGateParameters(t *testing.T) {
	c := protCpu(t)
	if !c.WriteDescriptor(selGate, NewGate(KindCallGate16, selCode0, 0x6000, 3, 2)) {
		t.Fatal("gate outside the GDT")
	}
	toRing3(t, c)
	c.EIP = 0x5000
	c.writeBlock(0x5000, []byte{0x9a, 0x00, 0x00, selGate, 0x00})
	err := c.Step()
	if errors.Cause(err) != ErrNotImplemented {
		t.Fatalf("got %v, want %v", err, ErrNotImplemented)
	}
	expect(t, "eip", c.EIP, 0x5000)
	expect(t, "cpl", uint32(c.CPL), 3)
}

func TestDescriptorEncode(t *testing.T) {
	descs := []Descriptor{
		NewSegment(0x12345678, 0xfffff, AccPresent|AccCode|AccReadable, FlagBig),
		NewSegment(0x100000, 0xffffffff, AccPresent|AccReadable, FlagBig),
		NewSystem(KindTSS32, 0x3000, 0x67, 0),
		NewSystem(KindLDT, 0x2000, 0xff, 0),
	}
	for _, d := range descs {
		got := ParseDescriptor(d.Encode())
		if got.Base != d.Base || got.Limit != d.Limit || got.Access != d.Access || got.Kind() != d.Kind() {
			t.Errorf("%s decoded as %s", d, got)
		}
	}
	gates := []Descriptor{
		NewGate(KindCallGate32, 0x08, 0x12345678, 3, 4),
		NewGate(KindIntGate16, 0x10, 0x1234, 0, 0),
		NewGate(KindTaskGate, 0x40, 0, 3, 0),
	}
	for _, d := range gates {
		got := ParseDescriptor(d.Encode())
		if got.Selector != d.Selector || got.Offset != d.Offset || got.Count != d.Count || got.Kind() != d.Kind() || got.DPL() != d.DPL() {
			t.Errorf("%s decoded as %s", d, got)
		}
	}
}
