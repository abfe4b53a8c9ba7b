package cpu

import (
	"bytes"
	"testing"
)

var asdf = []byte("asdf")

func TestMemBounds(t *testing.T) {
	mem := NewMem(0x1000)
	if err := mem.MemWrite(0x1000, asdf); err == nil {
		t.Error("write succeeded above memory")
	}
	if err := mem.MemWrite(0xffe, asdf); err == nil {
		t.Error("write succeeded across the end of memory")
	}
	if _, err := mem.MemRead(0xfff, 2); err == nil {
		t.Error("read succeeded across the end of memory")
	} else if merr, ok := err.(*MemError); !ok || merr.Enum != MEM_READ_UNMAPPED {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mem.MemWrite(0xffc, asdf); err != nil {
		t.Error("write failed at the end of memory:", err)
	}
	if tmp, err := mem.MemRead(0xffc, uint64(len(asdf))); err != nil {
		t.Error("read failed inside memory:", err)
	} else if !bytes.Equal(tmp, asdf) {
		t.Error("read returned bad value")
	}
}

func TestMemOpenBus(t *testing.T) {
	mem := NewMem(0x100)
	if v := mem.Read8(0x100); v != 0xff {
		t.Errorf("Read8 out of range: got %#x, want 0xff", v)
	}
	if v := mem.Read16(0xff); v != 0xff00 {
		t.Errorf("Read16 straddling end: got %#x, want 0xff00", v)
	}
	if v := mem.Read32(0x1000); v != 0xffffffff {
		t.Errorf("Read32 out of range: got %#x, want 0xffffffff", v)
	}
	// dropped, must not panic
	mem.Write32(0xfe, 0x11223344)
	if v := mem.Read16(0xfe); v != 0x3344 {
		t.Errorf("partial write: got %#x, want 0x3344", v)
	}
}

func TestMemLittleEndian(t *testing.T) {
	mem := NewMem(0x100)
	mem.Write32(0x10, 0x04030201)
	if v := mem.Read8(0x10); v != 1 {
		t.Errorf("got %#x, want 1", v)
	}
	if v := mem.Read16(0x11); v != 0x0302 {
		t.Errorf("got %#x, want 0x0302", v)
	}
	if v := mem.Read32(0x10); v != 0x04030201 {
		t.Errorf("got %#x, want 0x04030201", v)
	}
}

func TestMemA20(t *testing.T) {
	mem := NewMem(0x110000)
	mem.Write8(0x100010, 0xaa)
	if v := mem.Read8(0x10); v != 0 {
		t.Fatalf("A20 enabled read wrapped: got %#x", v)
	}
	mem.SetA20(false)
	if mem.A20() {
		t.Fatal("A20 still reported enabled")
	}
	if v := mem.Read8(0x100010); v != 0 {
		t.Errorf("A20 disabled read did not wrap: got %#x", v)
	}
	mem.Write8(0x100020, 0x55)
	if v := mem.Read8(0x20); v != 0x55 {
		t.Errorf("A20 disabled write did not wrap: got %#x", v)
	}
}

func TestMemFaultHook(t *testing.T) {
	mem := NewMem(0x10)
	h := NewHooks(nil, mem)
	var hit uint64
	cb := func(_ Cpu, access int, addr uint64, size int, val int64) bool {
		hit = addr
		return false
	}
	if _, err := h.HookAdd(HOOK_MEM_ERR, cb, 1, 0); err != nil {
		t.Fatal(err)
	}
	mem.Write8(0x20, 1)
	if hit != 0x20 {
		t.Errorf("fault hook: got %#x, want 0x20", hit)
	}
}

func TestMemUint(t *testing.T) {
	rawtest := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	ltable := map[int]uint64{
		1: 0x1,
		2: 0x0201,
		4: 0x04030201,
		8: 0x0807060504030201,
	}
	mem := NewMem(0x2000)
	if err := mem.MemWrite(0x1000, rawtest); err != nil {
		t.Error("failed to write memory:", err)
	}
	// test reading canned values
	for size, val := range ltable {
		if n, err := mem.ReadUint(0x1000, size); err != nil {
			t.Error("failed to read uint:", err)
		} else if n != val {
			t.Error("inconsistent uint value:", n, val)
		}
	}
	// test writing, then reading canned values
	for size, val := range ltable {
		if err := mem.WriteUint(0x1100, size, val); err != nil {
			t.Error("failed to write uint:", err)
		}
		if n, err := mem.ReadUint(0x1100, size); err != nil {
			t.Error("failed to read uint:", err)
		} else if n != val {
			t.Error("inconsistent uint value:", n, val)
		}
	}
	if _, err := mem.ReadUint(0x1000, 3); err == nil {
		t.Error("ReadUint accepted size 3")
	}
}
