package models

import (
	"strings"
	"testing"

	"github.com/lunixbochs/dos86/go/cpu/x86"
)

func testArch() *Arch {
	return &Arch{
		Name: "test",
		Bits: 32,
		Regs: map[string]int{
			"eax": x86.REG_EAX, "ebx": x86.REG_EBX, "ecx": x86.REG_ECX,
			"r10": x86.REG_EDX, "r2": x86.REG_ESI, "r1": x86.REG_EDI,
		},
		DefaultRegs: []string{"eax", "ebx", "ecx"},
	}
}

func TestRegNamesNaturalOrder(t *testing.T) {
	want := []string{"eax", "ebx", "ecx", "r1", "r2", "r10"}
	got := testArch().RegNames()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStatusDiff(t *testing.T) {
	c, err := x86.NewCpu(0x1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := &StatusDiff{Arch: testArch(), Cpu: c}
	c.Regs[x86.EAX] = 1
	all := s.Changes(false)
	if len(all.Changes) != 6 {
		t.Fatalf("full dump has %d registers", len(all.Changes))
	}
	if all.Count() != 1 || !all.Find(x86.REG_EAX).Changed() {
		t.Fatalf("first diff should only show eax changed, got %d", all.Count())
	}

	c.Regs[x86.EBX] = 0x55
	c.Regs[x86.EDX] = 0x66
	changed := s.Changes(true)
	if len(changed.Changes) != 1 || changed.Changes[0].Name != "ebx" {
		t.Fatalf("only ebx should be reported, got %d changes", len(changed.Changes))
	}
	if s.Changes(true).Count() != 0 {
		t.Fatal("registers changed without writes")
	}
}

func TestChangeMask(t *testing.T) {
	c := &Change{Old: 0x12345678, New: 0x12ff5678, Name: "eax"}
	masks := c.Mask(8)
	want := []ChangeMask{
		{Old: "12", New: "12"},
		{Old: "34", New: "ff", Changed: true},
		{Old: "5678", New: "5678"},
	}
	if len(masks) != len(want) {
		t.Fatalf("got %v", masks)
	}
	for i := range want {
		if masks[i] != want[i] {
			t.Errorf("mask %d: got %+v, want %+v", i, masks[i], want[i])
		}
	}
}

func TestChangeString(t *testing.T) {
	c := &Change{Old: 1, New: 2, Name: "eax"}
	if s := c.String(8, false); s != "+   eax 0x00000002" {
		t.Errorf("got %q", s)
	}
	c.Old = 2
	if s := c.String(8, false); s != "    eax 0x00000002" {
		t.Errorf("got %q", s)
	}
	cs := &Changes{Digits: 8, Changes: []*Change{c, c, c, c, c}}
	if lines := strings.Count(cs.String(false), "\n"); lines != 2 {
		t.Errorf("five registers should take two rows, got %d", lines)
	}
}
