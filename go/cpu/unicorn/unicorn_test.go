//go:build unicorn

package unicorn

import (
	"bytes"
	"testing"

	dcpu "github.com/lunixbochs/dos86/go/cpu"
	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models/cpu"
)

const (
	memSize = 0x20000
	testSeg = 0x1000
)

// every fixture ends on an instruction that defines all compared flags
var fixtures = []struct {
	name, asm string
}{
	{"add overflow", "mov ax, 0x7fff; add ax, 1"},
	{"sub borrow", "mov bx, 1; sub bx, 2"},
	{"adc", "stc; mov cx, 0xffff; adc cx, 0"},
	{"sbb", "stc; mov dx, 0; sbb dx, 0"},
	{"logic", "mov ax, 0xf0f0; and ax, 0x0ff0; or ax, 1; xor ax, 0x8000"},
	{"shift rotate", "mov ax, 0x8001; shl ax, 1; rcr ax, 1; cmp ax, 0"},
	{"mul", "mov ax, 300; mov bx, 300; mul bx; cmp dx, 1"},
	{"div", "xor dx, dx; mov ax, 1000; mov cx, 7; div cx; add ax, dx"},
	{"idiv", "mov ax, -1000; cwd; mov cx, 7; idiv cx; add ax, dx"},
	{"inc dec", "mov si, 0xffff; inc si; dec di; add si, di"},
	{"stack", "push 0x1234; push ax; pop bx; pop cx; add bx, cx"},
	{"loop", "mov cx, 5; xor ax, ax; l: add ax, cx; loop l; cmp ax, 15"},
	{"rep stosb", "cld; mov di, 0x200; mov al, 0x41; mov cx, 4; rep stosb; mov si, 0x200; lodsw; cmp ax, 0x4141"},
	{"daa", "mov al, 0x19; add al, 0x28; daa; cmp al, 0x47"},
	{"extend", "mov ax, 0x00ff; movsx bx, al; movzx cx, al; xchg bx, cx; add bx, cx"},
	{"32 bit", "mov eax, 0x12345678; bswap eax; ror eax, 8; add eax, 1"},
	{"setcc", "mov ax, 5; cmp ax, 6; setb bl; setg bh; add bl, bh"},
	{"call ret", "call f; jmp e; f: mov dx, 0x55; ret; e: add dx, 1"},
}

var compared = []int{
	x86.REG_EAX, x86.REG_ECX, x86.REG_EDX, x86.REG_EBX,
	x86.REG_ESP, x86.REG_EBP, x86.REG_ESI, x86.REG_EDI, x86.REG_EIP,
}

const flagMask = x86.FlagCF | x86.FlagPF | x86.FlagZF | x86.FlagSF | x86.FlagOF | x86.FlagDF

func setup(t *testing.T, c cpu.Cpu, code []byte) {
	if err := c.MemWrite(testSeg<<4, code); err != nil {
		t.Fatal(err)
	}
	for _, seg := range []int{x86.REG_CS, x86.REG_DS, x86.REG_ES, x86.REG_SS} {
		if err := c.RegWrite(seg, testSeg); err != nil {
			t.Fatal(err)
		}
	}
	for reg, val := range map[int]uint64{x86.REG_EIP: 0, x86.REG_ESP: 0xfffe, x86.REG_EFLAGS: 2} {
		if err := c.RegWrite(reg, val); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDifferential(t *testing.T) {
	asm := dcpu.NewKeystone16()
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			code, err := asm.Asm(f.asm, 0)
			if err != nil {
				t.Fatal(err)
			}
			end := uint64(len(code))

			core, err := x86.NewCpu(memSize, nil)
			if err != nil {
				t.Fatal(err)
			}
			setup(t, core, code)
			for i := 0; uint64(core.EIP) != end; i++ {
				if i > 1000 {
					t.Fatalf("x86 core did not reach the end, eip=%#x", core.EIP)
				}
				if _, err := core.Emulate(1); err != nil {
					t.Fatal(err)
				}
			}

			ref, err := (&Builder{MemSize: memSize}).New()
			if err != nil {
				t.Fatal(err)
			}
			defer ref.Close()
			setup(t, ref, code)
			u := ref.(*UnicornCpu)
			if err := u.Start(testSeg<<4, testSeg<<4+end); err != nil {
				t.Fatal(err)
			}

			for _, reg := range compared {
				want, err := ref.RegRead(reg)
				if err != nil {
					t.Fatal(err)
				}
				got, _ := core.RegRead(reg)
				if uint32(got) != uint32(want) {
					t.Errorf("%s: x86 core %#x, unicorn %#x", x86.RegNames[reg], got, want)
				}
			}
			gotFlags, _ := core.RegRead(x86.REG_EFLAGS)
			wantFlags, err := ref.RegRead(x86.REG_EFLAGS)
			if err != nil {
				t.Fatal(err)
			}
			if gotFlags&flagMask != wantFlags&flagMask {
				t.Errorf("eflags: x86 core %#x, unicorn %#x", gotFlags&flagMask, wantFlags&flagMask)
			}

			gotMem, _ := core.MemRead(testSeg<<4, 0x10000)
			wantMem, err := ref.MemRead(testSeg<<4, 0x10000)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(gotMem, wantMem) {
				for i := range gotMem {
					if gotMem[i] != wantMem[i] {
						t.Fatalf("memory differs at %04x:%04x: x86 core %#x, unicorn %#x", testSeg, i, gotMem[i], wantMem[i])
					}
				}
			}
		})
	}
}

func TestEmulateCount(t *testing.T) {
	code, err := dcpu.NewKeystone16().Asm("inc ax; inc ax; inc ax; inc ax", 0)
	if err != nil {
		t.Fatal(err)
	}
	ref, err := (&Builder{MemSize: memSize}).New()
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()
	setup(t, ref, code)
	if n, err := ref.Emulate(3); err != nil || n != 3 {
		t.Fatalf("Emulate: %d, %v", n, err)
	}
	if ax, _ := ref.RegRead(x86.REG_EAX); ax != 3 {
		t.Fatalf("ax = %d", ax)
	}
}

func TestUnmappedRegister(t *testing.T) {
	ref, err := (&Builder{MemSize: memSize}).New()
	if err != nil {
		t.Fatal(err)
	}
	defer ref.Close()
	if _, err := ref.RegRead(x86.REG_CPL); err == nil {
		t.Fatal("cpl read from unicorn")
	}
}
