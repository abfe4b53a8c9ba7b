//go:build unicorn

package unicorn

import (
	"github.com/pkg/errors"
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models/cpu"
)

// Builder creates a real mode unicorn processor with MemSize bytes mapped
// at address zero, used as a reference for the x86 core.
type Builder struct {
	MemSize int
}

func (b *Builder) New() (cpu.Cpu, error) {
	u, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_16)
	if err != nil {
		return nil, errors.Wrap(err, "NewUnicorn() failed")
	}
	size := (uint64(b.MemSize) + 0xfff) &^ 0xfff
	if err := u.MemMap(0, size); err != nil {
		u.Close()
		return nil, errors.Wrap(err, "MemMap() failed")
	}
	return &UnicornCpu{Unicorn: u}, nil
}

type UnicornCpu struct {
	uc.Unicorn
}

// x86 core register enums to unicorn's
var regMap = map[int]int{
	x86.REG_EAX:    uc.X86_REG_EAX,
	x86.REG_ECX:    uc.X86_REG_ECX,
	x86.REG_EDX:    uc.X86_REG_EDX,
	x86.REG_EBX:    uc.X86_REG_EBX,
	x86.REG_ESP:    uc.X86_REG_ESP,
	x86.REG_EBP:    uc.X86_REG_EBP,
	x86.REG_ESI:    uc.X86_REG_ESI,
	x86.REG_EDI:    uc.X86_REG_EDI,
	x86.REG_EIP:    uc.X86_REG_EIP,
	x86.REG_EFLAGS: uc.X86_REG_EFLAGS,
	x86.REG_ES:     uc.X86_REG_ES,
	x86.REG_CS:     uc.X86_REG_CS,
	x86.REG_SS:     uc.X86_REG_SS,
	x86.REG_DS:     uc.X86_REG_DS,
	x86.REG_FS:     uc.X86_REG_FS,
	x86.REG_GS:     uc.X86_REG_GS,
	x86.REG_CR0:    uc.X86_REG_CR0,
	x86.REG_CR2:    uc.X86_REG_CR2,
	x86.REG_CR3:    uc.X86_REG_CR3,
}

func (u *UnicornCpu) RegRead(enum int) (uint64, error) {
	reg, ok := regMap[enum]
	if !ok {
		return 0, errors.Errorf("register %s has no unicorn equivalent", x86.RegNames[enum])
	}
	return u.Unicorn.RegRead(reg)
}

func (u *UnicornCpu) RegWrite(enum int, val uint64) error {
	reg, ok := regMap[enum]
	if !ok {
		return errors.Errorf("register %s has no unicorn equivalent", x86.RegNames[enum])
	}
	return u.Unicorn.RegWrite(reg, val)
}

// Emulate runs count instructions from CS:IP. Unicorn does not report how
// many ran, so a clean stop counts as all of them.
func (u *UnicornCpu) Emulate(count int) (int, error) {
	cs, err := u.Unicorn.RegRead(uc.X86_REG_CS)
	if err != nil {
		return 0, err
	}
	ip, err := u.Unicorn.RegRead(uc.X86_REG_EIP)
	if err != nil {
		return 0, err
	}
	pc := cs<<4 + ip&0xffff
	err = u.Unicorn.StartWithOptions(pc, 0xffffffffffffffff, &uc.UcOptions{Count: uint64(count)})
	if err != nil {
		return 0, errors.Wrapf(err, "unicorn stopped at %04x:%04x", cs, ip)
	}
	return count, nil
}

func (u *UnicornCpu) Backend() interface{} {
	return u.Unicorn
}

func (u *UnicornCpu) ContextSave(reuse interface{}) (interface{}, error) {
	ctx, _ := reuse.(uc.Context)
	return u.Unicorn.ContextSave(ctx)
}

func (u *UnicornCpu) ContextRestore(ctx interface{}) error {
	c, ok := ctx.(uc.Context)
	if !ok {
		return errors.Errorf("invalid context type: %T", ctx)
	}
	return u.Unicorn.ContextRestore(c)
}

func (u *UnicornCpu) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (cpu.Hook, error) {
	// hooks take the cpu.Cpu, not the bare unicorn handle
	var wrap interface{}
	switch htype {
	case cpu.HOOK_CODE:
		cbc, ok := cb.(func(cpu.Cpu, uint64, uint32))
		if !ok {
			return nil, errors.Errorf("bad code hook callback type: %T", cb)
		}
		wrap = func(_ uc.Unicorn, addr uint64, size uint32) { cbc(u, addr, size) }

	case cpu.HOOK_MEM_READ, cpu.HOOK_MEM_WRITE, cpu.HOOK_MEM_READ | cpu.HOOK_MEM_WRITE:
		cbc, ok := cb.(func(cpu.Cpu, int, uint64, int, int64))
		if !ok {
			return nil, errors.Errorf("bad memory hook callback type: %T", cb)
		}
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) { cbc(u, access, addr, size, val) }

	case cpu.HOOK_INTR:
		cbc, ok := cb.(func(cpu.Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("bad interrupt hook callback type: %T", cb)
		}
		wrap = func(_ uc.Unicorn, intno uint32) { cbc(u, intno) }

	case cpu.HOOK_MEM_ERR:
		cbc, ok := cb.(func(cpu.Cpu, int, uint64, int, int64) bool)
		if !ok {
			return nil, errors.Errorf("bad fault hook callback type: %T", cb)
		}
		wrap = func(_ uc.Unicorn, access int, addr uint64, size int, val int64) bool {
			return cbc(u, access, addr, size, val)
		}

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	return u.Unicorn.HookAdd(htype, wrap, start, end, extra...)
}

func (u *UnicornCpu) HookDel(hh cpu.Hook) error {
	h, ok := hh.(uc.Hook)
	if !ok {
		return errors.Errorf("not a unicorn hook: %T", hh)
	}
	return u.Unicorn.HookDel(h)
}
