package cpu

import (
	"github.com/pkg/errors"
)

type Hook interface{}

// callback shapes:
// code:  func(Cpu, addr uint64, size uint32)
// intr:  func(Cpu, vector uint32)
// mem:   func(Cpu, access int, addr uint64, size int, val int64)
// fault: func(Cpu, access int, addr uint64, size int, val int64) bool

type hookInfo struct {
	htype int
	start uint64
	end   uint64
}

func (h *hookInfo) Type() int {
	return h.htype
}

// start > end means "everywhere"
func (h *hookInfo) Contains(addr uint64) bool {
	return h.start > h.end || addr >= h.start && addr <= h.end
}

type hinfo interface {
	Type() int
}

type codeHook struct {
	hookInfo
	cb func(Cpu, uint64, uint32)
}

type intrHook struct {
	hookInfo
	cb func(Cpu, uint32)
}

type memHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64)
}

type memFaultHook struct {
	hookInfo
	cb func(Cpu, int, uint64, int, int64) bool
}

type Hooks struct {
	cpu Cpu

	code     []*codeHook
	intr     []*intrHook
	mem      []*memHook
	memFault []*memFaultHook
}

// creates &Hooks{}, optionally attaching to a *Mem instance
func NewHooks(cpu Cpu, mem *Mem) *Hooks {
	h := &Hooks{cpu: cpu}
	if mem != nil {
		// mem will dispatch memory hooks automatically
		mem.hooks = h
	}
	return h
}

func (h *Hooks) HookAdd(htype int, cb interface{}, start uint64, end uint64, extra ...int) (Hook, error) {
	info := hookInfo{htype, start, end}
	var hook interface{}
	switch htype {
	case HOOK_CODE:
		fn, ok := cb.(func(Cpu, uint64, uint32))
		if !ok {
			return nil, errors.Errorf("bad code hook callback type: %T", cb)
		}
		hh := &codeHook{info, fn}
		h.code, hook = append(h.code, hh), hh

	case HOOK_INTR:
		fn, ok := cb.(func(Cpu, uint32))
		if !ok {
			return nil, errors.Errorf("bad interrupt hook callback type: %T", cb)
		}
		hh := &intrHook{info, fn}
		h.intr, hook = append(h.intr, hh), hh

	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		fn, ok := cb.(func(Cpu, int, uint64, int, int64))
		if !ok {
			return nil, errors.Errorf("bad memory hook callback type: %T", cb)
		}
		hh := &memHook{info, fn}
		h.mem, hook = append(h.mem, hh), hh

	case HOOK_MEM_ERR:
		fn, ok := cb.(func(Cpu, int, uint64, int, int64) bool)
		if !ok {
			return nil, errors.Errorf("bad fault hook callback type: %T", cb)
		}
		hh := &memFaultHook{info, fn}
		h.memFault, hook = append(h.memFault, hh), hh

	default:
		return nil, errors.Errorf("unknown hook type: %d", htype)
	}
	return hook, nil
}

func (h *Hooks) HookDel(hh Hook) error {
	info, ok := hh.(hinfo)
	if !ok {
		return errors.Errorf("not a hook: %T", hh)
	}
	switch info.Type() {
	case HOOK_CODE:
		var tmp []*codeHook
		for _, v := range h.code {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.code = tmp
	case HOOK_INTR:
		var tmp []*intrHook
		for _, v := range h.intr {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.intr = tmp
	case HOOK_MEM_READ, HOOK_MEM_WRITE, HOOK_MEM_READ | HOOK_MEM_WRITE:
		var tmp []*memHook
		for _, v := range h.mem {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.mem = tmp
	case HOOK_MEM_ERR:
		var tmp []*memFaultHook
		for _, v := range h.memFault {
			if v != hh {
				tmp = append(tmp, v)
			}
		}
		h.memFault = tmp
	}
	return nil
}

// HasCode is checked by the interpreter before building a code hook call.
func (h *Hooks) HasCode() bool {
	return len(h.code) > 0
}

func (h *Hooks) OnCode(addr uint64, size uint32) {
	for _, v := range h.code {
		if v.Contains(addr) {
			v.cb(h.cpu, addr, size)
		}
	}
}

func (h *Hooks) OnIntr(intno uint32) {
	for _, v := range h.intr {
		v.cb(h.cpu, intno)
	}
}

func (h *Hooks) OnMem(access int, addr uint64, size int, val int64) {
	for _, v := range h.mem {
		if v.htype&HOOK_MEM_READ == 0 && access == MEM_READ {
			continue
		}
		if v.htype&HOOK_MEM_WRITE == 0 && access == MEM_WRITE {
			continue
		}
		if v.Contains(addr) {
			v.cb(h.cpu, access, addr, size, val)
		}
	}
}

func (h *Hooks) OnFault(access int, addr uint64, size int, val int64) bool {
	for _, v := range h.memFault {
		if v.Contains(addr) {
			if v.cb(h.cpu, access, addr, size, val) {
				return true
			}
		}
	}
	return false
}
