package dos86

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models"
	"github.com/lunixbochs/dos86/go/models/cpu"
)

// tracer prints the execution, register, memory and interrupt traces
// selected by Config.Trace.
type tracer struct {
	m      *Machine
	status *models.StatusDiff
	loop   *models.LoopDetect
}

func newTracer(m *Machine) *tracer {
	return &tracer{m: m}
}

func (t *tracer) install() error {
	c, tc := t.m.cpu, t.m.config.Trace
	if tc.Exec || tc.Reg {
		t.status = &models.StatusDiff{Arch: t.m.arch, Cpu: c}
		t.status.Changes(true)
		if tc.Loop > 0 {
			t.loop = models.NewLoopDetect(tc.Loop)
		}
		if _, err := c.HookAdd(cpu.HOOK_CODE, t.onCode, 1, 0); err != nil {
			return err
		}
	}
	if tc.Mem {
		if _, err := c.HookAdd(cpu.HOOK_MEM_READ|cpu.HOOK_MEM_WRITE, t.onMem, 1, 0); err != nil {
			return err
		}
	}
	if tc.Intr {
		if _, err := c.HookAdd(cpu.HOOK_INTR, t.onIntr, 1, 0); err != nil {
			return err
		}
	}
	return nil
}

func (t *tracer) onCode(_ cpu.Cpu, addr uint64, _ uint32) {
	if t.loop != nil {
		looping, loops := t.loop.Update(addr)
		if looping {
			return
		}
		if loops > 0 {
			t.m.Printf("  ... loop x%d\n", loops)
		}
	}
	tc := t.m.config.Trace
	if tc.Reg {
		if cs := t.status.Changes(true); cs.Count() > 0 {
			t.m.Printf("%s", cs.String(t.m.config.Color))
		}
	}
	if tc.Exec {
		t.m.Printf("%s\n", t.m.Disas())
	}
}

func (t *tracer) onMem(_ cpu.Cpu, access int, addr uint64, size int, val int64) {
	op := "MEM_READ "
	if access == cpu.MEM_WRITE {
		op = "MEM_WRITE"
	}
	t.m.Printf("%s %#06x [%d] %#x\n", op, addr, size, uint64(val)&(1<<(uint(size)*8)-1))
}

func (t *tracer) onIntr(_ cpu.Cpu, vec uint32) {
	c := t.m.cpu
	t.m.Printf("[int %02x] from %04x:%04x ax=%04x\n", vec, c.Seg[x86.CS].Sel, c.EIP, c.Reg16(x86.EAX))
}

// Disas describes the instruction at CS:EIP.
func (m *Machine) Disas() string {
	c := m.cpu
	addr := uint64(c.PC())
	var window [16]byte
	c.FetchCode(window[:])
	pos := fmt.Sprintf("%04x:%04x", c.Seg[x86.CS].Sel, c.EIP)
	if c.Big() {
		pos = fmt.Sprintf("%04x:%08x", c.Seg[x86.CS].Sel, c.EIP)
	}
	if m.Dis != nil {
		if dis, err := m.Dis.Dis(window[:], addr); err == nil && len(dis) > 0 {
			d := dis[0]
			return fmt.Sprintf("%s  %-16s %s %s", pos, hex.EncodeToString(d.Bytes()), d.Mnemonic(), d.OpStr())
		}
	}
	return pos + "  " + mnemonic(c.Big(), window[:])
}

// mnemonic names the instruction at the start of p from the dispatch tables.
func mnemonic(big bool, p []byte) string {
	o32, a32 := big, big
	var prefixes []string
	i := 0
loop:
	for ; i < len(p); i++ {
		switch p[i] {
		case 0x66:
			o32 = !big
		case 0x67:
			a32 = !big
		case 0xf0:
			prefixes = append(prefixes, "lock")
		case 0xf2:
			prefixes = append(prefixes, "repne")
		case 0xf3:
			prefixes = append(prefixes, "rep")
		case 0x26, 0x2e, 0x36, 0x3e, 0x64, 0x65:
		default:
			break loop
		}
	}
	if i > len(p)-3 {
		return "(bad)"
	}
	op := uint16(p[i])
	i++
	if op == 0x0f {
		op = 0x100 | uint16(p[i])
		i++
	}
	mode := 0
	if o32 {
		mode |= 1
	}
	if a32 {
		mode |= 2
	}
	name := x86.DefaultTables().Name(mode, op, int(p[i]>>3&7))
	if name == "" {
		name = "(bad)"
	}
	return strings.Join(append(prefixes, name), " ")
}
