package dos

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models"
)

// conventional memory layout
const (
	EnvSegment = 0x0070
	PSPSegment = 0x0080
	MemTop     = 0xa000

	// AL=major AH=minor
	dosVersion = 0x0007

	// system control port A, bit 1 gates address line 20
	portSysCtrlA = 0x92
	a20Gate      = 0x02
)

var environment = []string{"PATH=C:\\", "COMSPEC=C:\\COMMAND.COM"}

var dosCallNames = map[uint8]string{
	0x00: "terminate",
	0x02: "char_out",
	0x06: "direct_console_io",
	0x09: "display",
	0x19: "get_drive",
	0x25: "set_vector",
	0x30: "get_version",
	0x35: "get_vector",
	0x4a: "resize_block",
	0x4c: "terminate_with_code",
	0x62: "get_psp",
}

type Kernel struct {
	M   models.Machine
	PSP uint16
}

func NewKernel(m models.Machine, psp uint16) *Kernel {
	return &Kernel{M: m, PSP: psp}
}

// Install points INT 10h, 20h and 21h at the kernel and wires the A20 gate.
func (k *Kernel) Install(c *x86.Cpu) {
	c.InstallInterruptHandler(0x10, k.Video)
	c.InstallInterruptHandler(0x20, k.Terminate)
	c.InstallInterruptHandler(0x21, k.Dos)
	c.Ports.Register8(portSysCtrlA, func(uint16) uint8 {
		if c.Mem.A20() {
			return a20Gate
		}
		return 0
	}, func(_ uint16, v uint8) {
		c.Mem.SetA20(v&a20Gate != 0)
	})
}

func (k *Kernel) write(p ...byte) {
	k.M.Config().Stdout.Write(p)
}

func (k *Kernel) trace(format string, a ...interface{}) {
	if k.M.Config().Trace.Intr {
		k.M.Printf("[dos] "+format+"\n", a...)
	}
}

// Terminate ends the program with status 0.
func (k *Kernel) Terminate(c *x86.Cpu) error {
	return k.exit(0)
}

func (k *Kernel) exit(code uint8) error {
	k.trace("exit %d", code)
	return models.ExitStatus(code)
}

// Dos services INT 21h by the function number in AH.
func (k *Kernel) Dos(c *x86.Cpu) error {
	ah := c.Reg8(x86.AH)
	if name, ok := dosCallNames[ah]; ok {
		k.trace("int 21 ah=%02x %s", ah, name)
	}
	switch ah {
	case 0x00:
		return k.exit(0)
	case 0x02:
		dl := c.Reg8(x86.DL)
		k.write(dl)
		c.SetReg8(x86.AL, dl)
	case 0x06:
		dl := c.Reg8(x86.DL)
		if dl == 0xff {
			// no console input
			c.SetReg8(x86.AL, 0)
			c.SetFlag(x86.FlagZF, true)
			break
		}
		k.write(dl)
		c.SetReg8(x86.AL, dl)
	case 0x09:
		s := c.ReadString(x86.DS, uint32(c.Reg16(x86.EDX)), '$', 0x10000)
		k.trace("display %s", models.Repr(s, 32))
		k.write(s...)
		c.SetReg8(x86.AL, '$')
	case 0x19:
		// C:
		c.SetReg8(x86.AL, 2)
	case 0x25:
		vec := uint32(c.Reg8(x86.AL))
		c.Mem.Write32(vec*4, uint32(c.Seg[x86.DS].Sel)<<16|uint32(c.Reg16(x86.EDX)))
	case 0x30:
		c.SetReg16(x86.EAX, dosVersion)
		c.SetReg16(x86.EBX, 0)
		c.SetReg16(x86.ECX, 0)
	case 0x35:
		v := c.Mem.Read32(uint32(c.Reg8(x86.AL)) * 4)
		if err := c.LoadSegment(x86.ES, uint16(v>>16)); err != nil {
			return err
		}
		c.SetReg16(x86.EBX, uint16(v))
	case 0x4a:
		k.resize(c)
	case 0x4c:
		return k.exit(c.Reg8(x86.AL))
	case 0x62:
		c.SetReg16(x86.EBX, k.PSP)
	default:
		k.M.Printf("unsupported DOS call AH=%02xh at %04x:%04x\n", ah, c.Seg[x86.CS].Sel, c.EIP)
		c.SetReg16(x86.EAX, 1)
		c.SetFlag(x86.FlagCF, true)
	}
	return nil
}

// resize grows or shrinks the program's own block; everything up to MemTop belongs to it.
func (k *Kernel) resize(c *x86.Cpu) {
	seg := c.Seg[x86.ES].Sel
	want := uint32(c.Reg16(x86.EBX))
	if seg != k.PSP {
		// invalid block address
		c.SetReg16(x86.EAX, 9)
		c.SetFlag(x86.FlagCF, true)
		return
	}
	avail := uint32(MemTop - k.PSP)
	if want > avail {
		c.SetReg16(x86.EAX, 8)
		c.SetReg16(x86.EBX, uint16(avail))
		c.SetFlag(x86.FlagCF, true)
		return
	}
	c.SetFlag(x86.FlagCF, false)
}

// Video implements the BIOS teletype subset of INT 10h.
func (k *Kernel) Video(c *x86.Cpu) error {
	switch ah := c.Reg8(x86.AH); ah {
	case 0x0e:
		k.write(c.Reg8(x86.AL))
	case 0x0f:
		// 80x25 color text, page 0
		c.SetReg8(x86.AL, 3)
		c.SetReg8(x86.AH, 80)
		c.SetReg8(x86.BH, 0)
	default:
		if k.M.Config().Verbose {
			k.M.Printf("ignored video call AH=%02xh\n", ah)
		}
	}
	return nil
}

func envBlock() []byte {
	var env []byte
	for _, s := range environment {
		env = append(env, s...)
		env = append(env, 0)
	}
	// end of strings, then no program path
	return append(env, 0, 0, 0)
}

// DosInit loads the program image above a fresh PSP, installs the kernel and
// sets up the entry registers the way DOS leaves them.
func DosInit(m models.Machine) error {
	c, l := m.Cpu(), m.Loader()
	psp := uint16(PSPSegment)
	load := psp + pspSize>>4

	min, _ := l.Alloc()
	need := uint32(load)<<4 + l.Size() + uint32(min)<<4
	if need > MemTop<<4 || need > uint32(c.Mem.Size()) {
		return errors.Errorf("program needs %#x bytes of memory, only %#x available", need, MemTop<<4)
	}

	segs, err := l.Segments()
	if err != nil {
		return errors.Wrap(err, "failed to get segments from loader")
	}
	base := uint64(load) << 4
	for _, seg := range segs {
		data, err := seg.Data()
		if err != nil {
			return errors.Wrap(err, "failed to read segment data")
		}
		if err := c.MemWrite(base+uint64(seg.Off), data); err != nil {
			return errors.Wrap(err, "failed to write segment data")
		}
	}
	for _, r := range l.Relocs() {
		addr := uint32(base) + r
		c.Mem.Write16(addr, c.Mem.Read16(addr)+load)
	}

	if err := c.MemWrite(EnvSegment<<4, envBlock()); err != nil {
		return errors.Wrap(err, "failed to write environment")
	}
	p, err := NewPSP(psp, MemTop, EnvSegment, m.Config().Args).Pack()
	if err != nil {
		return errors.Wrap(err, "failed to pack PSP")
	}
	if err := c.MemWrite(uint64(psp)<<4, p); err != nil {
		return errors.Wrap(err, "failed to write PSP")
	}

	NewKernel(m, psp).Install(c)

	cs, ip := l.Entry()
	ss, sp := l.Stack()
	segRegs := []struct {
		seg int
		sel uint16
	}{{x86.CS, load + cs}, {x86.SS, load + ss}, {x86.DS, psp}, {x86.ES, psp}}
	for _, s := range segRegs {
		if err := c.LoadSegment(s.seg, s.sel); err != nil {
			return errors.Wrapf(err, "failed to load segment %#x", s.sel)
		}
	}
	c.EIP = uint32(ip)
	c.Regs = [8]uint32{}
	c.SetReg16(x86.ESP, sp)
	if l.Type() == "com" {
		// RET from the program lands on the INT 20h at PSP:0000
		c.Mem.Write16(c.Seg[x86.SS].Base+uint32(sp), 0)
	}
	c.SetReg16(x86.ECX, 0xff)
	c.SetReg16(x86.EDX, psp)
	c.SetReg16(x86.ESI, ip)
	c.SetReg16(x86.EDI, sp)
	c.SetReg16(x86.EBP, 0x091c)
	c.SetFlag(x86.FlagIF, true)
	if m.Config().Verbose {
		m.Printf("[dos] psp %04x, entry %04x:%04x, stack %04x:%04x\n", psp, load+cs, ip, load+ss, sp)
	}
	return nil
}
