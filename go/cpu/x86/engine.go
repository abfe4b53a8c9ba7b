package x86

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/models/cpu"
)

const (
	repNone = iota
	repE
	repNE
)

// fetch window: no valid instruction is longer than this
const windowSize = 16

type Builder struct {
	MemSize int
	Output  io.Writer
}

func (b *Builder) New() (cpu.Cpu, error) {
	return NewCpu(b.MemSize, b.Output)
}

type Cpu struct {
	*cpu.Hooks
	*cpu.Mem
	State

	Ports *Ports
	FPU   FPU
	// DMA is called once at the start of every Emulate batch
	DMA func()
	// diagnostics
	Output io.Writer

	tables *Tables

	// decode scratch, reset at every instruction boundary
	window      [windowSize]byte
	pos         int
	opEIP       uint32
	segOverride int
	rep         int
	lock        bool
	opsize      bool
	addrsize    bool
	prefixCount int
	o32, a32    bool

	modrm       uint8
	modrmLoaded bool
	rmIsReg     bool
	eaSeg       int
	ea          uint32
	// the effective address uses ESP as its base
	eaStack bool

	// set while an instruction runs: shields the next instruction from interrupts
	inhibit bool
	// the instruction delivered an interrupt, suppresses the single-step trap
	delivered bool

	irqs      []uint8
	handlers  map[uint8]InterruptHandler
	callbacks []Callback

	stop bool
}

// NewCpu creates a processor in real mode with memSize bytes of physical memory.
func NewCpu(memSize int, output io.Writer) (*Cpu, error) {
	if memSize <= 0 {
		return nil, errors.Errorf("invalid memory size: %d", memSize)
	}
	if output == nil {
		output = ioutil.Discard
	}
	c := &Cpu{
		Mem:      cpu.NewMem(memSize),
		Ports:    NewPorts(),
		Output:   output,
		tables:   DefaultTables(),
		handlers: make(map[uint8]InterruptHandler),
	}
	c.Hooks = cpu.NewHooks(c, c.Mem)
	c.Reset()
	return c, nil
}

func (c *Cpu) Reset() {
	c.State.Reset()
	c.irqs = nil
	c.resetPrefixes()
}

func (c *Cpu) resetPrefixes() {
	c.pos = 0
	c.segOverride = -1
	c.rep = repNone
	c.lock = false
	c.opsize = false
	c.addrsize = false
	c.prefixCount = 0
	c.modrmLoaded = false
}

// Emulate executes up to count instructions. It stops early when Stop is
// called, when the processor halts, or on a fatal error.
func (c *Cpu) Emulate(count int) (int, error) {
	c.stop = false
	if c.DMA != nil {
		c.DMA()
	}
	n := 0
	for n < count && !c.stop {
		if err := c.pollIRQ(); err != nil {
			return n, err
		}
		if c.Halted {
			break
		}
		if c.HasCode() {
			c.OnCode(uint64(c.PC()), 0)
			if c.stop {
				break
			}
		}
		if err := c.Step(); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Step executes exactly one instruction, including its prefixes.
// CPU exceptions are delivered to the guest; only fatal errors are returned.
func (c *Cpu) Step() error {
	c.resetPrefixes()
	c.opEIP = c.EIP
	tf := c.Flags&FlagTF != 0
	c.inhibit = false
	c.delivered = false

	f, err := catch(c.execute)
	if err != nil {
		c.EIP = c.rewindEIP()
		return err
	}
	if f != nil {
		c.inhibit = false
		if err := c.deliverFault(f); err != nil {
			return err
		}
	}
	// epilogue
	c.Shadow = c.inhibit
	c.inhibit = false
	c.segOverride = -1
	c.rep = repNone
	c.prefixCount = 0

	if (tf || c.TrapDeferred) && !c.delivered && f == nil {
		if c.Shadow {
			c.TrapDeferred = true
		} else {
			c.TrapDeferred = false
			return c.deliver(func() { c.interrupt(VecDB, false, false, 0) })
		}
	}
	return nil
}

func (c *Cpu) rewindEIP() uint32 {
	return (c.opEIP - uint32(c.prefixCount)) & c.ipMask()
}

func (c *Cpu) execute() {
	c.FetchCode(c.window[:])
	var b uint8
prefixes:
	for {
		b = c.fetch8()
		switch b {
		case 0x26:
			c.segOverride = ES
		case 0x2e:
			c.segOverride = CS
		case 0x36:
			c.segOverride = SS
		case 0x3e:
			c.segOverride = DS
		case 0x64:
			c.segOverride = FS
		case 0x65:
			c.segOverride = GS
		case 0x66:
			c.opsize = true
		case 0x67:
			c.addrsize = true
		case 0xf0:
			c.lock = true
		case 0xf2:
			c.rep = repNE
		case 0xf3:
			c.rep = repE
		default:
			break prefixes
		}
		c.prefixCount++
		c.opEIP = c.EIP
	}
	c.opEIP = (c.EIP - 1) & c.ipMask()
	op := uint16(b)
	if b == 0x0f {
		op = 0x100 | uint16(c.fetch8())
	}
	big := c.Big()
	c.o32 = big != c.opsize
	c.a32 = big != c.addrsize
	mode := 0
	if c.o32 {
		mode |= 1
	}
	if c.a32 {
		mode |= 2
	}
	s := c.tables.lookup(mode, op)
	fn := s.fn
	if s.group != nil {
		c.decodeModRM()
		fn = s.group[(c.modrm>>3)&7].fn
	}
	if fn == nil {
		ud()
	}
	fn(c)
}

// deliver runs an interrupt delivery outside of instruction execution.
// A fault raised while delivering becomes a double fault, and a fault while
// delivering that shuts the processor down.
func (c *Cpu) deliver(fn func()) error {
	f, err := catch(fn)
	if err != nil || f == nil {
		return err
	}
	f, err = catch(func() { c.exception(&Fault{Vector: VecDF, HasCode: true}) })
	if err != nil {
		return err
	}
	if f != nil {
		return ErrShutdown
	}
	return nil
}

func (c *Cpu) deliverFault(f *Fault) error {
	c.EIP = c.rewindEIP()
	return c.deliver(func() { c.exception(f) })
}

func (c *Cpu) exception(f *Fault) {
	c.interrupt(f.Vector, false, f.HasCode, f.Code)
}

func (c *Cpu) fetch8() uint8 {
	if c.pos >= windowSize {
		// instruction too long
		gp(0)
	}
	b := c.window[c.pos]
	c.pos++
	c.EIP = (c.EIP + 1) & c.ipMask()
	return b
}

func (c *Cpu) fetch16() uint16 {
	return uint16(c.fetch8()) | uint16(c.fetch8())<<8
}

func (c *Cpu) fetch32() uint32 {
	return uint32(c.fetch16()) | uint32(c.fetch16())<<16
}

// fetchImm reads an immediate of width w
func (c *Cpu) fetchImm(w int) uint32 {
	switch w {
	case 1:
		return uint32(c.fetch8())
	case 2:
		return uint32(c.fetch16())
	}
	return c.fetch32()
}

// fetchSimm8 reads a sign-extended 8-bit immediate
func (c *Cpu) fetchSimm8() uint32 {
	return uint32(int32(int8(c.fetch8())))
}

// opWidth is the width selected by the operand size attribute.
func (c *Cpu) opWidth() int {
	if c.o32 {
		return 4
	}
	return 2
}

func (c *Cpu) seg(def int) int {
	if c.segOverride >= 0 {
		return c.segOverride
	}
	return def
}

// decodeModRM reads the ModRM byte and any SIB byte and displacement after it.
// Handlers call it before reading immediates; it is a no-op the second time.
func (c *Cpu) decodeModRM() {
	if c.modrmLoaded {
		return
	}
	c.modrmLoaded = true
	c.eaStack = false
	m := c.fetch8()
	c.modrm = m
	mod, rm := m>>6, m&7
	c.rmIsReg = mod == 3
	if c.rmIsReg {
		return
	}
	if c.a32 {
		c.ea32(mod, rm)
	} else {
		c.ea16(mod, rm)
	}
}

func (c *Cpu) ea16(mod, rm uint8) {
	var ea uint32
	def := DS
	switch rm {
	case 0:
		ea = c.Regs[EBX] + c.Regs[ESI]
	case 1:
		ea = c.Regs[EBX] + c.Regs[EDI]
	case 2:
		ea, def = c.Regs[EBP]+c.Regs[ESI], SS
	case 3:
		ea, def = c.Regs[EBP]+c.Regs[EDI], SS
	case 4:
		ea = c.Regs[ESI]
	case 5:
		ea = c.Regs[EDI]
	case 6:
		if mod == 0 {
			ea = uint32(c.fetch16())
		} else {
			ea, def = c.Regs[EBP], SS
		}
	case 7:
		ea = c.Regs[EBX]
	}
	switch mod {
	case 1:
		ea += c.fetchSimm8()
	case 2:
		ea += uint32(c.fetch16())
	}
	c.ea = ea & 0xffff
	c.eaSeg = c.seg(def)
}

func (c *Cpu) ea32(mod, rm uint8) {
	var ea uint32
	def := DS
	if rm == 4 {
		sib := c.fetch8()
		scale, index, base := sib>>6, (sib>>3)&7, sib&7
		if base == 5 && mod == 0 {
			ea = c.fetch32()
		} else {
			ea = c.Regs[base]
			if base == ESP || base == EBP {
				def = SS
			}
			c.eaStack = base == ESP
		}
		if index != 4 {
			ea += c.Regs[index] << scale
		}
	} else if rm == 5 && mod == 0 {
		ea = c.fetch32()
	} else {
		ea = c.Regs[rm]
		if rm == EBP {
			def = SS
		}
	}
	switch mod {
	case 1:
		ea += c.fetchSimm8()
	case 2:
		ea += c.fetch32()
	}
	c.ea = ea
	c.eaSeg = c.seg(def)
}

func (c *Cpu) regField() int {
	return int(c.modrm>>3) & 7
}

// rm reads the r/m operand of width w.
func (c *Cpu) rm(w int) uint32 {
	c.decodeModRM()
	if c.rmIsReg {
		return c.reg(w, int(c.modrm&7))
	}
	return c.read(w, c.eaSeg, c.ea)
}

func (c *Cpu) setRM(w int, v uint32) {
	c.decodeModRM()
	if c.rmIsReg {
		c.setReg(w, int(c.modrm&7), v)
		return
	}
	c.write(w, c.eaSeg, c.ea, v)
}

// mustMem decodes ModRM and raises #UD for register forms of memory-only instructions.
func (c *Cpu) mustMem() {
	c.decodeModRM()
	if c.rmIsReg {
		ud()
	}
}

// eaPlus reads w bytes at the memory operand plus off.
func (c *Cpu) eaPlus(w int, off uint32) uint32 {
	return c.read(w, c.eaSeg, c.eaOffset(off))
}

func (c *Cpu) Stop() error {
	c.stop = true
	return nil
}

func (c *Cpu) Close() error {
	return nil
}

func (c *Cpu) Backend() interface{} {
	return c
}

// context is what ContextSave captures: the architectural state and pending IRQs.
type context struct {
	State
	irqs []uint8
}

func (c *Cpu) ContextSave(reuse interface{}) (interface{}, error) {
	ctx, ok := reuse.(*context)
	if !ok || ctx == nil {
		ctx = &context{}
	}
	ctx.State = c.State
	ctx.irqs = append(ctx.irqs[:0], c.irqs...)
	return ctx, nil
}

func (c *Cpu) ContextRestore(v interface{}) error {
	ctx, ok := v.(*context)
	if !ok {
		return errors.Errorf("invalid context type: %T", v)
	}
	c.State = ctx.State
	c.irqs = append(c.irqs[:0], ctx.irqs...)
	return nil
}

func (c *Cpu) String() string {
	return fmt.Sprintf("%04x:%08x cpl=%d flags=%08x", c.Seg[CS].Sel, c.EIP, c.CPL, c.Flags)
}
