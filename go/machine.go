package dos86

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/arch"
	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models"
	"github.com/lunixbochs/dos86/go/models/cpu"
)

var (
	// ErrHalted is returned by Run when HLT can never be woken.
	ErrHalted = errors.New("cpu halted")
	// ErrLimit is returned by Run once Config.Limit instructions have executed.
	ErrLimit = errors.New("instruction limit reached")
)

type Machine struct {
	arch   *models.Arch
	os     *models.OS
	cpu    *x86.Cpu
	config *models.Config
	loader models.Loader

	// optional, used by the execution trace
	Dis models.Disassembler

	count  uint64
	exit   error
	paused bool

	breakpoints map[uint32]bool
	bpHook      bool
	skipBreak   bool

	trace *tracer
}

// NewMachine creates a processor sized by config, then lets the loader's OS
// map the program and set up its entry state.
func NewMachine(l models.Loader, config *models.Config) (*Machine, error) {
	config = config.Init()
	a, os, err := arch.GetArch(l.Arch(), l.OS())
	if err != nil {
		return nil, err
	}
	c, err := x86.NewCpu(config.MemSize, config.Output)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		arch:        a,
		os:          os,
		cpu:         c,
		config:      config,
		loader:      l,
		breakpoints: make(map[uint32]bool),
	}
	if os.Init != nil {
		if err := os.Init(m); err != nil {
			return nil, errors.Wrap(err, "failed to initialize "+os.Name)
		}
	}
	if config.Trace.Any() {
		m.trace = newTracer(m)
		if err := m.trace.install(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Machine) Arch() *models.Arch     { return m.arch }
func (m *Machine) Cpu() *x86.Cpu          { return m.cpu }
func (m *Machine) Config() *models.Config { return m.config }
func (m *Machine) Loader() models.Loader  { return m.loader }

// Count is the number of instructions executed so far.
func (m *Machine) Count() uint64 { return m.count }

func (m *Machine) Printf(format string, a ...interface{}) {
	fmt.Fprintf(m.config.Output, format, a...)
}

func (m *Machine) Exit(err error) {
	m.exit = err
	m.cpu.Stop()
}

// Pause stops emulation after the current instruction; Continue returns nil.
func (m *Machine) Pause() {
	m.paused = true
	m.cpu.Stop()
}

// Run executes the program until it exits. Program termination is returned
// as a models.ExitStatus.
func (m *Machine) Run() error {
	if m.config.SavePre != "" {
		return m.SaveFile(m.config.SavePre)
	}
	if m.config.Verbose {
		cs, ip := m.cpu.Seg[x86.CS].Sel, m.cpu.EIP
		m.Printf("[entry @ %04x:%04x]\n", cs, ip)
		m.PrintRegs()
		m.Printf("=====================================\n")
		m.Printf("==== Program output begins here. ====\n")
		m.Printf("=====================================\n")
	}
	err := m.Continue()
	if m.config.Verbose {
		m.Printf("[%d instructions]\n", m.count)
		m.PrintRegs()
	}
	if m.config.SavePost != "" {
		if serr := m.SaveFile(m.config.SavePost); serr != nil {
			m.Printf("%s\n", serr)
		}
	}
	return err
}

// Continue emulates in batches of Config.Batch instructions until the
// program exits, the processor stops for good, or Pause is called.
func (m *Machine) Continue() error {
	m.skipBreak = true
	for {
		n := m.config.Batch
		if lim := m.config.Limit; lim > 0 {
			if m.count >= lim {
				return ErrLimit
			}
			if rem := lim - m.count; rem < uint64(n) {
				n = int(rem)
			}
		}
		ran, err := m.cpu.Emulate(n)
		m.count += uint64(ran)
		if err != nil {
			return err
		}
		if m.exit != nil {
			err, m.exit = m.exit, nil
			return err
		}
		if m.paused {
			m.paused = false
			return nil
		}
		if m.cpu.Halted && (m.cpu.Flags&x86.FlagIF == 0 || m.cpu.PendingIRQs() == 0) {
			return errors.Wrapf(ErrHalted, "at %04x:%04x", m.cpu.Seg[x86.CS].Sel, m.cpu.EIP)
		}
	}
}

// Step executes n instructions without stopping at breakpoints.
func (m *Machine) Step(n int) error {
	for i := 0; i < n; i++ {
		if m.cpu.Halted {
			return errors.Wrapf(ErrHalted, "at %04x:%04x", m.cpu.Seg[x86.CS].Sel, m.cpu.EIP)
		}
		m.skipBreak = true
		ran, err := m.cpu.Emulate(1)
		m.count += uint64(ran)
		if err != nil {
			return err
		}
		if m.exit != nil {
			err, m.exit = m.exit, nil
			return err
		}
	}
	return nil
}

// AddBreakpoint pauses Continue before the instruction at linear address addr.
func (m *Machine) AddBreakpoint(addr uint32) error {
	if !m.bpHook {
		_, err := m.cpu.HookAdd(cpu.HOOK_CODE, m.checkBreak, 1, 0)
		if err != nil {
			return err
		}
		m.bpHook = true
	}
	m.breakpoints[addr] = true
	return nil
}

func (m *Machine) DelBreakpoint(addr uint32) bool {
	ok := m.breakpoints[addr]
	delete(m.breakpoints, addr)
	return ok
}

func (m *Machine) Breakpoints() []uint32 {
	out := make([]uint32, 0, len(m.breakpoints))
	for addr := range m.breakpoints {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Machine) checkBreak(_ cpu.Cpu, addr uint64, _ uint32) {
	// the instruction we resume from never re-triggers its own breakpoint
	if m.skipBreak {
		m.skipBreak = false
		return
	}
	if m.breakpoints[uint32(addr)] {
		m.Printf("breakpoint @ %04x:%04x\n", m.cpu.Seg[x86.CS].Sel, m.cpu.EIP)
		m.Pause()
	}
}

// PrintRegs writes every register to Config.Output.
func (m *Machine) PrintRegs() {
	status := &models.StatusDiff{Arch: m.arch, Cpu: m.cpu}
	m.Printf("%s", status.Changes(false).String(false))
}

// saveRegs lists every register enum; restoring in ascending order lets the
// segment caches override the bases derived from selectors.
func saveRegs() []int {
	regs := make([]int, x86.REG_END)
	for i := range regs {
		regs[i] = i
	}
	return regs
}

func (m *Machine) Save() ([]byte, error) {
	return models.Save(m.cpu, saveRegs(), uint64(m.cpu.Mem.Size()))
}

func (m *Machine) Restore(p []byte) error {
	return models.Restore(m.cpu, p)
}

func (m *Machine) SaveFile(path string) error {
	p, err := m.Save()
	if err != nil {
		return err
	}
	return errors.Wrap(ioutil.WriteFile(path, p, 0644), "failed to write savestate")
}

func (m *Machine) LoadFile(path string) error {
	p, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read savestate")
	}
	return m.Restore(p)
}
