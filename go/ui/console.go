package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	dos86 "github.com/lunixbochs/dos86/go"
	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models"
)

const consoleHelp = `s [n]           step n instructions
c               continue to the next breakpoint or exit
r               show all registers
x addr [len]    hexdump memory
b [addr]        set a breakpoint, or list them
bd addr         delete a breakpoint
int n           raise software interrupt n
q               quit

addresses are hex, either linear or seg:off
`

// Console runs debugger commands against a Machine.
type Console struct {
	m      *dos86.Machine
	w      io.Writer
	status *models.StatusDiff
}

func NewConsole(m *dos86.Machine, w io.Writer) *Console {
	status := &models.StatusDiff{Arch: m.Arch(), Cpu: m.Cpu()}
	status.Changes(true)
	return &Console{m: m, w: w, status: status}
}

func (c *Console) Prompt() string {
	cpu := c.m.Cpu()
	return fmt.Sprintf("%04x:%04x> ", cpu.Seg[x86.CS].Sel, cpu.EIP)
}

// Exec runs one command line. done is set once the program has ended, and
// err is then the reason it ended.
func (c *Console) Exec(line string) (done bool, err error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}
	switch args[0] {
	case "s", "step":
		n := 1
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v < 1 {
				return false, c.usage("step count must be a positive number")
			}
			n = v
		}
		if err := c.m.Step(n); err != nil {
			return c.ended(err)
		}
		c.where()
	case "c", "continue":
		if err := c.m.Continue(); err != nil {
			return c.ended(err)
		}
		c.where()
	case "r", "regs":
		c.status.Changes(false)
		c.m.PrintRegs()
	case "x":
		if len(args) < 2 {
			return false, c.usage("x addr [len]")
		}
		addr, err := c.parseAddr(args[1])
		if err != nil {
			return false, c.usage(err.Error())
		}
		size := uint64(0x40)
		if len(args) > 2 {
			if size, err = strconv.ParseUint(args[2], 0, 32); err != nil {
				return false, c.usage("bad length " + args[2])
			}
		}
		mem, err := c.m.Cpu().MemRead(uint64(addr), size)
		if err != nil {
			return false, c.usage(err.Error())
		}
		for _, line := range models.HexDump(uint64(addr), mem, 32) {
			fmt.Fprintln(c.w, line)
		}
	case "b", "break":
		if len(args) < 2 {
			for _, addr := range c.m.Breakpoints() {
				fmt.Fprintf(c.w, "  %#x\n", addr)
			}
			break
		}
		addr, err := c.parseAddr(args[1])
		if err != nil {
			return false, c.usage(err.Error())
		}
		if err := c.m.AddBreakpoint(addr); err != nil {
			return true, err
		}
	case "bd":
		if len(args) < 2 {
			return false, c.usage("bd addr")
		}
		addr, err := c.parseAddr(args[1])
		if err != nil {
			return false, c.usage(err.Error())
		}
		if !c.m.DelBreakpoint(addr) {
			fmt.Fprintf(c.w, "no breakpoint at %#x\n", addr)
		}
	case "int":
		if len(args) < 2 {
			return false, c.usage("int n")
		}
		vec, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 8)
		if err != nil {
			return false, c.usage("bad vector " + args[1])
		}
		if err := c.m.Cpu().RaiseInterrupt(uint8(vec), true); err != nil {
			return c.ended(err)
		}
		c.where()
	case "q", "quit":
		return true, nil
	case "h", "help", "?":
		fmt.Fprint(c.w, consoleHelp)
	default:
		return false, c.usage("unknown command " + args[0])
	}
	return false, nil
}

func (c *Console) usage(msg string) error {
	fmt.Fprintln(c.w, msg)
	return nil
}

// ended reports how the program stopped. Stops the user can continue past
// are printed and swallowed.
func (c *Console) ended(err error) (bool, error) {
	switch errors.Cause(err) {
	case dos86.ErrLimit, dos86.ErrHalted:
		fmt.Fprintf(c.w, "%s\n", err)
		c.where()
		return false, nil
	}
	if status, ok := errors.Cause(err).(models.ExitStatus); ok {
		fmt.Fprintf(c.w, "program exited with status %d\n", int(status))
	}
	return true, err
}

func (c *Console) where() {
	if cs := c.status.Changes(true); cs.Count() > 0 {
		fmt.Fprint(c.w, cs.String(c.m.Config().Color))
	}
	fmt.Fprintln(c.w, c.m.Disas())
}

func (c *Console) parseAddr(s string) (uint32, error) {
	hex := func(s string) (uint32, error) {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 32)
		return uint32(v), errors.Wrapf(err, "bad address %q", s)
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		seg, err := hex(s[:i])
		if err != nil {
			return 0, err
		}
		off, err := hex(s[i+1:])
		if err != nil {
			return 0, err
		}
		return seg<<4 + off, nil
	}
	return hex(s)
}
