package x86

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

type Handler func(c *Cpu)

// size modes: operand size, address size
const (
	M16_16 = 1 << iota
	M32_16
	M16_32
	M32_32

	MAll = M16_16 | M32_16 | M16_32 | M32_32
	// operand size
	O16 = M16_16 | M16_32
	O32 = M32_16 | M32_32
)

var modeNames = []string{"o16/a16", "o32/a16", "o16/a32", "o32/a32"}

// Instruction is one dispatch table registration.
// Op is the opcode byte, or 0x0fxx for the two-byte map.
// Reg is the ModRM reg field selecting a group member, or -1.
type Instruction struct {
	Op    uint16
	Reg   int
	Modes uint8
	Name  string
	Fn    Handler
}

type slot struct {
	fn    Handler
	name  string
	group *[8]slot
}

type table struct {
	one [256]slot
	two [256]slot
}

// Tables holds one table per size mode.
type Tables [4]table

func (t *Tables) lookup(mode int, op uint16) *slot {
	if op > 0xff {
		return &t[mode].two[op&0xff]
	}
	return &t[mode].one[op]
}

// Name returns the registered mnemonic for a size mode (0-3), opcode and ModRM reg.
func (t *Tables) Name(mode int, op uint16, reg int) string {
	s := t.lookup(mode, op)
	if s.group != nil && reg >= 0 && reg < 8 {
		return s.group[reg].name
	}
	return s.name
}

func (ins *Instruction) String() string {
	if ins.Reg >= 0 {
		return fmt.Sprintf("%s (%#x /%d)", ins.Name, ins.Op, ins.Reg)
	}
	return fmt.Sprintf("%s (%#x)", ins.Name, ins.Op)
}

// BuildTables builds the four dispatch tables. Registering two instructions for
// the same slot in the same size mode is an error.
func BuildTables(set []Instruction) (*Tables, error) {
	t := &Tables{}
	owners := make(map[string]*Instruction)
	for i := range set {
		ins := &set[i]
		if (ins.Op > 0xff && ins.Op&0xff00 != 0x0f00) || ins.Reg > 7 || ins.Fn == nil {
			return nil, errors.Errorf("invalid registration: %s", ins)
		}
		if ins.Op == 0x0f {
			return nil, errors.Errorf("%s: 0x0f is the two-byte escape", ins)
		}
		for mode := 0; mode < 4; mode++ {
			if ins.Modes&(1<<uint(mode)) == 0 {
				continue
			}
			s := t.lookup(mode, ins.Op)
			key := fmt.Sprintf("%d/%x", mode, ins.Op)
			if ins.Reg < 0 {
				if s.fn != nil || s.group != nil {
					return nil, errors.Errorf("%s collides with %s in %s", ins, owners[key], modeNames[mode])
				}
				s.fn, s.name = ins.Fn, ins.Name
				owners[key] = ins
				continue
			}
			if s.fn != nil {
				return nil, errors.Errorf("%s collides with %s in %s", ins, owners[key], modeNames[mode])
			}
			if s.group == nil {
				s.group = new([8]slot)
			}
			g := &s.group[ins.Reg]
			gkey := fmt.Sprintf("%s/%d", key, ins.Reg)
			if g.fn != nil {
				return nil, errors.Errorf("%s collides with %s in %s", ins, owners[gkey], modeNames[mode])
			}
			g.fn, g.name = ins.Fn, ins.Name
			owners[gkey] = ins
			owners[key] = ins
		}
	}
	return t, nil
}

var (
	defaultTables     *Tables
	defaultTablesOnce sync.Once
)

// DefaultTables returns the tables for the full instruction set, built once.
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		t, err := BuildTables(InstructionSet())
		if err != nil {
			panic(err)
		}
		defaultTables = t
	})
	return defaultTables
}

// isa accumulates registrations
type isa []Instruction

func (s *isa) add(op uint16, modes uint8, name string, fn Handler) {
	*s = append(*s, Instruction{Op: op, Reg: -1, Modes: modes, Name: name, Fn: fn})
}

func (s *isa) grp(op uint16, reg int, modes uint8, name string, fn Handler) {
	*s = append(*s, Instruction{Op: op, Reg: reg, Modes: modes, Name: name, Fn: fn})
}

// ov registers one handler per operand size, built for width 2 and 4.
// The address size modes of each operand size share the handler.
func (s *isa) ov(op uint16, name string, mk func(w int) Handler) {
	s.add(op, O16, name, mk(2))
	s.add(op, O32, name, mk(4))
}

func (s *isa) ovGrp(op uint16, reg int, name string, mk func(w int) Handler) {
	s.grp(op, reg, O16, name, mk(2))
	s.grp(op, reg, O32, name, mk(4))
}

// InstructionSet returns every registration of the engine.
func InstructionSet() []Instruction {
	var s isa
	s.aluOps()
	s.movOps()
	s.stackOps()
	s.branchOps()
	s.stringOps()
	s.shiftOps()
	s.bitOps()
	s.bcdOps()
	s.systemOps()
	s.ioOps()
	s.fpuOps()
	s.callbackOps()
	return s
}
