package models

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/lunixbochs/dos86/go/models/cpu"
)

// StatusDiff tracks register values between calls to Changes.
type StatusDiff struct {
	Arch *Arch
	Cpu  cpu.Cpu

	oldRegs map[int]uint64
}

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

func colorPad(s, color string, pad int) string {
	length := len(s)
	s = color + s + ansi.Reset
	if length < pad {
		s = strings.Repeat(" ", pad-length) + s
	}
	return s
}

// ChangeMask is a run of hex digits that either all changed or all stayed.
type ChangeMask struct {
	Old, New string
	Changed  bool
}

type Change struct {
	Old, New uint64
	Enum     int
	Name     string
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

func (c *Change) Mask(digits int) []ChangeMask {
	hexFmt := fmt.Sprintf("%%0%dx", digits)
	s1, s2 := fmt.Sprintf(hexFmt, c.New), fmt.Sprintf(hexFmt, c.Old)
	if len(s2) > len(s1) {
		s2 = s2[len(s2)-len(s1):]
	} else if len(s2) < len(s1) {
		s2 = strings.Repeat("0", len(s1)-len(s2)) + s2
	}
	var masks []ChangeMask
	pos := 0
	for i := 1; i <= len(s1); i++ {
		if i < len(s1) && (s1[i] != s2[i]) == (s1[pos] != s2[pos]) {
			continue
		}
		masks = append(masks, ChangeMask{
			New:     s1[pos:i],
			Old:     s2[pos:i],
			Changed: s1[pos] != s2[pos],
		})
		pos = i
	}
	return masks
}

func (c *Change) String(digits int, color bool) string {
	hexFmt := fmt.Sprintf("%%0%dx", digits)
	name := fmt.Sprintf(" %6s 0x", c.Name)
	if !c.Changed() {
		return fmt.Sprintf(name+hexFmt, c.New)
	}
	if !color {
		return fmt.Sprintf("+"+name[1:]+hexFmt, c.New)
	}
	var out strings.Builder
	fmt.Fprintf(&out, " %s 0x", colorPad(c.Name, chNew, 6))
	for _, mask := range c.Mask(digits) {
		col := chSame
		if mask.Changed {
			col = chNew
		}
		out.WriteString(col + mask.New)
	}
	out.WriteString(ansi.Reset)
	return out.String()
}

type Changes struct {
	Digits  int
	Changes []*Change
}

// String lays the registers out in four columns, filled top to bottom.
func (cs *Changes) String(color bool) string {
	const cols = 4
	var out strings.Builder
	rows := (len(cs.Changes) + cols - 1) / cols
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			i := col*rows + r
			if i >= len(cs.Changes) {
				break
			}
			out.WriteString(cs.Changes[i].String(cs.Digits, color))
			out.WriteString(" ")
		}
		out.WriteString("\n")
	}
	return out.String()
}

func (cs *Changes) Count() int {
	n := 0
	for _, c := range cs.Changes {
		if c.Changed() {
			n++
		}
	}
	return n
}

func (cs *Changes) Find(enum int) *Change {
	for _, c := range cs.Changes {
		if c.Enum == enum {
			return c
		}
	}
	return nil
}

// Changes compares every register against the previous call. With
// onlyChanged, registers outside DefaultRegs and unchanged ones are left out.
func (s *StatusDiff) Changes(onlyChanged bool) *Changes {
	regs, _ := s.Arch.RegDump(s.Cpu)
	cs := make([]*Change, 0, len(regs))
	for _, reg := range regs {
		var old uint64
		if s.oldRegs != nil {
			old = s.oldRegs[reg.Enum]
		}
		change := &Change{Old: old, New: reg.Val, Enum: reg.Enum, Name: reg.Name}
		if onlyChanged && (!reg.Default || !change.Changed()) {
			continue
		}
		cs = append(cs, change)
	}
	s.oldRegs = make(map[int]uint64, len(regs))
	for _, r := range regs {
		s.oldRegs[r.Enum] = r.Val
	}
	return &Changes{Digits: s.Arch.Bits / 4, Changes: cs}
}
