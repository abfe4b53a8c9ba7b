package models

import (
	"fmt"
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"

	"github.com/lunixbochs/dos86/go/models/cpu"
)

type Reg struct {
	Enum    int
	Name    string
	Default bool
}

type RegVal struct {
	Reg
	Val uint64
}

type regList []Reg

func (r regList) Len() int           { return len(r) }
func (r regList) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
func (r regList) Less(i, j int) bool { return sortorder.NaturalLess(r[i].Name, r[j].Name) }

type Arch struct {
	Name string
	Bits int

	PC, SP int
	Regs   map[string]int
	// shown by the register trace and the console
	DefaultRegs []string

	OS map[string]*OS

	// sorted for RegDump
	regList regList
}

func (a *Arch) RegisterOS(os *OS) {
	if a.OS == nil {
		a.OS = make(map[string]*OS)
	}
	if _, ok := a.OS[os.Name]; ok {
		panic("Duplicate OS " + os.Name)
	}
	a.OS[os.Name] = os
}

func (a *Arch) sorted() regList {
	if a.regList == nil {
		def := make(map[string]bool, len(a.DefaultRegs))
		for _, name := range a.DefaultRegs {
			def[name] = true
		}
		rl := make(regList, 0, len(a.Regs))
		for name, enum := range a.Regs {
			rl = append(rl, Reg{enum, name, def[name]})
		}
		sort.Sort(rl)
		a.regList = rl
	}
	return a.regList
}

// RegNames returns register names in natural sort order.
func (a *Arch) RegNames() []string {
	rl := a.sorted()
	names := make([]string, len(rl))
	for i, r := range rl {
		names[i] = r.Name
	}
	return names
}

func (a *Arch) RegDump(c cpu.Cpu) ([]RegVal, error) {
	rl := a.sorted()
	ret := make([]RegVal, len(rl))
	for i, r := range rl {
		val, err := c.RegRead(r.Enum)
		if err != nil {
			return nil, err
		}
		ret[i] = RegVal{r, val}
	}
	return ret, nil
}

type OS struct {
	Name string
	Init func(Machine) error
}

func (o *OS) String() string {
	return fmt.Sprintf("<OS %s>", o.Name)
}
