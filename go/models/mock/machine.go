package mock

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models"
)

// Machine is a models.Machine that buffers all output.
type Machine struct {
	Stdout bytes.Buffer
	Output bytes.Buffer
	Err    error

	arch   *models.Arch
	cpu    *x86.Cpu
	config *models.Config
	loader models.Loader
}

func NewMachine(arch *models.Arch, l models.Loader) (*Machine, error) {
	m := &Machine{arch: arch, loader: l}
	m.config = (&models.Config{Output: &m.Output, Stdout: &m.Stdout}).Init()
	c, err := x86.NewCpu(m.config.MemSize, &m.Output)
	if err != nil {
		return nil, err
	}
	m.cpu = c
	return m, nil
}

func (m *Machine) Arch() *models.Arch     { return m.arch }
func (m *Machine) Cpu() *x86.Cpu          { return m.cpu }
func (m *Machine) Config() *models.Config { return m.config }
func (m *Machine) Loader() models.Loader  { return m.loader }

func (m *Machine) Printf(f string, a ...interface{}) {
	fmt.Fprintf(&m.Output, f, a...)
}

func (m *Machine) Exit(err error) {
	m.Err = err
	m.cpu.Stop()
}

// Run emulates until the program exits or n instructions have run.
func (m *Machine) Run(n int) error {
	_, err := m.cpu.Emulate(n)
	if err != nil {
		return err
	}
	return m.Err
}
