package models

import (
	"github.com/lunixbochs/dos86/go/cpu/x86"
)

// Machine is what an OS personality sees of the running emulator.
type Machine interface {
	Arch() *Arch
	Cpu() *x86.Cpu
	Config() *Config
	Loader() Loader

	Printf(format string, a ...interface{})
	// Exit stops emulation; Run returns err.
	Exit(err error)
}
