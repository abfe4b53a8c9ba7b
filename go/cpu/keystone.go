//go:build unicorn

package cpu

import (
	"strings"

	ks "github.com/keystone-engine/keystone/bindings/go/keystone"
	"github.com/pkg/errors"
)

// Keystone assembles test fixtures.
type Keystone struct {
	Arch ks.Architecture
	Mode ks.Mode
	ks   *ks.Keystone
}

func NewKeystone16() *Keystone {
	return &Keystone{Arch: ks.ARCH_X86, Mode: ks.MODE_16}
}

func (k *Keystone) Open() (err error) {
	k.ks, err = ks.New(k.Arch, k.Mode)
	return errors.Wrap(err, "ks.New() failed")
}

// Asm assembles asm as if placed at addr. Lines may also be separated by ';'.
func (k *Keystone) Asm(asm string, addr uint64) ([]byte, error) {
	if k.ks == nil {
		if err := k.Open(); err != nil {
			return nil, err
		}
	}
	asm = strings.Replace(asm, "\n", ";", -1)
	out, _, ok := k.ks.Assemble(asm, addr)
	if !ok {
		return nil, errors.Wrapf(k.ks.LastError(), "ks.Assemble(%q) failed", asm)
	}
	return out, nil
}
