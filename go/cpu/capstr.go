//go:build unicorn

package cpu

import (
	"bytes"
	"sync"

	cs "github.com/lunixbochs/capstr"
	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/models"
)

type disEntry struct {
	mem []byte
	dis []models.Ins
}

// Capstr disassembles the first instruction of each trace window. Results are
// cached by linear address and reused while the bytes there are unchanged.
type Capstr struct {
	Mode int

	cs    *cs.Engine
	mu    sync.Mutex
	cache map[uint64]*disEntry
}

func NewCapstr16() *Capstr {
	return &Capstr{Mode: cs.MODE_16}
}

func (c *Capstr) Open() (err error) {
	engine, err := cs.New(cs.ARCH_X86, c.Mode)
	if err == nil {
		c.cs = engine
		c.cache = make(map[uint64]*disEntry)
	}
	return errors.Wrap(err, "cs.New() failed")
}

func (c *Capstr) Dis(mem []byte, addr uint64) ([]models.Ins, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cs == nil {
		if err := c.Open(); err != nil {
			return nil, err
		}
	}
	if ent, ok := c.cache[addr]; ok && bytes.Equal(ent.mem, mem) {
		return ent.dis, nil
	}
	dis, err := c.cs.Dis(mem, addr, 1)
	if err != nil {
		return nil, errors.Wrap(err, "capstone disassembly failed")
	}
	ret := make([]models.Ins, len(dis))
	for i, v := range dis {
		ret[i] = v
	}
	c.cache[addr] = &disEntry{mem: append([]byte(nil), mem...), dis: ret}
	return ret, nil
}
