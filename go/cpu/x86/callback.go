package x86

import (
	"github.com/pkg/errors"
)

// Callback is host code run by the FE 38 iw instruction form. A returned
// error stops emulation and is returned from Emulate as is.
type Callback func(c *Cpu) error

// InterruptHandler services a real mode interrupt vector in host code.
type InterruptHandler func(c *Cpu) error

// interrupt stubs live in the BIOS ROM area, 8 bytes per vector
const (
	StubSegment = 0xf000
	StubOffset  = 0x1000
	stubSize    = 8
)

// RegisterCallback adds fn to the callback table and returns its number.
func (c *Cpu) RegisterCallback(fn Callback) uint16 {
	c.callbacks = append(c.callbacks, fn)
	return uint16(len(c.callbacks) - 1)
}

// CallbackStub returns the machine code that invokes callback n.
func CallbackStub(n uint16) []byte {
	return []byte{0xfe, 0x38, byte(n), byte(n >> 8)}
}

// InstallInterruptHandler registers h for vector and points the real mode
// vector table at a ROM stub that calls it and returns with IRET.
func (c *Cpu) InstallInterruptHandler(vector uint8, h InterruptHandler) {
	if _, ok := c.handlers[vector]; !ok {
		n := c.RegisterCallback(func(c *Cpu) error {
			if err := c.CallInterruptHandler(vector); err != nil {
				return err
			}
			c.mergeStackedFlags()
			return nil
		})
		off := uint32(StubOffset) + uint32(vector)*stubSize
		stub := append(CallbackStub(n), 0xcf)
		c.writeBlock(StubSegment<<4+off, stub)
		c.Mem.Write32(c.IDTR.Base+uint32(vector)*4, StubSegment<<16|off)
	}
	c.handlers[vector] = h
}

// CallInterruptHandler runs the host handler registered for vector.
func (c *Cpu) CallInterruptHandler(vector uint8) error {
	h, ok := c.handlers[vector]
	if !ok {
		return errors.Wrapf(ErrNoHandler, "int %#02x", vector)
	}
	return h(c)
}

// mergeStackedFlags copies the arithmetic flags a handler produced into the
// real mode interrupt frame so the stub's IRET returns them to the caller.
func (c *Cpu) mergeStackedFlags() {
	if c.Protected() && !c.V86() {
		return
	}
	addr := c.Seg[SS].Base + (c.Regs[ESP]+4)&0xffff
	v := uint32(c.Mem.Read16(addr))
	v = v&^flagsArith | c.Flags&flagsArith
	c.Mem.Write16(addr, uint16(v))
}

func (s *isa) callbackOps() {
	s.grp(0xfe, 7, MAll, "callback", func(c *Cpu) {
		if c.modrm != 0x38 {
			ud()
		}
		n := c.fetch16()
		if int(n) >= len(c.callbacks) {
			panic(fatal{errors.Wrapf(ErrNoHandler, "callback %d", n)})
		}
		if err := c.callbacks[n](c); err != nil {
			panic(fatal{err})
		}
	})
}
