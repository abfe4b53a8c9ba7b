package x86

import (
	"math/bits"
)

const (
	btTest = iota
	btSet
	btReset
	btComplement
)

// bitTest implements BT, BTS, BTR and BTC. With a register bit offset and a
// memory operand the offset is signed and may address outside the operand.
func (c *Cpu) bitTest(op, w int, bit uint32, regOffset bool) {
	c.decodeModRM()
	nbits := uint32(w * 8)
	var v uint32
	var off uint32
	if c.rmIsReg {
		v = c.reg(w, int(c.modrm&7))
	} else {
		off = c.ea
		if regOffset {
			shift := uint(bits.TrailingZeros32(nbits))
			off += uint32(int32(signExtend(bit, w))>>shift) * uint32(w)
			if !c.a32 {
				off &= 0xffff
			}
		}
		v = c.read(w, c.eaSeg, off)
	}
	mask := uint32(1) << (bit & (nbits - 1))
	c.setFlag(FlagCF, v&mask != 0)
	switch op {
	case btTest:
		return
	case btSet:
		v |= mask
	case btReset:
		v &^= mask
	case btComplement:
		v ^= mask
	}
	if c.rmIsReg {
		c.setReg(w, int(c.modrm&7), v)
	} else {
		c.write(w, c.eaSeg, off, v)
	}
}

func (s *isa) bitOps() {
	names := []string{"bt", "bts", "btr", "btc"}
	for i, op := range []uint16{0x0fa3, 0x0fab, 0x0fb3, 0x0fbb} {
		kind := i
		s.ov(op, names[i], func(w int) Handler {
			return func(c *Cpu) {
				c.decodeModRM()
				c.bitTest(kind, w, c.reg(w, c.regField()), true)
			}
		})
		s.ovGrp(0x0fba, 4+i, names[i], func(w int) Handler {
			return func(c *Cpu) {
				c.decodeModRM()
				c.bitTest(kind, w, uint32(c.fetch8()), false)
			}
		})
	}
	s.ov(0x0fbc, "bsf", func(w int) Handler {
		return func(c *Cpu) {
			src := c.rm(w)
			if src == 0 {
				c.setFlag(FlagZF, true)
				return
			}
			c.setFlag(FlagZF, false)
			c.setReg(w, c.regField(), uint32(bits.TrailingZeros32(src)))
		}
	})
	s.ov(0x0fbd, "bsr", func(w int) Handler {
		return func(c *Cpu) {
			src := c.rm(w)
			if src == 0 {
				c.setFlag(FlagZF, true)
				return
			}
			c.setFlag(FlagZF, false)
			c.setReg(w, c.regField(), uint32(31-bits.LeadingZeros32(src)))
		}
	})
}
