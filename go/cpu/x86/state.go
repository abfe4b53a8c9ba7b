package x86

// general purpose registers, in ModRM encoding order
const (
	EAX = iota
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
)

// 8-bit register views, in ModRM encoding order
const (
	AL = iota
	CL
	DL
	BL
	AH
	CH
	DH
	BH
)

// segment registers, in ModRM sreg encoding order
const (
	ES = iota
	CS
	SS
	DS
	FS
	GS
)

const (
	FlagCF   = 1 << 0
	FlagPF   = 1 << 2
	FlagAF   = 1 << 4
	FlagZF   = 1 << 6
	FlagSF   = 1 << 7
	FlagTF   = 1 << 8
	FlagIF   = 1 << 9
	FlagDF   = 1 << 10
	FlagOF   = 1 << 11
	FlagIOPL = 3 << 12
	FlagNT   = 1 << 14
	FlagRF   = 1 << 16
	FlagVM   = 1 << 17
	FlagAC   = 1 << 18
	FlagID   = 1 << 21

	// bits that exist; everything else reads as zero except bit 1
	flagsValid = 0x00277fd5
	flagsFixed = 0x2

	flagsArith = FlagCF | FlagPF | FlagAF | FlagZF | FlagSF | FlagOF
)

const (
	CR0_PE = 1 << 0
	CR0_MP = 1 << 1
	CR0_EM = 1 << 2
	CR0_TS = 1 << 3
	CR0_ET = 1 << 4
	CR0_PG = 1 << 31
)

// SegCache is a segment register with its hidden descriptor cache.
type SegCache struct {
	Sel    uint16
	Base   uint32
	Limit  uint32
	Access uint8
	// default operand/stack size is 32 bits
	Big bool
	// false after a null selector was loaded in protected mode
	Valid bool
}

type TableReg struct {
	Base  uint32
	Limit uint32
}

// State is the architectural processor state.
// Everything here survives between instructions; decode scratch lives on Cpu.
type State struct {
	Regs  [8]uint32
	EIP   uint32
	Flags uint32

	Seg  [6]SegCache
	LDTR SegCache
	TR   SegCache
	GDTR TableReg
	IDTR TableReg

	CPL uint8
	CR0 uint32
	CR2 uint32
	CR3 uint32
	DR  [8]uint32

	// interrupts are not recognized until the instruction after the one that set this
	Shadow bool
	// single-step trap held back by Shadow
	TrapDeferred bool
	Halted       bool
}

func (s *State) Reset() {
	*s = State{}
	for i := range s.Seg {
		s.Seg[i] = SegCache{Limit: 0xffff, Access: 0x93, Valid: true}
	}
	s.Seg[CS].Access = 0x9b
	s.LDTR = SegCache{Limit: 0xffff, Access: 0x82}
	s.TR = SegCache{Limit: 0xffff, Access: 0x8b}
	s.GDTR = TableReg{Limit: 0xffff}
	s.IDTR = TableReg{Limit: 0x3ff}
	s.Flags = flagsFixed
	s.CR0 = CR0_ET
}

func (s *State) Protected() bool {
	return s.CR0&CR0_PE != 0
}

func (s *State) V86() bool {
	return s.Flags&FlagVM != 0
}

// RealLike is true when segment registers are loaded by shifting the selector.
func (s *State) RealLike() bool {
	return s.CR0&CR0_PE == 0 || s.Flags&FlagVM != 0
}

func (s *State) IOPL() uint8 {
	return uint8(s.Flags>>12) & 3
}

// Big is the default operand and address size of the current code segment.
func (s *State) Big() bool {
	return s.Seg[CS].Big
}

func (s *State) StackBig() bool {
	return s.Seg[SS].Big
}

func (s *State) ipMask() uint32 {
	if s.Seg[CS].Big {
		return 0xffffffff
	}
	return 0xffff
}

func (s *State) spMask() uint32 {
	if s.Seg[SS].Big {
		return 0xffffffff
	}
	return 0xffff
}

// Linear returns the linear address of seg:off without any checks.
func (s *State) Linear(seg int, off uint32) uint32 {
	return s.Seg[seg].Base + off
}

// PC is the linear address of the next instruction.
func (s *State) PC() uint32 {
	return s.Seg[CS].Base + s.EIP
}
