package models

type Ins interface {
	Addr() uint64
	Bytes() []byte
	Mnemonic() string
	OpStr() string
}

// Disassembler is optional; traces fall back to raw bytes without one.
type Disassembler interface {
	Dis(mem []byte, addr uint64) ([]Ins, error)
}
