package cpu

// This interface abstracts the functionality a host requires from a CPU emulator.
type Cpu interface {
	// memory IO (physical addresses)
	MemRead(addr, size uint64) ([]byte, error)
	MemReadInto(p []byte, addr uint64) error
	MemWrite(addr uint64, p []byte) error

	// register IO
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, val uint64) error

	// execution
	// Emulate runs up to count instructions and returns how many were executed.
	Emulate(count int) (int, error)
	Stop() error

	// hooks
	HookAdd(htype int, cb interface{}, begin, end uint64, extra ...int) (Hook, error)
	HookDel(hook Hook) error

	// save/restore entire CPU state
	ContextSave(reuse interface{}) (interface{}, error)
	ContextRestore(ctx interface{}) error

	// cleanup
	Close() error
}

// Builder creates a fresh Cpu.
type Builder interface {
	New() (Cpu, error)
}
