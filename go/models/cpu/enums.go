package cpu

// hook enums keep Unicorn's numbering so backends can share them
const (
	// hook delivered interrupts (vector)
	HOOK_INTR = 1

	// hook each executed instruction
	HOOK_CODE = 4

	// hook (before) each memory read/write
	HOOK_MEM_READ  = 1024
	HOOK_MEM_WRITE = 2048

	// hook out-of-range memory accesses
	HOOK_MEM_ERR = 1008
)

// these errors are used for HOOK_MEM_ERR
const (
	MEM_READ_UNMAPPED  = 19
	MEM_WRITE_UNMAPPED = 20
	MEM_FETCH_UNMAPPED = 21
)

// these constants are used in a hook to specify the type of memory access
const (
	MEM_WRITE = 16
	MEM_READ  = 17
	MEM_FETCH = 18
)
