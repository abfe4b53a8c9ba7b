package x86

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	VecDE = 0  // divide error
	VecDB = 1  // debug / single step
	VecBP = 3  // breakpoint
	VecOF = 4  // INTO
	VecBR = 5  // BOUND
	VecUD = 6  // invalid opcode
	VecNM = 7  // no math coprocessor
	VecDF = 8  // double fault
	VecTS = 10 // invalid TSS
	VecNP = 11 // segment not present
	VecSS = 12 // stack fault
	VecGP = 13 // general protection
	VecPF = 14
	VecAC = 17
)

var (
	// ErrNotImplemented is returned for architectural paths the engine does not model.
	ErrNotImplemented = errors.New("not implemented")
	// ErrNoHandler is returned when a host hook is invoked with nothing registered for it.
	ErrNoHandler = errors.New("no handler registered")
	// ErrShutdown is a triple fault.
	ErrShutdown = errors.New("triple fault, processor shut down")
)

// Fault is a CPU exception. It is raised by panicking with a *Fault inside the
// engine and recovered at the instruction boundary, where EIP is rewound and the
// vector is delivered.
type Fault struct {
	Vector  uint8
	Code    uint32
	HasCode bool
}

var faultNames = map[uint8]string{
	VecDE: "#DE", VecDB: "#DB", VecBP: "#BP", VecOF: "#OF", VecBR: "#BR",
	VecUD: "#UD", VecNM: "#NM", VecDF: "#DF", VecTS: "#TS", VecNP: "#NP",
	VecSS: "#SS", VecGP: "#GP", VecPF: "#PF", VecAC: "#AC",
}

func (f *Fault) Error() string {
	name, ok := faultNames[f.Vector]
	if !ok {
		name = fmt.Sprintf("vector %#x", f.Vector)
	}
	if f.HasCode {
		return fmt.Sprintf("%s(%#x)", name, f.Code)
	}
	return name
}

// hasErrorCode reports whether the architecture pushes an error code for vec.
func hasErrorCode(vec uint8) bool {
	switch vec {
	case VecDF, VecTS, VecNP, VecSS, VecGP, VecPF, VecAC:
		return true
	}
	return false
}

// fatal unwinds the engine with an error that is not delivered to the guest.
type fatal struct {
	err error
}

func throw(vec uint8) {
	panic(&Fault{Vector: vec, HasCode: hasErrorCode(vec)})
}

func throwCode(vec uint8, code uint32) {
	panic(&Fault{Vector: vec, Code: code, HasCode: true})
}

func gp(code uint16) { throwCode(VecGP, uint32(code)) }
func np(code uint16) { throwCode(VecNP, uint32(code)) }
func ts(code uint16) { throwCode(VecTS, uint32(code)) }
func ss(code uint16) { throwCode(VecSS, uint32(code)) }
func ud()            { throw(VecUD) }

func notImplemented(what string) {
	panic(fatal{errors.Wrap(ErrNotImplemented, what)})
}

// catch runs fn and converts an engine unwind into a return value.
func catch(fn func()) (f *Fault, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *Fault:
				f = v
			case fatal:
				err = v.err
			default:
				panic(r)
			}
		}
	}()
	fn()
	return nil, nil
}
