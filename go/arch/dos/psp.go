package dos

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/lunixbochs/struc"
)

// PSP is the 256 byte program segment prefix DOS builds in front of every program.
type PSP struct {
	CPMExit                     [2]uint8
	FirstFreeSegment            uint16
	Reserved1                   uint8
	CPMCall5Compat              [5]uint8
	OldTSRAddress               uint32
	OldBreakAddress             uint32
	CriticalErrorHandlerAddress uint32
	CallerPSPSegment            uint16
	JobFileTable                [20]uint8
	EnvironmentSegment          uint16
	INT21SSSP                   uint32
	JobFileTableSize            uint16
	JobFileTablePointer         uint32
	PreviousPSP                 uint32
	Reserved2                   uint32
	DOSVersion                  uint16
	Reserved3                   [14]uint8
	DOSFarCall                  [3]uint8
	Reserved4                   uint16
	ExtendedFCB1                [7]uint8
	FCB1                        [16]uint8
	FCB2                        [20]uint8
	CommandLineLength           uint8
	CommandLine                 [127]byte
}

const (
	pspSize = 0x100
	// longest command tail, not counting the CR terminator
	maxTail = 126
)

// NewPSP builds the prefix for a program at segment seg. top is the first
// segment past the program's memory.
func NewPSP(seg, top, env uint16, args []string) *PSP {
	p := &PSP{
		CPMExit:            [2]uint8{0xcd, 0x20},
		FirstFreeSegment:   top,
		CallerPSPSegment:   seg,
		EnvironmentSegment: env,
		JobFileTableSize:   20,
		// offset 0x18 of this PSP
		JobFileTablePointer: uint32(seg)<<16 | 0x18,
		PreviousPSP:         0xffffffff,
		DOSVersion:          dosVersion,
		DOSFarCall:          [3]uint8{0xcd, 0x21, 0xcb},
	}
	// stdin, stdout, stderr share the console; aux and prn follow
	copy(p.JobFileTable[:], []uint8{1, 1, 1, 0, 2})
	for i := 5; i < len(p.JobFileTable); i++ {
		p.JobFileTable[i] = 0xff
	}
	for i := range p.FCB1[1:12] {
		p.FCB1[1+i] = ' '
		p.FCB2[1+i] = ' '
	}
	p.SetTail(args)
	return p
}

// SetTail stores args as the command tail: a leading space, then the
// arguments, then CR.
func (p *PSP) SetTail(args []string) {
	tail := ""
	if len(args) > 0 {
		tail = " " + strings.Join(args, " ")
	}
	if len(tail) > maxTail {
		tail = tail[:maxTail]
	}
	p.CommandLine = [127]byte{}
	p.CommandLineLength = uint8(len(tail))
	copy(p.CommandLine[:], tail)
	p.CommandLine[len(tail)] = '\r'
}

func (p *PSP) Tail() string {
	return string(p.CommandLine[:p.CommandLineLength])
}

func (p *PSP) Pack() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.PackWithOrder(&buf, p, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnpackPSP(b []byte) (*PSP, error) {
	var p PSP
	if err := struc.UnpackWithOrder(bytes.NewReader(b), &p, binary.LittleEndian); err != nil {
		return nil, err
	}
	return &p, nil
}
