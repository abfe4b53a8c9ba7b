package models

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/models/cpu"
)

// savestate format, big endian:
//
// file header
// [4]byte("D86S")
// uint32(savestate format version)
// uint32(crc32 of compressed data)
// uint32(length of compressed data)
// remainder is snappy-compressed
//
// -- uncompressed data start --
// registers
// uint32(number of registers), 1..num: uint32(register enum)
// uint32(number of registers), 1..num: uint64(register value)
//
// memory
// uint32(physical memory size), <raw memory bytes>

const (
	saveMagic   = "D86S"
	saveVersion = 1
)

var ErrBadSavestate = errors.New("invalid savestate")

type saveHeader struct {
	Magic   [4]byte
	Version uint32
	CRC     uint32
	Length  uint32
}

type saveBody struct {
	EnumCount int `struc:"uint32,sizeof=Enums"`
	Enums     []uint32
	ValCount  int `struc:"uint32,sizeof=Vals"`
	Vals      []uint64
	MemSize   int `struc:"uint32,sizeof=Mem"`
	Mem       []byte
}

// Save snapshots the listed registers and memSize bytes of physical memory.
// Registers are restored in the order given.
func Save(c cpu.Cpu, regs []int, memSize uint64) ([]byte, error) {
	body := saveBody{
		Enums: make([]uint32, len(regs)),
		Vals:  make([]uint64, len(regs)),
	}
	for i, enum := range regs {
		val, err := c.RegRead(enum)
		if err != nil {
			return nil, errors.Wrapf(err, "savestate: reading register %d", enum)
		}
		body.Enums[i], body.Vals[i] = uint32(enum), val
	}
	mem, err := c.MemRead(0, memSize)
	if err != nil {
		return nil, errors.Wrap(err, "savestate: reading memory")
	}
	body.Mem = mem

	var buf bytes.Buffer
	s := StrucStream{&buf, binary.BigEndian}
	if err := s.Pack(&body); err != nil {
		return nil, errors.Wrap(err, "savestate: packing body")
	}
	data := snappy.Encode(nil, buf.Bytes())

	var final bytes.Buffer
	s = StrucStream{&final, binary.BigEndian}
	hdr := saveHeader{Version: saveVersion, CRC: crc32.ChecksumIEEE(data), Length: uint32(len(data))}
	copy(hdr.Magic[:], saveMagic)
	if err := s.Pack(&hdr); err != nil {
		return nil, errors.Wrap(err, "savestate: packing header")
	}
	final.Write(data)
	return final.Bytes(), nil
}

// Restore loads a state written by Save into c.
func Restore(c cpu.Cpu, p []byte) error {
	r := bytes.NewBuffer(p)
	s := StrucStream{r, binary.BigEndian}
	var hdr saveHeader
	if err := s.Unpack(&hdr); err != nil {
		return errors.Wrap(ErrBadSavestate, err.Error())
	}
	if string(hdr.Magic[:]) != saveMagic {
		return errors.Wrap(ErrBadSavestate, "bad magic")
	}
	if hdr.Version != saveVersion {
		return errors.Wrapf(ErrBadSavestate, "unsupported version %d", hdr.Version)
	}
	data := r.Bytes()
	if uint32(len(data)) != hdr.Length {
		return errors.Wrapf(ErrBadSavestate, "length %d, header says %d", len(data), hdr.Length)
	}
	if crc32.ChecksumIEEE(data) != hdr.CRC {
		return errors.Wrap(ErrBadSavestate, "checksum mismatch")
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return errors.Wrap(ErrBadSavestate, err.Error())
	}
	var body saveBody
	s = StrucStream{bytes.NewBuffer(raw), binary.BigEndian}
	if err := s.Unpack(&body); err != nil {
		return errors.Wrap(ErrBadSavestate, err.Error())
	}
	if len(body.Enums) != len(body.Vals) {
		return errors.Wrap(ErrBadSavestate, "register count mismatch")
	}
	for i, enum := range body.Enums {
		if err := c.RegWrite(int(enum), body.Vals[i]); err != nil {
			return errors.Wrapf(err, "savestate: writing register %d", enum)
		}
	}
	if err := c.MemWrite(0, body.Mem); err != nil {
		return errors.Wrap(err, "savestate: writing memory")
	}
	return nil
}
