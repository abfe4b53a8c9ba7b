package loader

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/models"
)

type MZHeader struct {
	Magic       [2]byte
	LastPage    uint16 // bytes used in the final 512 byte page, 0 means all
	Pages       uint16
	RelocCount  uint16
	HeaderParas uint16
	MinAlloc    uint16
	MaxAlloc    uint16
	SS          uint16
	SP          uint16
	Checksum    uint16
	IP          uint16
	CS          uint16
	RelocOff    uint16
	Overlay     uint16
}

type MZReloc struct {
	Off uint16
	Seg uint16
}

type ExeLoader struct {
	LoaderBase
	Header MZHeader
	image  []byte
	relocs []uint32
}

func MatchMZ(r io.ReaderAt) bool {
	m := string(getMagic(r))
	return m == "MZ" || m == "ZM"
}

func NewExeLoader(r io.ReaderAt) (models.Loader, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	e := &ExeLoader{LoaderBase: LoaderBase{arch: "x86", os: "DOS", typ: "exe"}}
	if err := struc.UnpackWithOrder(bytes.NewReader(data), &e.Header, binary.LittleEndian); err != nil {
		return nil, errors.Wrap(err, "failed to read MZ header")
	}
	h := &e.Header
	if m := string(h.Magic[:]); m != "MZ" && m != "ZM" {
		return nil, errors.Errorf("bad MZ magic %q", m)
	}
	end := uint32(h.Pages) * 512
	if h.LastPage != 0 {
		end -= 512 - uint32(h.LastPage)
	}
	start := uint32(h.HeaderParas) * 16
	if end < start {
		return nil, errors.Errorf("MZ image ends at %#x, before its header at %#x", end, start)
	}
	if end > uint32(len(data)) {
		return nil, errors.Errorf("MZ image truncated: %#x of %#x bytes", len(data), end)
	}
	e.image = data[start:end]

	rr := bytes.NewReader(data)
	if _, err := rr.Seek(int64(h.RelocOff), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to seek to relocations")
	}
	for i := 0; i < int(h.RelocCount); i++ {
		var rel MZReloc
		if err := struc.UnpackWithOrder(rr, &rel, binary.LittleEndian); err != nil {
			return nil, errors.Wrapf(err, "failed to read relocation %d", i)
		}
		off := uint32(rel.Seg)*16 + uint32(rel.Off)
		if off+2 > uint32(len(e.image)) {
			return nil, errors.Errorf("relocation %d at %#x outside the image", i, off)
		}
		e.relocs = append(e.relocs, off)
	}
	return e, nil
}

func (e *ExeLoader) Size() uint32 {
	return uint32(len(e.image))
}

func (e *ExeLoader) Segments() ([]models.SegmentData, error) {
	return []models.SegmentData{{
		Off:  0,
		Size: e.Size(),
		DataFunc: func() ([]byte, error) {
			return e.image, nil
		},
	}}, nil
}

func (e *ExeLoader) Relocs() []uint32 {
	return e.relocs
}

func (e *ExeLoader) Alloc() (uint16, uint16) {
	return e.Header.MinAlloc, e.Header.MaxAlloc
}

func (e *ExeLoader) Entry() (uint16, uint16) {
	return e.Header.CS, e.Header.IP
}

func (e *ExeLoader) Stack() (uint16, uint16) {
	return e.Header.SS, e.Header.SP
}
