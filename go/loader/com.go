package loader

import (
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/dos86/go/models"
)

// a COM image shares one 64K segment with its PSP and a stack word
const MaxComSize = 0xff00

type ComLoader struct {
	LoaderBase
	data []byte
}

func NewComLoader(r io.ReaderAt) (models.Loader, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty COM file")
	}
	if len(data) > MaxComSize {
		return nil, errors.Errorf("COM file too large: %#x bytes", len(data))
	}
	return &ComLoader{
		LoaderBase: LoaderBase{arch: "x86", os: "DOS", typ: "com"},
		data:       data,
	}, nil
}

func (c *ComLoader) Size() uint32 {
	return uint32(len(c.data))
}

func (c *ComLoader) Segments() ([]models.SegmentData, error) {
	return []models.SegmentData{{
		Off:  0,
		Size: c.Size(),
		DataFunc: func() ([]byte, error) {
			return c.data, nil
		},
	}}, nil
}

// Alloc asks for the rest of the 64K segment.
func (c *ComLoader) Alloc() (uint16, uint16) {
	min := (MaxComSize - len(c.data) + 15) / 16
	return uint16(min), 0xffff
}

// the image sits at PSP:0100, one paragraph group above the load segment
func (c *ComLoader) Entry() (uint16, uint16) {
	return 0xfff0, 0x100
}

func (c *ComLoader) Stack() (uint16, uint16) {
	return 0xfff0, 0xfffe
}
