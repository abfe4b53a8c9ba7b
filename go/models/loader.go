package models

// SegmentData is a block of the program image, placed relative to the load segment.
type SegmentData struct {
	Off  uint32
	Size uint32

	DataFunc func() ([]byte, error)
}

func (s *SegmentData) Data() ([]byte, error) {
	return s.DataFunc()
}

// Loader describes a DOS program image. Segment values returned by Entry
// and Stack are relative to the load segment; Relocs are image offsets of
// words the load segment is added to.
type Loader interface {
	Arch() string
	OS() string
	Type() string

	// size of the image in bytes, not counting the PSP
	Size() uint32
	Segments() ([]SegmentData, error)
	Relocs() []uint32
	// minimum and maximum paragraphs the program needs beyond its image
	Alloc() (min, max uint16)

	Entry() (cs, ip uint16)
	Stack() (ss, sp uint16)
}
