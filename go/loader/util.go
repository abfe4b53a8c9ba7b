package loader

import (
	"io"

	"github.com/pkg/errors"
)

func getMagic(r io.ReaderAt) []byte {
	ret := make([]byte, 2)
	r.ReadAt(ret, 0)
	return ret
}

// readAll reads r from offset 0 until EOF.
func readAll(r io.ReaderAt) ([]byte, error) {
	var out []byte
	buf := make([]byte, 0x1000)
	for {
		n, err := r.ReadAt(buf, int64(len(out)))
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		} else if err != nil {
			return nil, errors.Wrap(err, "read failed")
		}
	}
}
