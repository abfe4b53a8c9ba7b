package cmd

import (
	"bytes"
	"io"

	"github.com/lunixbochs/vtclean"
)

// StripWriter removes terminal escape sequences from guest output bound for
// a file or pipe. Sequences can span writes, so lines are buffered.
type StripWriter struct {
	w     io.Writer
	strip bool
	buf   []byte
}

func NewStripWriter(w io.Writer, strip bool) *StripWriter {
	return &StripWriter{w: w, strip: strip}
}

func (s *StripWriter) Write(p []byte) (int, error) {
	if !s.strip {
		return s.w.Write(p)
	}
	s.buf = append(s.buf, p...)
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		line := vtclean.Clean(string(s.buf[:i]), false)
		s.buf = s.buf[i+1:]
		if _, err := io.WriteString(s.w, line+"\n"); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes out a trailing partial line.
func (s *StripWriter) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	line := vtclean.Clean(string(s.buf), false)
	s.buf = nil
	_, err := io.WriteString(s.w, line)
	return err
}
