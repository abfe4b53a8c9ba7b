package loader

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/lunixbochs/dos86/go/models"
)

func LoadFile(path string) (models.Loader, error) {
	p, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(p))
}

// Load picks the EXE loader for MZ images; anything else is a COM image.
func Load(r io.ReaderAt) (models.Loader, error) {
	if MatchMZ(r) {
		return NewExeLoader(r)
	}
	return NewComLoader(r)
}
