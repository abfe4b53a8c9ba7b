package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexDump formats mem as 16 bytes per line, grouped in words of bits/8 bytes.
func HexDump(base uint64, mem []byte, bits int) []string {
	printable := func(p []byte) string {
		o := make([]byte, len(p))
		for i, c := range p {
			if c >= 0x20 && c <= 0x7e {
				o[i] = c
			} else {
				o[i] = '.'
			}
		}
		return string(o)
	}
	bsz := bits / 8
	if bsz < 1 {
		bsz = 1
	}
	const lineSize = 16
	addrFmt := fmt.Sprintf("%%0%dx:", bsz*2)
	var out []string
	for i := 0; i < len(mem); i += lineSize {
		end := i + lineSize
		if end > len(mem) {
			end = len(mem)
		}
		line := mem[i:end]
		var blocks []string
		for j := 0; j < lineSize; j += bsz {
			switch {
			case j >= len(line):
				blocks = append(blocks, strings.Repeat(" ", bsz*2))
			case j+bsz > len(line):
				blocks = append(blocks, hex.EncodeToString(line[j:])+strings.Repeat("  ", j+bsz-len(line)))
			default:
				blocks = append(blocks, hex.EncodeToString(line[j:j+bsz]))
			}
		}
		out = append(out, fmt.Sprintf(addrFmt+" %s [%s]", base+uint64(i), strings.Join(blocks, " "), printable(line)))
	}
	return out
}

// Repr quotes p with non-printable bytes escaped, cut to strsize characters.
func Repr(p []byte, strsize int) string {
	tmp := make([]string, len(p))
	for i, b := range p {
		if b >= 0x20 && b <= 0x7e && b != '"' && b != '\\' {
			tmp[i] = string(b)
		} else {
			tmp[i] = fmt.Sprintf("\\x%02x", b)
		}
	}
	out := strings.Join(tmp, "")
	if strsize > 0 && len(out) > strsize {
		for i := len(tmp) - 1; len(out) > strsize-3 && i > 0; i-- {
			out = strings.Join(tmp[:i], "")
		}
		return "\"" + out + "\"..."
	}
	return "\"" + out + "\""
}
