//go:build unicorn

package cmd

import (
	"github.com/lunixbochs/dos86/go/cpu"
	"github.com/lunixbochs/dos86/go/models"
)

func init() {
	newDisassembler = func() models.Disassembler { return cpu.NewCapstr16() }
}
