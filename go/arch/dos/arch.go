package dos

import (
	"github.com/lunixbochs/dos86/go/cpu/x86"
	"github.com/lunixbochs/dos86/go/models"
)

var Arch = &models.Arch{
	Name: "x86",
	Bits: 32,

	PC: x86.REG_EIP,
	SP: x86.REG_ESP,
	Regs: map[string]int{
		"eax": x86.REG_EAX,
		"ebx": x86.REG_EBX,
		"ecx": x86.REG_ECX,
		"edx": x86.REG_EDX,
		"esi": x86.REG_ESI,
		"edi": x86.REG_EDI,
		"ebp": x86.REG_EBP,
		"esp": x86.REG_ESP,
		"eip": x86.REG_EIP,

		"eflags": x86.REG_EFLAGS,

		"cs": x86.REG_CS,
		"ds": x86.REG_DS,
		"es": x86.REG_ES,
		"fs": x86.REG_FS,
		"gs": x86.REG_GS,
		"ss": x86.REG_SS,

		"cr0":  x86.REG_CR0,
		"cpl":  x86.REG_CPL,
		"ldtr": x86.REG_LDTR,
		"tr":   x86.REG_TR,
	},
	DefaultRegs: []string{
		"eax", "ebx", "ecx", "edx", "esi", "edi", "ebp", "esp",
		"eflags", "cs", "ds", "es", "ss",
	},
}

func init() {
	Arch.RegisterOS(&models.OS{
		Name: "DOS",
		Init: DosInit,
	})
}
