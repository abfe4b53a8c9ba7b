package run

import (
	"os"

	"github.com/lunixbochs/dos86/go/cmd"
)

func Main(args []string) {
	os.Exit(cmd.NewCmd().Run(args))
}

func init() { cmd.Register("run", "execute a DOS program", Main) }
