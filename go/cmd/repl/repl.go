package repl

import (
	"os"

	"github.com/lunixbochs/dos86/go/cmd"
)

func Main(args []string) {
	c := cmd.NewCmd()
	c.Repl = true
	os.Exit(c.Run(args))
}

func init() { cmd.Register("repl", "run a DOS program under the debug console", Main) }
