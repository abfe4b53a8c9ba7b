package main

import (
	"github.com/lunixbochs/dos86/go/cmd"

	_ "github.com/lunixbochs/dos86/go/cmd/run"

	_ "github.com/lunixbochs/dos86/go/cmd/repl"
)

func main() { cmd.Main() }
