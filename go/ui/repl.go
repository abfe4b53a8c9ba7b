package ui

import (
	"io"
	"path/filepath"

	"github.com/chzyer/readline"
	"github.com/shibukawa/configdir"

	dos86 "github.com/lunixbochs/dos86/go"
)

type Repl struct {
	console *Console
	rl      *readline.Instance
}

func NewRepl(m *dos86.Machine) (*Repl, error) {
	// get history path
	configDirs := configdir.New("dos86", "repl")
	cacheDir := configDirs.QueryCacheFolder()
	historyPath := ""
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "q",
		HistoryFile:     historyPath,
	})
	if err != nil {
		return nil, err
	}
	return &Repl{console: NewConsole(m, rl.Stderr()), rl: rl}, nil
}

// Run reads commands until quit or the program ends, and returns why it ended.
func (r *Repl) Run() error {
	defer r.rl.Close()
	r.console.where()
	for {
		r.rl.SetPrompt(r.console.Prompt())
		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if done, err := r.console.Exec(line); done {
			return err
		}
	}
}
