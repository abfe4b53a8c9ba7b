package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	dos86 "github.com/lunixbochs/dos86/go"
	"github.com/lunixbochs/dos86/go/loader"
	"github.com/lunixbochs/dos86/go/models"
	"github.com/lunixbochs/dos86/go/ui"
)

// set by builds with a native disassembler
var newDisassembler func() models.Disassembler

type Cmd struct {
	Config *models.Config

	SetupFlags  func() error
	MakeMachine func(exe string) (*dos86.Machine, error)
	RunMachine  func() error
	Teardown    func()

	// start in the debug console
	Repl bool

	Machine *dos86.Machine
	Flags   *flag.FlagSet
	// defaults to os.Stderr
	Stderr io.Writer
}

func NewCmd() *Cmd {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	cmd := &Cmd{Flags: fs, Stderr: os.Stderr}
	cmd.MakeMachine = func(exe string) (*dos86.Machine, error) {
		l, err := loader.LoadFile(exe)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load "+exe)
		}
		return dos86.NewMachine(l, cmd.Config)
	}
	return cmd
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// PrintError prints err, and the stack it was created at if it carries one.
func (c *Cmd) PrintError(err error) {
	w := c.Stderr
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(w, "Error: %s\n", err)
	// the innermost stack is where the error started
	var st stackTracer
	for e := err; e != nil; {
		if s, ok := e.(stackTracer); ok {
			st = s
		}
		cause, ok := e.(interface{ Cause() error })
		if !ok {
			break
		}
		e = cause.Cause()
	}
	if st == nil {
		return
	}
	// parse full path and method name for each stack frame
	var frames [][]string
	for _, f := range st.StackTrace() {
		fullpath := ""
		fileline := fmt.Sprintf("%s:%d", f, f)
		method := fmt.Sprintf("%n", f)

		frame := fmt.Sprintf("%+s", f)
		tmp := strings.SplitN(frame, "\n", 3)
		if len(tmp) == 2 {
			pathsplit := strings.Split(tmp[0], "/")
			method = pathsplit[len(pathsplit)-1]
			fullpath = strings.TrimSpace(tmp[1])
		}
		frames = append(frames, []string{fullpath, fileline, method})
		if method == "main.main" {
			break
		}
	}
	// calculate column widths
	widths := make([]int, 3)
	for _, f := range frames {
		for i, s := range f {
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}
	for _, f := range frames {
		for i := 0; i < 2; i++ {
			if widths[i] > 0 {
				pad := strings.Repeat(" ", widths[i]-len(f[i]))
				fmt.Fprintf(w, "%s%s | ", f[i], pad)
			}
		}
		fmt.Fprintf(w, "%s()\n", f[2])
	}
}

// Run parses argv, runs the program and returns the process exit code.
func (c *Cmd) Run(argv []string) int {
	fs := c.Flags
	fs.SetOutput(c.Stderr)
	// tracing flags
	trace := fs.Bool("trace", false, "recommended tracing options: -loop 8 -etrace -rtrace -itrace")
	etrace := fs.Bool("etrace", false, "trace execution")
	rtrace := fs.Bool("rtrace", false, "trace register modification")
	mtrace := fs.Bool("mtrace", false, "trace memory access")
	itrace := fs.Bool("itrace", false, "trace interrupts and DOS calls")
	looproll := fs.Int("loop", 0, "collapse loops of up to this many instructions")
	tnames := []string{"trace", "etrace", "rtrace", "mtrace", "itrace", "loop"}

	verbose := fs.Bool("v", false, "verbose output")
	nocolor := fs.Bool("nocolor", false, "disable color output")
	batch := fs.Int("batch", models.DefaultBatch, "instructions per emulation batch")
	limit := fs.Uint64("limit", 0, "stop after this many instructions")
	memsize := fs.Int("mem", models.DefaultMemSize, "physical memory size in bytes")
	outfile := fs.String("o", "", "redirect debugging output to file (default stderr)")

	savepre := fs.String("savepre", "", "save state to file and exit before emulation starts")
	savepost := fs.String("savepost", "", "save state to file after emulation ends")
	loadstate := fs.String("load", "", "restore state from file before emulation starts")
	repl := fs.Bool("repl", c.Repl, "start in the debug console")

	cpuprofile := fs.String("cpuprofile", "", "write cpu profile to <file>")

	fs.Usage = func() {
		fmt.Fprintf(c.Stderr, "Usage: %s [options] <program.com|program.exe> [args...]\n\nOptions:\n", argv[0])
		var flags []*flag.Flag
		var tflags []*flag.Flag
		fs.VisitAll(func(f *flag.Flag) {
			for _, name := range tnames {
				if name == f.Name {
					tflags = append(tflags, f)
					return
				}
			}
			flags = append(flags, f)
		})
		models.PrintFlags(c.Stderr, flags)
		fmt.Fprintf(c.Stderr, "\nTrace Options:\n")
		models.PrintFlags(c.Stderr, tflags)
		fmt.Fprintf(c.Stderr, "\nExample:\n  %s -trace -loop 8 HELLO.COM\n", argv[0])
	}
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			c.PrintError(err)
			return 1
		}
	}
	if err := fs.Parse(argv[1:]); err != nil {
		return 2
	}
	args := fs.Args()
	if len(args) < 1 {
		fs.Usage()
		return 1
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			c.PrintError(errors.Wrap(err, "failed to create cpu profile"))
			return 1
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *looproll == 0 && *trace {
		*looproll = 8
	}
	config := &models.Config{
		Verbose: *verbose,
		Batch:   *batch,
		Limit:   *limit,
		MemSize: *memsize,
		Args:    args[1:],

		SavePre:  *savepre,
		SavePost: *savepost,

		Trace: models.TraceConfig{
			Exec: *etrace || *trace,
			Reg:  *rtrace || *trace,
			Mem:  *mtrace,
			Intr: *itrace || *trace,
			Loop: *looproll,
		},
	}
	c.Config = config

	var output io.Writer = colorable.NewColorableStderr()
	config.Color = !*nocolor && isatty.IsTerminal(os.Stderr.Fd())
	if *outfile != "" {
		out, err := os.OpenFile(*outfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			c.PrintError(errors.Wrap(err, "failed to open output file"))
			return 1
		}
		defer out.Close()
		output, config.Color = out, false
	}
	config.Output = output
	stdout := NewStripWriter(colorable.NewColorableStdout(), !isatty.IsTerminal(os.Stdout.Fd()))
	defer stdout.Flush()
	config.Stdout = stdout

	m, err := c.MakeMachine(args[0])
	if err != nil {
		c.PrintError(err)
		return 1
	}
	c.Machine = m
	if newDisassembler != nil && m.Dis == nil {
		m.Dis = newDisassembler()
	}
	if c.Teardown != nil {
		defer c.Teardown()
	}
	if *loadstate != "" {
		if err := m.LoadFile(*loadstate); err != nil {
			c.PrintError(err)
			return 1
		}
	}

	switch {
	case c.RunMachine != nil:
		err = c.RunMachine()
	case *repl:
		var r *ui.Repl
		if r, err = ui.NewRepl(m); err == nil {
			err = r.Run()
		}
	default:
		err = m.Run()
	}
	if err != nil {
		if e, ok := errors.Cause(err).(models.ExitStatus); ok {
			return int(e)
		}
		c.PrintError(err)
		return 1
	}
	return 0
}
