package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"

	dos86 "github.com/lunixbochs/dos86/go"
	"github.com/lunixbochs/dos86/go/loader"
	"github.com/lunixbochs/dos86/go/models"
)

// nop; nop; mov ax, 4c02h; int 21h
var prog = []byte{0x90, 0x90, 0xb8, 0x02, 0x4c, 0xcd, 0x21}

func newConsole(t *testing.T) (*Console, *bytes.Buffer) {
	l, err := loader.NewComLoader(bytes.NewReader(prog))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	m, err := dos86.NewMachine(l, &models.Config{Output: &out, Stdout: &out})
	if err != nil {
		t.Fatal(err)
	}
	return NewConsole(m, &out), &out
}

func exec(t *testing.T, c *Console, line string) bool {
	done, err := c.Exec(line)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return done
}

func TestConsoleStep(t *testing.T) {
	c, out := newConsole(t)
	if c.Prompt() != "0080:0100> " {
		t.Fatalf("prompt %q", c.Prompt())
	}
	exec(t, c, "s 2")
	if c.Prompt() != "0080:0102> " {
		t.Fatalf("prompt %q", c.Prompt())
	}
	if !strings.Contains(out.String(), "0080:0102  mov") {
		t.Fatalf("output: %q", out.String())
	}
	out.Reset()
	exec(t, c, "s")
	if !strings.Contains(out.String(), "+   eax 0x00004c02") {
		t.Fatalf("output: %q", out.String())
	}
	exec(t, c, "s zero")
	if !strings.Contains(out.String(), "positive") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsoleBreakContinue(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "b 80:102")
	exec(t, c, "b")
	if !strings.Contains(out.String(), "0x902") {
		t.Fatalf("breakpoint list: %q", out.String())
	}
	exec(t, c, "c")
	if c.Prompt() != "0080:0102> " {
		t.Fatalf("prompt %q", c.Prompt())
	}
	exec(t, c, "bd 902")
	done, err := c.Exec("c")
	if !done {
		t.Fatal("program did not end")
	}
	if status, ok := errors.Cause(err).(models.ExitStatus); !ok || status != 2 {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(out.String(), "exited with status 2") {
		t.Fatalf("output: %q", out.String())
	}
}

func TestConsoleHexdump(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "x 80:100 8")
	want := "00000900: 9090b802 4ccd2100"
	if !strings.HasPrefix(out.String(), want) {
		t.Fatalf("got %q, want prefix %q", out.String(), want)
	}
}

func TestConsoleMisc(t *testing.T) {
	c, out := newConsole(t)
	exec(t, c, "r")
	if !strings.Contains(out.String(), "eflags") {
		t.Fatalf("regs: %q", out.String())
	}
	exec(t, c, "frob")
	if !strings.Contains(out.String(), "unknown command frob") {
		t.Fatalf("output: %q", out.String())
	}
	exec(t, c, "x nothex")
	if !strings.Contains(out.String(), "bad address") {
		t.Fatalf("output: %q", out.String())
	}
	if !exec(t, c, "q") {
		t.Fatal("q did not quit")
	}
}

func TestConsoleInt(t *testing.T) {
	c, _ := newConsole(t)
	exec(t, c, "int 21")
	if c.Prompt() != "f000:1108> " {
		t.Fatalf("prompt %q", c.Prompt())
	}
}
