package models

import (
	"io"
	"os"
)

type TraceConfig struct {
	Exec bool
	Mem  bool
	Intr bool
	Reg  bool
	// collapse execution trace loops up to this many instructions long
	Loop int
}

func (t *TraceConfig) Any() bool {
	return t.Exec || t.Mem || t.Intr || t.Reg
}

type Config struct {
	Color   bool
	Verbose bool
	Trace   TraceConfig

	// instructions per Emulate call
	Batch int
	// stop after this many instructions, 0 runs forever
	Limit uint64
	// physical memory size in bytes
	MemSize int
	// program tail passed in the PSP
	Args []string

	SavePre  string
	SavePost string

	// diagnostics and traces
	Output io.Writer
	// guest console output
	Stdout io.Writer
}

const (
	DefaultBatch   = 10000
	DefaultMemSize = 0x110000
)

func (c *Config) Init() *Config {
	if c == nil {
		c = &Config{}
	}
	if c.Batch <= 0 {
		c.Batch = DefaultBatch
	}
	if c.MemSize <= 0 {
		c.MemSize = DefaultMemSize
	}
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	return c
}
