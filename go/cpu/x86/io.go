package x86

type (
	InFunc8   func(port uint16) uint8
	OutFunc8  func(port uint16, v uint8)
	InFunc16  func(port uint16) uint16
	OutFunc16 func(port uint16, v uint16)
)

type portHandler struct {
	in8   InFunc8
	out8  OutFunc8
	in16  InFunc16
	out16 OutFunc16
}

// Ports is the I/O port registry. Unassigned ports go to the default
// handler, which reads 0xff and drops writes unless replaced.
type Ports struct {
	ports map[uint16]*portHandler
	def   portHandler
}

func NewPorts() *Ports {
	p := &Ports{ports: make(map[uint16]*portHandler)}
	p.SetDefault(nil, nil)
	return p
}

func (p *Ports) handler(port uint16) *portHandler {
	h, ok := p.ports[port]
	if !ok {
		h = &portHandler{}
		p.ports[port] = h
	}
	return h
}

// Register8 sets the byte handlers of a port. Either may be nil.
func (p *Ports) Register8(port uint16, in InFunc8, out OutFunc8) {
	h := p.handler(port)
	h.in8, h.out8 = in, out
}

// Register16 sets the word handlers of a port. Ports without word handlers
// are accessed as two bytes.
func (p *Ports) Register16(port uint16, in InFunc16, out OutFunc16) {
	h := p.handler(port)
	h.in16, h.out16 = in, out
}

// SetDefault replaces the handler for unassigned ports. nil restores the
// open bus behavior for that direction.
func (p *Ports) SetDefault(in InFunc8, out OutFunc8) {
	if in == nil {
		in = func(uint16) uint8 { return 0xff }
	}
	if out == nil {
		out = func(uint16, uint8) {}
	}
	p.def.in8, p.def.out8 = in, out
}

func (p *Ports) In8(port uint16) uint8 {
	if h, ok := p.ports[port]; ok && h.in8 != nil {
		return h.in8(port)
	}
	return p.def.in8(port)
}

func (p *Ports) Out8(port uint16, v uint8) {
	if h, ok := p.ports[port]; ok && h.out8 != nil {
		h.out8(port, v)
		return
	}
	p.def.out8(port, v)
}

func (p *Ports) In16(port uint16) uint16 {
	if h, ok := p.ports[port]; ok && h.in16 != nil {
		return h.in16(port)
	}
	return uint16(p.In8(port)) | uint16(p.In8(port+1))<<8
}

func (p *Ports) Out16(port uint16, v uint16) {
	if h, ok := p.ports[port]; ok && h.out16 != nil {
		h.out16(port, v)
		return
	}
	p.Out8(port, uint8(v))
	p.Out8(port+1, uint8(v>>8))
}

func (p *Ports) In32(port uint16) uint32 {
	return uint32(p.In16(port)) | uint32(p.In16(port+2))<<16
}

func (p *Ports) Out32(port uint16, v uint32) {
	p.Out16(port, uint16(v))
	p.Out16(port+2, uint16(v>>16))
}

// checkIO faults IN, OUT, INS and OUTS in protected mode when CPL > IOPL.
// V86 tasks are allowed all ports; there is no I/O permission bitmap.
func (c *Cpu) checkIO() {
	if c.Protected() && !c.V86() && c.CPL > c.IOPL() {
		gp(0)
	}
}

func (c *Cpu) in(w int, port uint16) uint32 {
	switch w {
	case 1:
		return uint32(c.Ports.In8(port))
	case 2:
		return uint32(c.Ports.In16(port))
	}
	return c.Ports.In32(port)
}

func (c *Cpu) out(w int, port uint16, v uint32) {
	switch w {
	case 1:
		c.Ports.Out8(port, uint8(v))
	case 2:
		c.Ports.Out16(port, uint16(v))
	default:
		c.Ports.Out32(port, v)
	}
}

func (s *isa) ioOps() {
	in := func(c *Cpu, w int, port uint16) {
		c.checkIO()
		c.setReg(w, EAX, c.in(w, port))
	}
	out := func(c *Cpu, w int, port uint16) {
		c.checkIO()
		c.out(w, port, c.reg(w, EAX))
	}
	s.add(0xe4, MAll, "in", func(c *Cpu) { in(c, 1, uint16(c.fetch8())) })
	s.ov(0xe5, "in", func(w int) Handler {
		return func(c *Cpu) { in(c, w, uint16(c.fetch8())) }
	})
	s.add(0xe6, MAll, "out", func(c *Cpu) { out(c, 1, uint16(c.fetch8())) })
	s.ov(0xe7, "out", func(w int) Handler {
		return func(c *Cpu) { out(c, w, uint16(c.fetch8())) }
	})
	s.add(0xec, MAll, "in", func(c *Cpu) { in(c, 1, uint16(c.Regs[EDX])) })
	s.ov(0xed, "in", func(w int) Handler {
		return func(c *Cpu) { in(c, w, uint16(c.Regs[EDX])) }
	})
	s.add(0xee, MAll, "out", func(c *Cpu) { out(c, 1, uint16(c.Regs[EDX])) })
	s.ov(0xef, "out", func(w int) Handler {
		return func(c *Cpu) { out(c, w, uint16(c.Regs[EDX])) }
	})
}
