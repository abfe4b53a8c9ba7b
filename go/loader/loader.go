package loader

type LoaderBase struct {
	arch string
	os   string
	typ  string
}

func (l *LoaderBase) Arch() string {
	return l.arch
}

func (l *LoaderBase) OS() string {
	return l.os
}

func (l *LoaderBase) Type() string {
	return l.typ
}

func (l *LoaderBase) Relocs() []uint32 {
	return nil
}
