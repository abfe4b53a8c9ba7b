package models

// LoopDetect watches a stream of addresses for a repeating cycle of up to
// Max entries.
type LoopDetect struct {
	Max int

	history []uint64
	cycle   []uint64
	at      int
	loops   int
}

func NewLoopDetect(max int) *LoopDetect {
	return &LoopDetect{Max: max}
}

// Update records addr. looping is true while addr continues a cycle, and
// loops counts the completed passes through it. The address that breaks a
// cycle returns looping=false along with the final count.
func (l *LoopDetect) Update(addr uint64) (looping bool, loops int) {
	if l.cycle != nil {
		if l.cycle[l.at] == addr {
			l.at = (l.at + 1) % len(l.cycle)
			if l.at == 0 {
				l.loops++
			}
			return true, l.loops
		}
		loops = l.loops
		l.cycle, l.at, l.loops = nil, 0, 0
		l.history = l.history[:0]
		l.push(addr)
		return false, loops
	}
	l.push(addr)
	if c := l.detect(); c != nil {
		l.cycle, l.at, l.loops = c, 0, 1
		return true, 1
	}
	return false, 0
}

func (l *LoopDetect) push(addr uint64) {
	if len(l.history) >= l.Max*2 && len(l.history) > 0 {
		copy(l.history, l.history[1:])
		l.history = l.history[:len(l.history)-1]
	}
	l.history = append(l.history, addr)
}

// detect finds the shortest n where the last n addresses repeat the n before them.
func (l *LoopDetect) detect() []uint64 {
	h := l.history
outer:
	for n := 1; n <= l.Max && n*2 <= len(h); n++ {
		tail, prev := h[len(h)-n:], h[len(h)-2*n:len(h)-n]
		for i := range tail {
			if tail[i] != prev[i] {
				continue outer
			}
		}
		return append([]uint64(nil), tail...)
	}
	return nil
}
