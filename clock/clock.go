// Package clock provides the monotonic 32-bit timestamp source block
// headers and recovery rely on: a real wall clock on hosted builds, or a
// persisted pseudo-counter when the caller asks for deterministic behavior
// (config.Config.ForcePseudoClock) — recovery's tie-breaking logic only
// needs strictly-increasing values, not calendar accuracy.
package clock

import "time"

// Source yields the next timestamp to stamp a block with.
type Source interface {
	// Now returns a value greater than or equal to every value
	// previously returned by this Source.
	Now() uint32
}

// Real reads the wall clock, truncated to seconds and wrapped into 32 bits.
// It is monotone in practice because real time does not go backwards during
// one mount (and SDI4FS does not claim correctness across a clock step back).
type Real struct{}

func (Real) Now() uint32 {
	return uint32(time.Now().Unix())
}

// Pseudo is a persisted monotonic counter: each call increments an in-memory
// value seeded from the image's lastUmountTime (clean mount) or from
// recovery's maxLastWriteTime+1 (unclean mount). It never repeats a value
// within one process lifetime, which is the only guarantee recovery needs.
type Pseudo struct {
	next uint32
}

// NewPseudo seeds a Pseudo clock to start at seed.
func NewPseudo(seed uint32) *Pseudo {
	return &Pseudo{next: seed}
}

func (p *Pseudo) Now() uint32 {
	v := p.next
	p.next++
	return v
}
