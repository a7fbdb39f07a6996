package sim

import (
	"math"
	"math/cmplx"
	"math/rand"
)

// A statevector holds the full complex amplitude vector for a small qubit
// register. Qubit q corresponds to bit 1<<q of the basis-state index.
type statevector struct {
	amps []complex128
	n    int
}

func newStatevector(n int) *statevector {
	amps := make([]complex128, 1<<n)
	amps[0] = 1
	return &statevector{amps: amps, n: n}
}

func (s *statevector) h(q int) {
	f := complex(1/math.Sqrt2, 0)
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = f * (a + b)
			s.amps[j] = f * (a - b)
		}
	}
}

func (s *statevector) x(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (s *statevector) y(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			s.amps[i], s.amps[j] = 1i*s.amps[j], -1i*s.amps[i]
		}
	}
}

func (s *statevector) z(q int) {
	bit := 1 << q
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] *= -1
		}
	}
}

func (s *statevector) sx(q int) {
	// sqrt(X) = 0.5 * [[1+i, 1-i], [1-i, 1+i]]
	p, m := complex(0.5, 0.5), complex(0.5, -0.5)
	bit := 1 << q
	for i := range s.amps {
		if i&bit == 0 {
			j := i | bit
			a, b := s.amps[i], s.amps[j]
			s.amps[i] = p*a + m*b
			s.amps[j] = m*a + p*b
		}
	}
}

func (s *statevector) rz(q int, theta float64) {
	phase := cmplx.Exp(complex(0, theta/2))
	bit := 1 << q
	for i := range s.amps {
		if i&bit != 0 {
			s.amps[i] *= phase
		} else {
			s.amps[i] *= cmplx.Conj(phase)
		}
	}
}

func (s *statevector) cx(ctrl, tgt int) {
	cBit, tBit := 1<<ctrl, 1<<tgt
	for i := range s.amps {
		if i&cBit != 0 && i&tBit == 0 {
			j := i | tBit
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (s *statevector) probOne(q int) float64 {
	bit := 1 << q
	var p float64
	for i, a := range s.amps {
		if i&bit != 0 {
			p += real(a * cmplx.Conj(a))
		}
	}
	return p
}

// measure samples qubit q, collapses the state onto the sampled outcome and
// renormalizes.
func (s *statevector) measure(q int, r *rand.Rand) bool {
	p1 := s.probOne(q)
	one := r.Float64() < p1
	keep := 0.0
	if one {
		keep = p1
	} else {
		keep = 1 - p1
	}
	norm := complex(1/math.Sqrt(keep), 0)
	bit := 1 << q
	for i := range s.amps {
		set := i&bit != 0
		if set == one {
			s.amps[i] *= norm
		} else {
			s.amps[i] = 0
		}
	}
	return one
}
