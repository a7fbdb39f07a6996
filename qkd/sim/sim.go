// Package sim provides quantum circuit simulator backends. A backend consumes
// a circuit description and returns sampled measurement outcomes, one per
// shot. The protocol layer treats backends as opaque collaborators: the ideal
// backend evolves the exact statevector, while the noisy backend additionally
// models an imperfect reference device.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/qberlab/qkdsim/qkd/circuit"
)

// A Backend runs circuits and samples measurement outcomes.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Run executes qc for the given number of shots. If memory is true the
	// result retains the per-shot readout strings; aggregate counts are
	// always collected.
	Run(qc *circuit.Circuit, shots int, memory bool) (Result, error)
}

// A Result holds the sampled outcomes of running a circuit.
type Result struct {
	// Counts maps readout strings to the number of shots that produced
	// them.
	Counts map[string]int

	mem []string
}

// Memory returns the per-shot readout strings, in shot order. It is only
// populated when Run was asked to retain memory.
func (r Result) Memory() []string {
	return r.mem
}

// readout formats classical bits the way Qiskit's memory strings do: c[n-1]
// is the leftmost character. The entanglement decode table is keyed on this
// ordering.
func readout(clbits []bool) string {
	buf := make([]byte, len(clbits))
	for i, b := range clbits {
		c := byte('0')
		if b {
			c = '1'
		}
		buf[len(clbits)-1-i] = c
	}
	return string(buf)
}

// An Ideal is a noiseless local statevector backend.
type Ideal struct {
	rand *rand.Rand
}

// NewIdeal returns an ideal backend drawing measurement samples from r.
func NewIdeal(r *rand.Rand) *Ideal {
	return &Ideal{rand: r}
}

// Name implements the Backend interface.
func (b *Ideal) Name() string { return "statevector" }

// Run implements the Backend interface.
func (b *Ideal) Run(qc *circuit.Circuit, shots int, memory bool) (Result, error) {
	if err := qc.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid circuit: %w", err)
	}
	res := Result{Counts: make(map[string]int)}
	for s := 0; s < shots; s++ {
		sv := newStatevector(qc.Qubits)
		clbits := make([]bool, qc.Clbits)
		for _, g := range qc.Gates {
			applyGate(sv, g, clbits, b.rand)
		}
		out := readout(clbits)
		res.Counts[out]++
		if memory {
			res.mem = append(res.mem, out)
		}
	}
	return res, nil
}

func applyGate(sv *statevector, g circuit.Gate, clbits []bool, r *rand.Rand) {
	switch g.Kind {
	case circuit.H:
		sv.h(g.Qubit)
	case circuit.X:
		sv.x(g.Qubit)
	case circuit.Y:
		sv.y(g.Qubit)
	case circuit.Z:
		sv.z(g.Qubit)
	case circuit.SX:
		sv.sx(g.Qubit)
	case circuit.RZ:
		sv.rz(g.Qubit, g.Theta)
	case circuit.CX:
		sv.cx(g.Qubit, g.Target)
	case circuit.Measure:
		clbits[g.Clbit] = sv.measure(g.Qubit, r)
	case circuit.Barrier:
	}
}
