// Package circuit provides a minimal gate-list description of quantum
// circuits over a fixed-size qubit register with a matching classical
// register. A circuit is built up by appending gates and is consumed exactly
// once by a simulator backend; measurement gates are expected to be appended
// by the decoding party just before simulation.
package circuit

import "fmt"

// A Kind identifies a gate operation.
type Kind int

const (
	// H is the Hadamard gate.
	H Kind = iota
	// X is the Pauli bit-flip gate.
	X
	// Y is the Pauli Y gate.
	Y
	// Z is the Pauli phase-flip gate.
	Z
	// SX is the square root of X, part of common superconducting native
	// gate sets.
	SX
	// RZ is a rotation about the Z axis, parameterized by Theta.
	RZ
	// CX is the controlled bit-flip gate.
	CX
	// Measure maps a qubit onto a classical bit.
	Measure
	// Barrier is a no-op marker separating circuit phases.
	Barrier
)

func (k Kind) String() string {
	switch k {
	case H:
		return "h"
	case X:
		return "x"
	case Y:
		return "y"
	case Z:
		return "z"
	case SX:
		return "sx"
	case RZ:
		return "rz"
	case CX:
		return "cx"
	case Measure:
		return "measure"
	case Barrier:
		return "barrier"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// A Gate is a single operation in a circuit. Qubit is the sole operand for
// one-qubit gates and the control for CX. Target is the CX target. Clbit is
// the classical destination of a Measure.
type Gate struct {
	Kind   Kind
	Qubit  int
	Target int
	Clbit  int
	Theta  float64
}

// A Circuit is an ordered sequence of gates over Qubits qubits and Clbits
// classical bits.
type Circuit struct {
	Qubits int
	Clbits int
	Gates  []Gate
}

// New returns an empty circuit with the given register sizes.
func New(qubits, clbits int) *Circuit {
	return &Circuit{Qubits: qubits, Clbits: clbits}
}

// H appends a Hadamard gate on qubit q.
func (c *Circuit) H(q int) { c.append(Gate{Kind: H, Qubit: q}) }

// X appends a bit-flip gate on qubit q.
func (c *Circuit) X(q int) { c.append(Gate{Kind: X, Qubit: q}) }

// Y appends a Pauli Y gate on qubit q.
func (c *Circuit) Y(q int) { c.append(Gate{Kind: Y, Qubit: q}) }

// Z appends a phase-flip gate on qubit q.
func (c *Circuit) Z(q int) { c.append(Gate{Kind: Z, Qubit: q}) }

// SX appends a sqrt(X) gate on qubit q.
func (c *Circuit) SX(q int) { c.append(Gate{Kind: SX, Qubit: q}) }

// RZ appends a Z rotation by theta on qubit q.
func (c *Circuit) RZ(q int, theta float64) { c.append(Gate{Kind: RZ, Qubit: q, Theta: theta}) }

// CX appends a controlled bit-flip with control ctrl and target tgt.
func (c *Circuit) CX(ctrl, tgt int) { c.append(Gate{Kind: CX, Qubit: ctrl, Target: tgt}) }

// Measure appends a measurement mapping qubit q to classical bit cl.
func (c *Circuit) Measure(q, cl int) { c.append(Gate{Kind: Measure, Qubit: q, Clbit: cl}) }

// Barrier appends a phase marker. Simulators ignore it.
func (c *Circuit) Barrier() { c.append(Gate{Kind: Barrier}) }

func (c *Circuit) append(g Gate) {
	c.Gates = append(c.Gates, g)
}

// Validate checks that every gate operand addresses the circuit's registers.
// Backends call this before execution; a failure is fatal to the run.
func (c *Circuit) Validate() error {
	for i, g := range c.Gates {
		if g.Kind == Barrier {
			continue
		}
		if g.Qubit < 0 || g.Qubit >= c.Qubits {
			return fmt.Errorf("gate %d (%s): qubit %d out of range [0, %d)", i, g.Kind, g.Qubit, c.Qubits)
		}
		if g.Kind == CX {
			if g.Target < 0 || g.Target >= c.Qubits {
				return fmt.Errorf("gate %d (cx): target %d out of range [0, %d)", i, g.Target, c.Qubits)
			}
			if g.Target == g.Qubit {
				return fmt.Errorf("gate %d (cx): control and target both %d", i, g.Qubit)
			}
		}
		if g.Kind == Measure && (g.Clbit < 0 || g.Clbit >= c.Clbits) {
			return fmt.Errorf("gate %d (measure): clbit %d out of range [0, %d)", i, g.Clbit, c.Clbits)
		}
	}
	return nil
}
