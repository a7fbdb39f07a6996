package sim

import "github.com/qberlab/qkdsim/qkd/circuit"

// A DeviceProfile captures the calibration data of a reference quantum device
// needed to derive a noise model: its size, qubit connectivity, native gate
// set and error rates. Profiles are static snapshots, not live calibrations.
type DeviceProfile struct {
	Name   string
	Qubits int

	// Coupling lists the undirected qubit pairs that support a native CX.
	Coupling [][2]int

	// GateError gives the probability that a native gate is followed by a
	// random Pauli error on its operand.
	GateError map[circuit.Kind]float64

	// ReadoutError gives the per-qubit probability that a measurement
	// records the wrong value.
	ReadoutError []float64
}

// Connected reports whether a native CX exists between a and b, in either
// direction.
func (p DeviceProfile) Connected(a, b int) bool {
	for _, c := range p.Coupling {
		if (c[0] == a && c[1] == b) || (c[0] == b && c[1] == a) {
			return true
		}
	}
	return false
}

// ReferenceDevice returns the calibration profile used for the noisy
// simulation environment: a 5-qubit device with T-shaped connectivity and
// error rates typical of small superconducting machines.
func ReferenceDevice() DeviceProfile {
	return DeviceProfile{
		Name:   "ref-5q",
		Qubits: 5,
		Coupling: [][2]int{
			{0, 1}, {1, 2}, {1, 3}, {3, 4},
		},
		GateError: map[circuit.Kind]float64{
			circuit.X:  0.0004,
			circuit.SX: 0.0004,
			circuit.RZ: 0, // implemented as a frame change
			circuit.CX: 0.008,
		},
		ReadoutError: []float64{0.021, 0.018, 0.025, 0.019, 0.033},
	}
}
