package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/qberlab/qkdsim/qkd/circuit"
)

// A Noisy is a statevector backend that models an imperfect reference device.
// Circuits are transpiled onto the device's native gate set and coupling map
// before execution, and every native gate carries a chance of a random Pauli
// error as given by the device calibration; measurements additionally suffer
// readout flips.
type Noisy struct {
	device DeviceProfile
	rand   *rand.Rand
}

// NewNoisy returns a backend modeling the given device, drawing all noise and
// measurement samples from r.
func NewNoisy(device DeviceProfile, r *rand.Rand) *Noisy {
	return &Noisy{device: device, rand: r}
}

// Name implements the Backend interface.
func (b *Noisy) Name() string { return "noisy-" + b.device.Name }

// Run implements the Backend interface.
func (b *Noisy) Run(qc *circuit.Circuit, shots int, memory bool) (Result, error) {
	if err := qc.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid circuit: %w", err)
	}
	native, err := Transpile(qc, b.device)
	if err != nil {
		return Result{}, fmt.Errorf("transpiling for %s: %w", b.device.Name, err)
	}
	res := Result{Counts: make(map[string]int)}
	for s := 0; s < shots; s++ {
		sv := newStatevector(native.Qubits)
		clbits := make([]bool, native.Clbits)
		for _, g := range native.Gates {
			b.applyNoisy(sv, g, clbits)
		}
		out := readout(clbits)
		res.Counts[out]++
		if memory {
			res.mem = append(res.mem, out)
		}
	}
	return res, nil
}

func (b *Noisy) applyNoisy(sv *statevector, g circuit.Gate, clbits []bool) {
	if g.Kind == circuit.Measure {
		bit := sv.measure(g.Qubit, b.rand)
		if b.rand.Float64() < b.device.ReadoutError[g.Qubit] {
			bit = !bit
		}
		clbits[g.Clbit] = bit
		return
	}
	applyGate(sv, g, clbits, b.rand)
	if p := b.device.GateError[g.Kind]; p > 0 && b.rand.Float64() < p {
		q := g.Qubit
		if g.Kind == circuit.CX && b.rand.Intn(2) == 1 {
			q = g.Target
		}
		switch b.rand.Intn(3) {
		case 0:
			sv.x(q)
		case 1:
			sv.y(q)
		case 2:
			sv.z(q)
		}
	}
}

// Transpile rewrites qc into the device's native gate set {x, sx, rz, cx} and
// routes two-qubit gates onto its coupling map by inserting swaps. The
// returned circuit uses the device's full register so that routing has room
// to work with.
func Transpile(qc *circuit.Circuit, device DeviceProfile) (*circuit.Circuit, error) {
	if qc.Qubits > device.Qubits {
		return nil, fmt.Errorf("circuit needs %d qubits, device %s has %d", qc.Qubits, device.Name, device.Qubits)
	}
	out := circuit.New(device.Qubits, qc.Clbits)
	for _, g := range qc.Gates {
		switch g.Kind {
		case circuit.H:
			out.RZ(g.Qubit, math.Pi/2)
			out.SX(g.Qubit)
			out.RZ(g.Qubit, math.Pi/2)
		case circuit.Z:
			out.RZ(g.Qubit, math.Pi)
		case circuit.Y:
			// Y = iXZ; the global phase is unobservable.
			out.RZ(g.Qubit, math.Pi)
			out.X(g.Qubit)
		case circuit.X, circuit.SX, circuit.RZ, circuit.Measure:
			out.Gates = append(out.Gates, g)
		case circuit.Barrier:
			// Dropped: barriers only mark phases for readers.
		case circuit.CX:
			if err := routeCX(out, device, g.Qubit, g.Target); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("gate %s has no native decomposition", g.Kind)
		}
	}
	return out, nil
}

// routeCX emits a CX between ctrl and tgt, swapping the control along a
// coupling-map path when the pair is not directly connected. Swaps are
// unwound afterwards so that logical qubit placement is preserved.
func routeCX(out *circuit.Circuit, device DeviceProfile, ctrl, tgt int) error {
	if device.Connected(ctrl, tgt) {
		out.CX(ctrl, tgt)
		return nil
	}
	path := couplingPath(device, ctrl, tgt)
	if path == nil {
		return fmt.Errorf("no coupling path between qubits %d and %d on %s", ctrl, tgt, device.Name)
	}
	// Move the control up to the neighbor of the target, apply, unwind.
	for i := 0; i+2 < len(path); i++ {
		emitSwap(out, path[i], path[i+1])
	}
	out.CX(path[len(path)-2], tgt)
	for i := len(path) - 3; i >= 0; i-- {
		emitSwap(out, path[i], path[i+1])
	}
	return nil
}

func emitSwap(out *circuit.Circuit, a, b int) {
	out.CX(a, b)
	out.CX(b, a)
	out.CX(a, b)
}

// couplingPath returns a shortest path of coupled qubits from a to b, or nil
// if none exists.
func couplingPath(device DeviceProfile, a, b int) []int {
	prev := make([]int, device.Qubits)
	for i := range prev {
		prev[i] = -1
	}
	prev[a] = a
	queue := []int{a}
	for len(queue) > 0 {
		q := queue[0]
		queue = queue[1:]
		if q == b {
			break
		}
		for next := 0; next < device.Qubits; next++ {
			if prev[next] == -1 && device.Connected(q, next) {
				prev[next] = q
				queue = append(queue, next)
			}
		}
	}
	if prev[b] == -1 {
		return nil
	}
	var path []int
	for q := b; q != a; q = prev[q] {
		path = append(path, q)
	}
	path = append(path, a)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
