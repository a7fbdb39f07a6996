package qkd

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/qberlab/qkdsim/qkd/bitmap"
	"github.com/qberlab/qkdsim/qkd/circuit"
	"github.com/qberlab/qkdsim/qkd/sim"
)

// DefaultBB84Bits is the number of qubits exchanged per BB84 trial when the
// options leave it unset.
const DefaultBB84Bits = 50

// A BB84Opts packages together the arguments necessary to construct a BB84
// pipeline.
type BB84Opts struct {
	// Backend runs the per-bit circuits. Must be non-nil.
	Backend sim.Backend

	// Rand provides bit and basis randomness for all parties. Must be
	// non-nil; tests inject seeded sources.
	Rand *rand.Rand

	// Bits is the number of qubits sent per trial. Defaults to
	// DefaultBB84Bits.
	Bits int

	// Eve enables a single intercept-and-resend eavesdropper.
	Eve bool
}

// A BB84 runs single-qubit prepare-and-measure key distribution trials.
type BB84 struct {
	backend sim.Backend
	rand    *rand.Rand
	bits    int
	eve     bool
}

// NewBB84 returns a BB84 pipeline configured in accordance with opts, or an
// error if the options are nonsensical.
func NewBB84(opts BB84Opts) (*BB84, error) {
	if opts.Backend == nil {
		return nil, errors.New("must provide Backend")
	}
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	bits := opts.Bits
	if bits == 0 {
		bits = DefaultBB84Bits
	}
	if bits < 0 {
		return nil, fmt.Errorf("negative bit count: %d", bits)
	}
	return &BB84{
		backend: opts.Backend,
		rand:    opts.Rand,
		bits:    bits,
		eve:     opts.Eve,
	}, nil
}

// Name implements the Pipeline interface.
func (p *BB84) Name() string { return "bb84" }

// RunTrial implements the Pipeline interface. It returns ErrEmptySiftedKey
// when every basis choice mismatched, which the driver resolves by retrying
// the trial from scratch.
func (p *BB84) RunTrial() (Trial, error) {
	t := Trial{BER: math.NaN()}
	t.SenderBits = randomBits(p.rand, p.bits)
	t.SenderBases = randomBits(p.rand, p.bits)
	msg := encodeBB84(t.SenderBits, t.SenderBases)

	if p.eve {
		t.EveBases = randomBits(p.rand, p.bits)
		intercepted, err := measureBB84(p.backend, msg, t.EveBases)
		if err != nil {
			return Trial{}, fmt.Errorf("eavesdropper decode: %w", err)
		}
		t.EveBits = intercepted
		msg = encodeBB84(intercepted, t.EveBases)
	}

	t.ReceiverBases = randomBits(p.rand, p.bits)
	results, err := measureBB84(p.backend, msg, t.ReceiverBases)
	if err != nil {
		return Trial{}, fmt.Errorf("receiver decode: %w", err)
	}
	t.Results = results

	t.SiftedResults = sift(results, t.SenderBases, t.ReceiverBases)
	t.SiftedReference = sift(t.SenderBits, t.SenderBases, t.ReceiverBases)
	if t.SiftedResults.Size() == 0 {
		return Trial{}, ErrEmptySiftedKey
	}
	mismatches := bitmap.CountOnes(bitmap.XOr(t.SiftedResults, t.SiftedReference))
	t.QBER = float64(mismatches) / float64(t.SiftedResults.Size())
	return t, nil
}

// encodeBB84 maps each classical bit to a fresh 1-qubit circuit. In the Z
// basis a set bit becomes a bit-flip; in the X basis the state is rotated
// with a trailing Hadamard.
func encodeBB84(bits, bases bitmap.Dense) []*circuit.Circuit {
	msg := make([]*circuit.Circuit, bits.Size())
	for i := range msg {
		qc := circuit.New(1, 1)
		if !bases.Get(i) {
			if bits.Get(i) {
				qc.X(0)
			}
		} else {
			if bits.Get(i) {
				qc.X(0)
			}
			qc.H(0)
		}
		qc.Barrier()
		msg[i] = qc
	}
	return msg
}

// measureBB84 appends the basis rotation and measurement to each circuit and
// runs one shot per bit. The circuits are consumed: they must not be run
// again afterwards.
func measureBB84(backend sim.Backend, msg []*circuit.Circuit, bases bitmap.Dense) (bitmap.Dense, error) {
	bits := bitmap.Empty()
	for i, qc := range msg {
		if bases.Get(i) {
			qc.H(0)
		}
		qc.Measure(0, 0)
		res, err := backend.Run(qc, 1, true)
		if err != nil {
			return bitmap.Empty(), fmt.Errorf("measuring qubit %d: %w", i, err)
		}
		bits.AppendBit(res.Memory()[0] == "1")
	}
	return bits, nil
}
