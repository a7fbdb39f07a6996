package qkd

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/qberlab/qkdsim/qkd/bitmap"
	"github.com/qberlab/qkdsim/qkd/circuit"
	"github.com/qberlab/qkdsim/qkd/sim"
)

// DefaultPairings is the number of 4-qubit blocks exchanged per entanglement
// trial when the options leave it unset. Each block carries two classical
// bits.
const DefaultPairings = 25

// An EntanglementOpts packages together the arguments necessary to construct
// an entanglement pipeline.
type EntanglementOpts struct {
	// Backend runs the per-block circuits. Must be non-nil.
	Backend sim.Backend

	// Rand provides bit and pairing randomness for all parties. Must be
	// non-nil.
	Rand *rand.Rand

	// Pairings is the number of Bell blocks sent per trial. Defaults to
	// DefaultPairings.
	Pairings int

	// Eve enables a single intercept-and-resend eavesdropper.
	Eve bool
}

// An Entanglement runs Bell-block key distribution trials. Per trial it
// reports both the sifted QBER and a raw block error rate measured before
// sifting.
type Entanglement struct {
	backend  sim.Backend
	rand     *rand.Rand
	pairings int
	eve      bool
}

// NewEntanglement returns an entanglement pipeline configured in accordance
// with opts, or an error if the options are nonsensical.
func NewEntanglement(opts EntanglementOpts) (*Entanglement, error) {
	if opts.Backend == nil {
		return nil, errors.New("must provide Backend")
	}
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	pairings := opts.Pairings
	if pairings == 0 {
		pairings = DefaultPairings
	}
	if pairings < 0 {
		return nil, fmt.Errorf("negative pairing count: %d", pairings)
	}
	return &Entanglement{
		backend:  opts.Backend,
		rand:     opts.Rand,
		pairings: pairings,
		eve:      opts.Eve,
	}, nil
}

// Name implements the Pipeline interface.
func (p *Entanglement) Name() string { return "entanglement" }

// RunTrial implements the Pipeline interface. An empty sift never fails the
// trial: by convention it scores as maximal error, QBER = 1.
func (p *Entanglement) RunTrial() (Trial, error) {
	var t Trial
	t.SenderBits = randomBits(p.rand, 2*p.pairings)
	t.SenderPairings = randomPairings(p.rand, p.pairings)
	msg := encodeBlocks(t.SenderBits, t.SenderPairings)

	if p.eve {
		t.EvePairings = randomPairings(p.rand, p.pairings)
		intercepted, err := decodeBlocks(p.backend, msg, t.EvePairings)
		if err != nil {
			return Trial{}, fmt.Errorf("eavesdropper decode: %w", err)
		}
		t.EveBits = intercepted
		msg = encodeBlocks(intercepted, t.EvePairings)
	}

	t.ReceiverPairings = randomPairings(p.rand, p.pairings)
	results, err := decodeBlocks(p.backend, msg, t.ReceiverPairings)
	if err != nil {
		return Trial{}, fmt.Errorf("receiver decode: %w", err)
	}
	t.Results = results

	t.BER = blockBER(t.SenderBits, results, p.pairings)
	t.SiftedResults, t.SiftedReference = siftBlocks(
		results, t.SenderBits, t.SenderPairings, t.ReceiverPairings)
	t.QBER = blockQBER(t.SiftedResults, t.SiftedReference)
	return t, nil
}

// encodeBlocks builds one 4-qubit circuit per block: two phi+ Bell pairs laid
// out by the block's pairing choice, then converted into the Bell states that
// encode the block's two bits. The conversion targets, per (bit0, bit1):
//
//	(0,0) -> phi+, phi-
//	(0,1) -> phi-, phi+
//	(1,0) -> psi+, psi-
//	(1,1) -> psi-, psi+
func encodeBlocks(bits bitmap.Dense, pairings []Pairing) []*circuit.Circuit {
	msg := make([]*circuit.Circuit, len(pairings))
	for i := range msg {
		qc := circuit.New(4, 4)
		pair1, pair2 := pairings[i].Pairs()
		bellPair(qc, pair1)
		bellPair(qc, pair2)
		qc.Barrier()

		b0, b1 := bits.Get(2*i), bits.Get(2*i+1)
		switch {
		case !b0 && !b1:
			qc.X(pair2[0])
		case !b0 && b1:
			qc.X(pair1[0])
		case b0 && !b1:
			qc.Z(pair1[1])
			qc.Z(pair2[0])
			qc.X(pair2[1])
		default:
			qc.Z(pair1[0])
			qc.X(pair1[1])
			qc.Z(pair2[1])
		}
		qc.Barrier()
		msg[i] = qc
	}
	return msg
}

// bellPair prepares the phi+ state on a pair of qubits.
func bellPair(qc *circuit.Circuit, pair [2]int) {
	qc.H(pair[0])
	qc.CX(pair[0], pair[1])
}

// decodeBlocks inverts the Bell transform for the guessed pairings, measures
// all four qubits and maps each readout to two classical bits. Only three
// readouts are distinguished exactly; every other outcome, including ones a
// noiseless device could never produce, falls through to (1,1).
func decodeBlocks(backend sim.Backend, msg []*circuit.Circuit, pairings []Pairing) (bitmap.Dense, error) {
	bits := bitmap.Empty()
	for i, qc := range msg {
		pair1, pair2 := pairings[i].Pairs()
		qc.CX(pair1[0], pair1[1])
		qc.H(pair1[0])
		qc.CX(pair2[0], pair2[1])
		qc.H(pair2[0])

		qc.Measure(pair1[0], 3)
		qc.Measure(pair1[1], 2)
		qc.Measure(pair2[0], 1)
		qc.Measure(pair2[1], 0)

		res, err := backend.Run(qc, 1, true)
		if err != nil {
			return bitmap.Empty(), fmt.Errorf("measuring block %d: %w", i, err)
		}
		b0, b1 := decodeReadout(res.Memory()[0])
		bits.AppendBit(b0)
		bits.AppendBit(b1)
	}
	return bits, nil
}

// decodeReadout maps a 4-bit readout string onto a block's two bits.
func decodeReadout(mem string) (b0, b1 bool) {
	switch mem {
	case "0001":
		return false, false
	case "0100":
		return false, true
	case "1011":
		return true, false
	default:
		return true, true
	}
}

// blockBER scores the fraction of blocks decoded incorrectly, over all blocks
// and before any sifting.
func blockBER(reference, results bitmap.Dense, blocks int) float64 {
	correct := 0
	for i := 0; i < blocks; i++ {
		if reference.Get(2*i) == results.Get(2*i) && reference.Get(2*i+1) == results.Get(2*i+1) {
			correct++
		}
	}
	return 1 - float64(correct)/float64(blocks)
}

// siftBlocks keeps both bits of every block where the sender's and receiver's
// pairing choices agree.
func siftBlocks(results, reference bitmap.Dense, send, receive []Pairing) (keptResults, keptReference bitmap.Dense) {
	for i := range send {
		if send[i] != receive[i] {
			continue
		}
		keptResults.AppendBit(results.Get(2 * i))
		keptResults.AppendBit(results.Get(2*i + 1))
		keptReference.AppendBit(reference.Get(2 * i))
		keptReference.AppendBit(reference.Get(2*i + 1))
	}
	return keptResults, keptReference
}

// blockQBER scores sifted key material block-wise: a block counts as an error
// unless both of its bits match. An empty sift scores as maximal error by
// convention, since no key material exists.
func blockQBER(results, reference bitmap.Dense) float64 {
	if results.Size() == 0 {
		return 1
	}
	blocks := results.Size() / 2
	correct := 0
	for i := 0; i < blocks; i++ {
		if results.Get(2*i) == reference.Get(2*i) && results.Get(2*i+1) == reference.Get(2*i+1) {
			correct++
		}
	}
	return 1 - float64(correct)/float64(blocks)
}
