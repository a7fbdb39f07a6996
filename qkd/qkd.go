// Package qkd simulates quantum key distribution protocols under ideal and
// noisy channel models. Two pipelines are provided: single-qubit BB84 and an
// entanglement-based variant encoding two classical bits per 4-qubit Bell
// block. Both share the same shape: encode, optionally intercept-and-resend,
// decode, reconcile bases or pairings, and score the quantum bit error rate.
package qkd

import (
	"errors"
	"math/rand"

	"github.com/qberlab/qkdsim/qkd/bitmap"
)

// ErrEmptySiftedKey reports that basis or pairing reconciliation discarded
// every position, leaving no key material to score. The BB84 driver retries
// such trials; the entanglement pipeline substitutes a maximal-error sentinel
// instead and never returns this.
var ErrEmptySiftedKey = errors.New("sifting discarded every bit")

// A Pairing labels one of the three ways to split a 4-qubit block into two
// entangled pairs.
type Pairing int

// Pairs returns the two qubit pairs selected by p.
func (p Pairing) Pairs() (first, second [2]int) {
	switch p {
	case 0:
		return [2]int{0, 1}, [2]int{2, 3}
	case 1:
		return [2]int{0, 2}, [2]int{1, 3}
	default:
		return [2]int{0, 3}, [2]int{1, 2}
	}
}

// randomBits draws n uniform bits from r.
func randomBits(r *rand.Rand, n int) bitmap.Dense {
	buf := make([]byte, bitmap.BytesFor(n))
	r.Read(buf)
	return bitmap.NewDense(buf, n)
}

// randomPairings draws n uniform pairing labels from r.
func randomPairings(r *rand.Rand, n int) []Pairing {
	ps := make([]Pairing, n)
	for i := range ps {
		ps[i] = Pairing(r.Intn(3))
	}
	return ps
}

// sift keeps the positions of bits where the sender's and receiver's basis
// choices agree.
func sift(bits, sendBases, receiveBases bitmap.Dense) bitmap.Dense {
	return bitmap.Select(bits, bitmap.XNor(sendBases, receiveBases))
}
