package qkd

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qberlab/qkdsim/qkd/bitmap"
	"github.com/qberlab/qkdsim/qkd/sim"
)

func TestDecodeReadoutIsTotal(t *testing.T) {
	// Three readouts are matched exactly; the other thirteen all collapse
	// into (1,1), including physically impossible ones.
	exact := map[string][2]bool{
		"0001": {false, false},
		"0100": {false, true},
		"1011": {true, false},
	}
	for i := 0; i < 16; i++ {
		mem := fmt.Sprintf("%04b", i)
		b0, b1 := decodeReadout(mem)
		if want, ok := exact[mem]; ok {
			assert.Equal(t, want[0], b0, "readout %s", mem)
			assert.Equal(t, want[1], b1, "readout %s", mem)
			continue
		}
		assert.True(t, b0, "readout %s should fall through to (1,1)", mem)
		assert.True(t, b1, "readout %s should fall through to (1,1)", mem)
	}
}

func TestEntanglementSingleBlockRoundTrip(t *testing.T) {
	// bits=(0,0), pairing scheme 0 for both parties: the decoded block
	// must equal (0,0) and the block error rate must be 0.
	r := rand.New(rand.NewSource(7))
	backend := sim.NewIdeal(r)

	bits := mustBits(t, "00")
	pairings := []Pairing{0}
	msg := encodeBlocks(bits, pairings)
	results, err := decodeBlocks(backend, msg, pairings)
	require.NoError(t, err)
	require.Equal(t, 2, results.Size())
	assert.False(t, results.Get(0))
	assert.False(t, results.Get(1))
	assert.Zero(t, blockBER(bits, results, 1))
}

func TestEntanglementAllBlockValuesRoundTrip(t *testing.T) {
	// Every 2-bit value survives encode/decode under every pairing scheme
	// when the receiver guesses the pairing correctly.
	r := rand.New(rand.NewSource(8))
	backend := sim.NewIdeal(r)
	for pairing := Pairing(0); pairing < 3; pairing++ {
		for v := 0; v < 4; v++ {
			b0, b1 := v&2 != 0, v&1 != 0
			bits := bitmap.Empty()
			bits.AppendBit(b0)
			bits.AppendBit(b1)
			msg := encodeBlocks(bits, []Pairing{pairing})
			results, err := decodeBlocks(backend, msg, []Pairing{pairing})
			require.NoError(t, err)
			assert.Equal(t, b0, results.Get(0), "pairing %d value %02b", pairing, v)
			assert.Equal(t, b1, results.Get(1), "pairing %d value %02b", pairing, v)
		}
	}
}

func TestSiftBlocksKeepsOnlyMatchingPairings(t *testing.T) {
	results := mustBits(t, "10 01 11")
	reference := mustBits(t, "10 00 11")
	send := []Pairing{0, 1, 2}
	receive := []Pairing{0, 2, 2}

	keptResults, keptReference := siftBlocks(results, reference, send, receive)
	require.Equal(t, 4, keptResults.Size())
	require.Equal(t, 4, keptReference.Size())
	// Blocks 0 and 2 survive.
	assert.True(t, keptResults.Get(0))
	assert.False(t, keptResults.Get(1))
	assert.True(t, keptResults.Get(2))
	assert.True(t, keptResults.Get(3))
	assert.Zero(t, blockQBER(keptResults, keptReference))
}

func TestBlockQBER(t *testing.T) {
	tcs := []struct {
		name      string
		results   string
		reference string
		want      float64
	}{
		{"empty sift scores maximal error", "", "", 1},
		{"all blocks match", "1001", "1001", 0},
		{"one of two blocks wrong", "1001", "1011", 0.5},
		{"both bits wrong still one block error", "1000", "1011", 0.5},
		{"all blocks wrong", "1111", "0000", 1},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := blockQBER(mustBits(t, tc.results), mustBits(t, tc.reference))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEntanglementNoEveIdealTrials(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	p, err := NewEntanglement(EntanglementOpts{Backend: sim.NewIdeal(r), Rand: r, Pairings: 10})
	require.NoError(t, err)
	var sumBER float64
	for i := 0; i < 25; i++ {
		trial, err := p.RunTrial()
		require.NoError(t, err)
		// The block error rate covers every block before sifting. The
		// receiver's pairings are drawn independently, so blocks decoded
		// under the wrong pairing miss even on an ideal backend.
		assert.GreaterOrEqual(t, trial.BER, 0.0)
		assert.LessOrEqual(t, trial.BER, 1.0)
		sumBER += trial.BER
		if trial.SiftedResults.Size() == 0 {
			assert.Equal(t, 1.0, trial.QBER, "empty sift substitutes the maximal-error sentinel")
			continue
		}
		assert.Zero(t, trial.QBER, "matched-pairing blocks decode exactly")
		assert.Equal(t, trial.SiftedResults.Size(), trial.SiftedReference.Size())
	}
	assert.Greater(t, sumBER, 0.0, "mismatched-pairing blocks keep the pre-sift rate above zero")
}

func TestEntanglementMatchedPairingsDecodeExactly(t *testing.T) {
	// A trial-sized exchange where the receiver reuses the sender's pairings
	// decodes every block, so the pre-sift block error rate is zero.
	r := rand.New(rand.NewSource(12))
	backend := sim.NewIdeal(r)
	const blocks = 10
	bits := randomBits(r, 2*blocks)
	pairings := randomPairings(r, blocks)
	msg := encodeBlocks(bits, pairings)
	results, err := decodeBlocks(backend, msg, pairings)
	require.NoError(t, err)
	assert.True(t, bitmap.Equal(results, bits))
	assert.Zero(t, blockBER(bits, results, blocks))
}

func TestEntanglementEveDisturbsTrials(t *testing.T) {
	r := rand.New(rand.NewSource(10))
	p, err := NewEntanglement(EntanglementOpts{Backend: sim.NewIdeal(r), Rand: r, Pairings: 10, Eve: true})
	require.NoError(t, err)
	var sumBER float64
	const trials = 50
	for i := 0; i < trials; i++ {
		trial, err := p.RunTrial()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, trial.QBER, 0.0)
		assert.LessOrEqual(t, trial.QBER, 1.0)
		assert.Len(t, trial.EvePairings, 10)
		sumBER += trial.BER
	}
	assert.Greater(t, sumBER/trials, 0.1,
		"an always-on intercept should disturb a visible fraction of blocks")
}

func TestEntanglementOptsValidation(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	_, err := NewEntanglement(EntanglementOpts{Rand: r})
	assert.Error(t, err)
	_, err = NewEntanglement(EntanglementOpts{Backend: sim.NewIdeal(r)})
	assert.Error(t, err)
	p, err := NewEntanglement(EntanglementOpts{Backend: sim.NewIdeal(r), Rand: r})
	require.NoError(t, err)
	assert.Equal(t, DefaultPairings, p.pairings)
}
