package results

import (
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qberlab/qkdsim/qkd"
	"github.com/qberlab/qkdsim/qkd/bitmap"
)

func TestWriterOneLinePerTrial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	w, err := NewWriter(path)
	require.NoError(t, err)

	for i, q := range []float64{0, 0.5, 0.0625} {
		require.NoError(t, w.Record(i, qkd.Trial{QBER: q}))
	}
	require.NoError(t, w.Close())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "0\n0.5\n0.0625\n", string(got))
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")
	s, err := NewStore(path, "run-a")
	require.NoError(t, err)
	defer s.Close()

	sifted, err := bitmap.FromString("10110")
	require.NoError(t, err)
	require.NoError(t, s.Record(0, qkd.Trial{
		QBER:          0.25,
		BER:           0.1,
		SiftedResults: sifted,
	}))
	require.NoError(t, s.Record(1, qkd.Trial{QBER: 0, BER: math.NaN()}))

	var (
		qber  float64
		ber   sql.NullFloat64
		sifts int
		count int
	)
	row := s.db.QueryRow(`SELECT COUNT(*) FROM trials WHERE run_id = ?`, "run-a")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 2, count)

	row = s.db.QueryRow(
		`SELECT qber, ber, sifted_bits FROM trials WHERE run_id = ? AND trial = 0`, "run-a")
	require.NoError(t, row.Scan(&qber, &ber, &sifts))
	assert.Equal(t, 0.25, qber)
	require.True(t, ber.Valid)
	assert.Equal(t, 0.1, ber.Float64)
	assert.Equal(t, 5, sifts)

	row = s.db.QueryRow(
		`SELECT ber FROM trials WHERE run_id = ? AND trial = 1`, "run-a")
	require.NoError(t, row.Scan(&ber))
	assert.False(t, ber.Valid, "NaN block error rates are stored as NULL")
}

func TestStoreRejectsDuplicateTrial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trials.db")
	s, err := NewStore(path, "run-b")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(0, qkd.Trial{}))
	assert.Error(t, s.Record(0, qkd.Trial{}))
}
