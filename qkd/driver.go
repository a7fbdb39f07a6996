package qkd

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/qberlab/qkdsim/qkd/bitmap"
)

// DefaultMaxAttempts bounds how many times a trial whose sift came up empty
// is restarted before the run is declared failed. Restarts are vanishingly
// rare for realistic bit counts; the bound exists so a pathological
// configuration cannot loop forever.
const DefaultMaxAttempts = 100

// A Trial records one full pipeline run. BB84 trials populate the basis
// fields and leave BER as NaN; entanglement trials populate the pairing
// fields instead.
type Trial struct {
	SenderBits bitmap.Dense
	Results    bitmap.Dense

	SenderBases   bitmap.Dense
	ReceiverBases bitmap.Dense
	EveBases      bitmap.Dense

	SenderPairings   []Pairing
	ReceiverPairings []Pairing
	EvePairings      []Pairing

	// EveBits holds the eavesdropper's decoded bits when an intercept
	// occurred.
	EveBits bitmap.Dense

	SiftedResults   bitmap.Dense
	SiftedReference bitmap.Dense

	QBER float64
	BER  float64
}

// A Pipeline runs one protocol trial end-to-end.
type Pipeline interface {
	// Name identifies the protocol in logs and errors.
	Name() string

	// RunTrial executes one trial with fresh randomness and fresh
	// circuits. BB84 returns ErrEmptySiftedKey for trials whose sift
	// discarded everything.
	RunTrial() (Trial, error)
}

// A Sink persists per-trial results as the run progresses.
type Sink interface {
	Record(trial int, t Trial) error
}

// A DriverOpts packages together the arguments necessary to construct a
// Driver.
type DriverOpts struct {
	// Trials is the number of pipeline runs to execute. Must be positive.
	Trials int

	// MaxAttempts bounds per-trial restarts after an empty sift. Defaults
	// to DefaultMaxAttempts.
	MaxAttempts int

	// Sinks receive every completed trial, in completion order. May be
	// empty.
	Sinks []Sink

	// Log receives per-trial progress. Defaults to a no-op logger.
	Log *zerolog.Logger

	// Verbose logs each trial's bit sequences and choices.
	Verbose bool

	// RunID tags the run in logs and the summary. Defaults to a fresh
	// UUID; callers that share the id with a result store set it
	// explicitly.
	RunID string
}

// A Driver repeats a pipeline for a fixed number of trials and aggregates the
// per-trial error rates.
type Driver struct {
	trials      int
	maxAttempts int
	sinks       []Sink
	log         zerolog.Logger
	verbose     bool
	runID       string
}

// A Summary aggregates a full run. The per-trial QBER sequence is kept in
// completion order.
type Summary struct {
	RunID   string
	QBERs   []float64
	AvgQBER float64
	StdDev  float64
}

// NewDriver returns a Driver configured in accordance with opts, or an error
// if the options are nonsensical.
func NewDriver(opts DriverOpts) (*Driver, error) {
	if opts.Trials <= 0 {
		return nil, fmt.Errorf("trial count must be positive, got %d", opts.Trials)
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts < 0 {
		return nil, fmt.Errorf("negative attempt bound: %d", maxAttempts)
	}
	log := zerolog.Nop()
	if opts.Log != nil {
		log = *opts.Log
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Driver{
		trials:      opts.Trials,
		maxAttempts: maxAttempts,
		sinks:       opts.Sinks,
		log:         log,
		verbose:     opts.Verbose,
		runID:       runID,
	}, nil
}

// Run executes the configured number of trials of p sequentially. Trials do
// not share state; each draws fresh randomness and builds fresh circuits. Any
// error other than a retried empty sift aborts the run.
func (d *Driver) Run(p Pipeline) (Summary, error) {
	s := Summary{RunID: d.runID}
	log := d.log.With().Str("protocol", p.Name()).Str("run_id", s.RunID).Logger()
	for i := 0; i < d.trials; i++ {
		t, err := d.runTrial(p)
		if err != nil {
			return Summary{}, fmt.Errorf("trial %d of %s: %w", i+1, p.Name(), err)
		}
		for _, sink := range d.sinks {
			if err := sink.Record(i, t); err != nil {
				return Summary{}, fmt.Errorf("recording trial %d: %w", i+1, err)
			}
		}
		s.QBERs = append(s.QBERs, t.QBER)
		ev := log.Info()
		if d.verbose {
			ev = d.trialDetail(ev, t)
		}
		ev.Int("trial", i+1).Float64("qber", t.QBER).Msg("finished trial")
	}
	s.AvgQBER = stat.Mean(s.QBERs, nil)
	s.StdDev = stat.StdDev(s.QBERs, nil)
	log.Info().Float64("avg_qber", s.AvgQBER).Float64("stddev", s.StdDev).Msg("run complete")
	return s, nil
}

// runTrial restarts empty-sift trials from scratch, up to the attempt bound.
func (d *Driver) runTrial(p Pipeline) (Trial, error) {
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		t, err := p.RunTrial()
		if errors.Is(err, ErrEmptySiftedKey) {
			continue
		}
		return t, err
	}
	return Trial{}, fmt.Errorf("after %d attempts: %w", d.maxAttempts, ErrEmptySiftedKey)
}

func (d *Driver) trialDetail(ev *zerolog.Event, t Trial) *zerolog.Event {
	ev = ev.
		Str("sender_bits", bitString(t.SenderBits)).
		Str("results", bitString(t.Results)).
		Str("sifted", bitString(t.SiftedResults))
	if t.SenderBases.Size() > 0 {
		ev = ev.
			Str("sender_bases", bitString(t.SenderBases)).
			Str("receiver_bases", bitString(t.ReceiverBases))
	}
	if t.SenderPairings != nil {
		ev = ev.
			Ints("sender_pairings", pairingInts(t.SenderPairings)).
			Ints("receiver_pairings", pairingInts(t.ReceiverPairings)).
			Float64("ber", t.BER)
	}
	if t.EveBits.Size() > 0 {
		ev = ev.Str("eve_bits", bitString(t.EveBits))
	}
	return ev
}

func bitString(d bitmap.Dense) string {
	buf := make([]byte, d.Size())
	for i := range buf {
		buf[i] = '0'
		if d.Get(i) {
			buf[i] = '1'
		}
	}
	return string(buf)
}

func pairingInts(ps []Pairing) []int {
	r := make([]int, len(ps))
	for i, p := range ps {
		r[i] = int(p)
	}
	return r
}
