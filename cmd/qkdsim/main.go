// qkdsim runs repeated trials of a quantum key distribution protocol against
// a simulated quantum backend and reports the average quantum bit error rate.
// Per-trial QBER values are appended to a plain-text result file, one decimal
// value per line, and optionally to a SQLite store for later analysis.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/qberlab/qkdsim/qkd"
	"github.com/qberlab/qkdsim/qkd/results"
	"github.com/qberlab/qkdsim/qkd/sim"
)

var (
	protocol = flag.String("protocol", "bb84", "Protocol to simulate: bb84 or entanglement.")
	env      = flag.String("env", "ideal", "Channel environment: ideal or noisy.")
	trials   = flag.Int("trials", 10000, "Number of protocol trials to run.")
	bits     = flag.Int("bits", qkd.DefaultBB84Bits, "Qubits per BB84 trial.")
	pairings = flag.Int("pairings", qkd.DefaultPairings, "Bell blocks per entanglement trial.")
	eve      = flag.Bool("eve", false, "Insert an intercept-and-resend eavesdropper.")
	verbose  = flag.Bool("verbose", false, "Log per-trial bit sequences and choices.")
	out      = flag.String("out", "", "Result file path. Defaults to <Protocol>Results<Env>.txt.")
	dbPath   = flag.String("db", "", "Optional SQLite store for structured trial records.")
	retries  = flag.Int("max-attempts", qkd.DefaultMaxAttempts, "Restart bound for empty-sift BB84 trials.")
	seed     = flag.Int64("seed", 0, "PRNG seed. 0 seeds from the current time.")
)

func main() {
	flag.Parse()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(log zerolog.Logger) error {
	s := *seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(s))

	var backend sim.Backend
	switch *env {
	case "ideal":
		backend = sim.NewIdeal(rnd)
	case "noisy":
		backend = sim.NewNoisy(sim.ReferenceDevice(), rnd)
	default:
		return fmt.Errorf("unknown environment %q", *env)
	}

	var (
		pipeline qkd.Pipeline
		err      error
	)
	switch *protocol {
	case "bb84":
		pipeline, err = qkd.NewBB84(qkd.BB84Opts{
			Backend: backend,
			Rand:    rnd,
			Bits:    *bits,
			Eve:     *eve,
		})
	case "entanglement":
		pipeline, err = qkd.NewEntanglement(qkd.EntanglementOpts{
			Backend:  backend,
			Rand:     rnd,
			Pairings: *pairings,
			Eve:      *eve,
		})
	default:
		return fmt.Errorf("unknown protocol %q", *protocol)
	}
	if err != nil {
		return fmt.Errorf("building %s pipeline: %w", *protocol, err)
	}

	runID := uuid.NewString()
	outPath := *out
	if outPath == "" {
		outPath = defaultOutPath(*protocol, *env)
	}
	writer, err := results.NewWriter(outPath)
	if err != nil {
		return err
	}
	defer writer.Close()
	sinks := []qkd.Sink{writer}
	if *dbPath != "" {
		store, err := results.NewStore(*dbPath, runID)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	log.Info().
		Str("protocol", *protocol).
		Str("env", *env).
		Str("backend", backend.Name()).
		Int("trials", *trials).
		Bool("eve", *eve).
		Int64("seed", s).
		Str("out", outPath).
		Msg("starting run")

	driver, err := qkd.NewDriver(qkd.DriverOpts{
		Trials:      *trials,
		MaxAttempts: *retries,
		Sinks:       sinks,
		Log:         &log,
		Verbose:     *verbose,
		RunID:       runID,
	})
	if err != nil {
		return err
	}
	summary, err := driver.Run(pipeline)
	if err != nil {
		return err
	}

	fmt.Printf("Average QBER: %v\n", summary.AvgQBER)
	if *protocol == "entanglement" {
		fmt.Printf("All QBERs: %v\n", summary.QBERs)
	}
	return nil
}

func defaultOutPath(protocol, env string) string {
	p := "BB84"
	if protocol == "entanglement" {
		p = "Entanglement"
	}
	e := "Ideal"
	if env == "noisy" {
		e = "Noisy"
	}
	return p + "Results" + e + ".txt"
}
