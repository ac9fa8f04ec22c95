package scenario

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/san-kum/tankdcs/internal/config"
	"github.com/san-kum/tankdcs/internal/metrics"
	"github.com/san-kum/tankdcs/internal/supervisor"
	"golang.org/x/sync/errgroup"
)

// Result is one member of an ensemble.
type Result struct {
	Seed    uint64
	Outcome *Outcome
	Metrics map[string]float64
}

// Ensemble replays one scenario over consecutive seeds, each on its own
// supervisor.
type Ensemble struct {
	cfg         *config.Config
	sc          *Scenario
	runs        int
	parallelism int
	logger      *log.Logger
}

func NewEnsemble(cfg *config.Config, sc *Scenario, runs int) *Ensemble {
	return &Ensemble{
		cfg:         cfg,
		sc:          sc,
		runs:        runs,
		parallelism: runtime.NumCPU(),
	}
}

// SetParallelism caps concurrent runs; n < 1 means one at a time.
func (e *Ensemble) SetParallelism(n int) {
	e.parallelism = max(n, 1)
}

func (e *Ensemble) SetLogger(l *log.Logger) {
	e.logger = l
}

// Run returns results ordered by seed, starting at cfg.Seed. The first
// failing member cancels the rest.
func (e *Ensemble) Run(ctx context.Context, dt float64) ([]Result, error) {
	if e.runs < 1 {
		return nil, fmt.Errorf("ensemble needs at least one run, got %d", e.runs)
	}
	if err := e.sc.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, e.runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for i := 0; i < e.runs; i++ {
		g.Go(func() error {
			cfg := *e.cfg
			cfg.Tanks = slices.Clone(e.cfg.Tanks)
			cfg.Seed = e.cfg.Seed + uint64(i)

			var opts []supervisor.Option
			if e.logger != nil {
				opts = append(opts, supervisor.WithLogger(e.logger.With("seed", cfg.Seed)))
			}
			sup, err := supervisor.New(&cfg, opts...)
			if err != nil {
				return err
			}
			col := metrics.Defaults()
			sup.AddObserver(col)

			out, err := Run(gctx, sup, e.sc, dt)
			if err != nil {
				return fmt.Errorf("seed %d: %w", cfg.Seed, err)
			}
			results[i] = Result{Seed: cfg.Seed, Outcome: out, Metrics: col.Values()}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Summary holds the spread of one metric across an ensemble.
type Summary struct {
	Mean float64
	Min  float64
	Max  float64
}

func Summarize(results []Result, metric string) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	s := Summary{Min: results[0].Metrics[metric], Max: results[0].Metrics[metric]}
	for _, r := range results {
		v := r.Metrics[metric]
		s.Mean += v
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
	}
	s.Mean /= float64(len(results))
	return s
}
