package benchmarks

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/qbench/internal/utils"
)

// SweepJob runs the configured dimension sweep and persists each result.
// It implements the scheduler Job interface.
type SweepJob struct {
	runner     *Runner
	repo       *Repository
	dims       []int
	density    float64
	iterations int
	log        zerolog.Logger
}

// NewSweepJob creates a new benchmark sweep job
func NewSweepJob(runner *Runner, repo *Repository, dims []int, density float64, iterations int, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		runner:     runner,
		repo:       repo,
		dims:       dims,
		density:    density,
		iterations: iterations,
		log:        log.With().Str("job", "benchmark_sweep").Logger(),
	}
}

// Name returns the job name
func (j *SweepJob) Name() string {
	return "benchmark_sweep"
}

// Run executes the sweep. Each dimension gets a fresh time-derived seed so
// successive sweeps cover different operators; the seed is recorded with the
// result for reproducibility.
func (j *SweepJob) Run() error {
	defer utils.OperationTimer("benchmark_sweep", j.log)()

	var failed int
	for _, dim := range j.dims {
		cfg := RunConfig{
			Dim:        dim,
			Density:    j.density,
			Iterations: j.iterations,
			Seed:       time.Now().UnixNano(),
		}

		result, err := j.runner.Run(cfg)
		if err != nil {
			j.log.Error().Err(err).Int("dim", dim).Msg("Sweep run failed")
			failed++
			continue
		}

		if err := j.repo.Save(result); err != nil {
			j.log.Error().Err(err).Str("id", result.ID).Msg("Failed to persist sweep result")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("benchmark sweep: %d of %d dimensions failed", failed, len(j.dims))
	}
	return nil
}
