// Package benchmarks measures the competing expectation-value evaluation
// paths against each other and persists the results. Each run times the
// fused sparse kernel, the dense multiply-then-reduce baseline, and the
// vectorized density path over the same seeded random operator and state.
package benchmarks

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/qbench/internal/events"
	"github.com/aristath/qbench/internal/modules/expectation"
	"github.com/aristath/qbench/internal/modules/operators"
)

// RunConfig describes one benchmark run
type RunConfig struct {
	Dim        int     `json:"dim"`
	Density    float64 `json:"density"`
	Iterations int     `json:"iterations"`
	Seed       int64   `json:"seed"`
}

// Validate checks the run configuration
func (c RunConfig) Validate() error {
	if c.Dim <= 0 {
		return fmt.Errorf("dim must be positive, got %d", c.Dim)
	}
	if c.Density <= 0 || c.Density > 1 {
		return fmt.Errorf("density must be in (0, 1], got %v", c.Density)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	return nil
}

// PathStats holds per-path timing statistics. Samples are nanoseconds per
// iteration, in execution order.
type PathStats struct {
	MeanNs  int64     `json:"mean_ns"`
	StdNs   int64     `json:"std_ns"`
	Samples []float64 `json:"-" msgpack:"samples"`
}

// Result is one persisted benchmark run
type Result struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Dim        int       `json:"dim"`
	Nnz        int       `json:"nnz"`
	Density    float64   `json:"density"`
	Iterations int       `json:"iterations"`
	Seed       int64     `json:"seed"`

	Sparse PathStats `json:"sparse"`
	Dense  PathStats `json:"dense"`
	Vector PathStats `json:"vector"`

	// Speedup is dense mean over sparse mean
	Speedup float64 `json:"speedup"`
	// MaxDelta is the worst disagreement between the three paths' values
	MaxDelta float64 `json:"max_delta"`

	Host HostInfo `json:"host"`
}

// Runner executes benchmark runs
type Runner struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewRunner creates a new benchmark runner
func NewRunner(bus *events.Bus, log zerolog.Logger) *Runner {
	return &Runner{
		bus: bus,
		log: log.With().Str("component", "benchmark_runner").Logger(),
	}
}

// Run executes one benchmark run. The operator, ket, and density matrix are
// generated once from the seed and shared by all three paths, so the timing
// loops measure evaluation only.
func (r *Runner) Run(cfg RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	r.emit(events.BenchmarkStarted, map[string]interface{}{
		"dim":        cfg.Dim,
		"density":    cfg.Density,
		"iterations": cfg.Iterations,
	})

	op, err := operators.RandomHermitian(cfg.Dim, cfg.Density, cfg.Seed)
	if err != nil {
		r.emitFailure(cfg, err)
		return nil, err
	}
	psi := expectation.RandomKet(cfg.Dim, cfg.Seed+1)
	rho := expectation.FromKet(psi)
	dense := op.ToDense()

	r.log.Info().
		Int("dim", cfg.Dim).
		Int("nnz", op.NNZ()).
		Int("iterations", cfg.Iterations).
		Msg("Starting benchmark run")

	// Cross-check values once up front; the paths must agree before their
	// timings are worth comparing.
	sparseVal, err := expectation.ValueKet(op, psi)
	if err != nil {
		r.emitFailure(cfg, err)
		return nil, err
	}
	denseVal, err := expectation.ValueDense(dense, psi)
	if err != nil {
		r.emitFailure(cfg, err)
		return nil, err
	}
	vectorVal, err := expectation.ValueDensity(op, rho)
	if err != nil {
		r.emitFailure(cfg, err)
		return nil, err
	}

	maxDelta := math.Max(
		math.Abs(sparseVal-denseVal),
		math.Max(math.Abs(sparseVal-vectorVal), math.Abs(denseVal-vectorVal)),
	)

	sparse := timePath(cfg.Iterations, func() {
		_, _ = expectation.ValueKet(op, psi)
	})
	denseStats := timePath(cfg.Iterations, func() {
		_, _ = expectation.ValueDense(dense, psi)
	})
	vector := timePath(cfg.Iterations, func() {
		_, _ = expectation.ValueDensity(op, rho)
	})

	speedup := 0.0
	if sparse.MeanNs > 0 {
		speedup = float64(denseStats.MeanNs) / float64(sparse.MeanNs)
	}

	result := &Result{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Dim:        cfg.Dim,
		Nnz:        op.NNZ(),
		Density:    cfg.Density,
		Iterations: cfg.Iterations,
		Seed:       cfg.Seed,
		Sparse:     sparse,
		Dense:      denseStats,
		Vector:     vector,
		Speedup:    speedup,
		MaxDelta:   maxDelta,
		Host:       CollectHostInfo(r.log),
	}

	r.log.Info().
		Str("id", result.ID).
		Int64("sparse_mean_ns", sparse.MeanNs).
		Int64("dense_mean_ns", denseStats.MeanNs).
		Int64("vector_mean_ns", vector.MeanNs).
		Float64("speedup", speedup).
		Float64("max_delta", maxDelta).
		Msg("Benchmark run completed")

	r.emit(events.BenchmarkCompleted, map[string]interface{}{
		"id":      result.ID,
		"dim":     result.Dim,
		"speedup": result.Speedup,
	})

	return result, nil
}

// timePath times one evaluation path. A single warmup call runs outside the
// measured window.
func timePath(iterations int, fn func()) PathStats {
	fn()

	samples := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		fn()
		samples[i] = float64(time.Since(start).Nanoseconds())
	}

	mean := stat.Mean(samples, nil)
	std := 0.0
	if iterations > 1 {
		std = stat.StdDev(samples, nil)
	}

	return PathStats{
		MeanNs:  int64(mean),
		StdNs:   int64(std),
		Samples: samples,
	}
}

func (r *Runner) emit(eventType events.EventType, data map[string]interface{}) {
	if r.bus != nil {
		r.bus.Emit(eventType, "benchmarks", data)
	}
}

func (r *Runner) emitFailure(cfg RunConfig, err error) {
	r.log.Error().Err(err).Int("dim", cfg.Dim).Msg("Benchmark run failed")
	r.emit(events.BenchmarkFailed, map[string]interface{}{
		"dim":   cfg.Dim,
		"error": err.Error(),
	})
}
