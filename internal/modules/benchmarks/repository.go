package benchmarks

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// sampleBlob is the msgpack form of the per-path timing samples
type sampleBlob struct {
	Sparse []float64 `msgpack:"sparse"`
	Dense  []float64 `msgpack:"dense"`
	Vector []float64 `msgpack:"vector"`
}

// Repository persists benchmark runs in results.db
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new benchmark repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Save stores a benchmark run. Summary statistics go into columns; the raw
// samples and host info are msgpack blobs.
func (r *Repository) Save(result *Result) error {
	hostBlob, err := msgpack.Marshal(&result.Host)
	if err != nil {
		return fmt.Errorf("failed to marshal host info: %w", err)
	}

	samplesBlob, err := msgpack.Marshal(&sampleBlob{
		Sparse: result.Sparse.Samples,
		Dense:  result.Dense.Samples,
		Vector: result.Vector.Samples,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO benchmark_runs (
			id, created_at, dim, nnz, density, iterations, seed,
			sparse_mean_ns, sparse_std_ns,
			dense_mean_ns, dense_std_ns,
			vector_mean_ns, vector_std_ns,
			speedup, max_delta, host_blob, samples_blob
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID,
		result.CreatedAt.Format(time.RFC3339),
		result.Dim,
		result.Nnz,
		result.Density,
		result.Iterations,
		result.Seed,
		result.Sparse.MeanNs,
		result.Sparse.StdNs,
		result.Dense.MeanNs,
		result.Dense.StdNs,
		result.Vector.MeanNs,
		result.Vector.StdNs,
		result.Speedup,
		result.MaxDelta,
		hostBlob,
		samplesBlob,
	)
	if err != nil {
		return fmt.Errorf("failed to save benchmark run %s: %w", result.ID, err)
	}

	return nil
}

// Get retrieves a benchmark run by ID, including its samples
func (r *Repository) Get(id string) (*Result, error) {
	row := r.db.QueryRow(`
		SELECT id, created_at, dim, nnz, density, iterations, seed,
		       sparse_mean_ns, sparse_std_ns,
		       dense_mean_ns, dense_std_ns,
		       vector_mean_ns, vector_std_ns,
		       speedup, max_delta, host_blob, samples_blob
		FROM benchmark_runs WHERE id = ?`, id)

	result, err := scanResult(row, true)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("benchmark run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get benchmark run %s: %w", id, err)
	}
	return result, nil
}

// List returns the most recent runs, newest first, without sample arrays
func (r *Repository) List(limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, created_at, dim, nnz, density, iterations, seed,
		       sparse_mean_ns, sparse_std_ns,
		       dense_mean_ns, dense_std_ns,
		       vector_mean_ns, vector_std_ns,
		       speedup, max_delta, host_blob, samples_blob
		FROM benchmark_runs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmark runs: %w", err)
	}
	defer rows.Close()

	results := make([]*Result, 0)
	for rows.Next() {
		result, err := scanResult(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benchmark run: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating benchmark runs: %w", err)
	}

	return results, nil
}

// Prune deletes runs created before the cutoff and returns the count removed
func (r *Repository) Prune(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM benchmark_runs WHERE created_at < ?`,
		olderThan.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("failed to prune benchmark runs: %w", err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned runs: %w", err)
	}
	return count, nil
}

// scanner abstracts sql.Row and sql.Rows for scanResult
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row scanner, withSamples bool) (*Result, error) {
	var result Result
	var createdAt string
	var hostBlob, samplesBlob []byte

	err := row.Scan(
		&result.ID,
		&createdAt,
		&result.Dim,
		&result.Nnz,
		&result.Density,
		&result.Iterations,
		&result.Seed,
		&result.Sparse.MeanNs,
		&result.Sparse.StdNs,
		&result.Dense.MeanNs,
		&result.Dense.StdNs,
		&result.Vector.MeanNs,
		&result.Vector.StdNs,
		&result.Speedup,
		&result.MaxDelta,
		&hostBlob,
		&samplesBlob,
	)
	if err != nil {
		return nil, err
	}

	result.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if err := msgpack.Unmarshal(hostBlob, &result.Host); err != nil {
		return nil, fmt.Errorf("failed to unmarshal host info: %w", err)
	}

	if withSamples {
		var samples sampleBlob
		if err := msgpack.Unmarshal(samplesBlob, &samples); err != nil {
			return nil, fmt.Errorf("failed to unmarshal samples: %w", err)
		}
		result.Sparse.Samples = samples.Sparse
		result.Dense.Samples = samples.Dense
		result.Vector.Samples = samples.Vector
	}

	return &result, nil
}
