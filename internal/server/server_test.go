package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/qbench/internal/config"
	"github.com/aristath/qbench/internal/database"
	"github.com/aristath/qbench/internal/events"
	"github.com/aristath/qbench/internal/modules/benchmarks"
	"github.com/aristath/qbench/internal/scheduler"
)

func setupTestServer(t *testing.T) (*Server, *events.Bus) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    "file:" + t.Name() + "?mode=memory&cache=shared",
		Profile: database.ProfileCache,
		Name:    "results",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Conn().Exec(`
		CREATE TABLE benchmark_runs (
			id              TEXT PRIMARY KEY,
			created_at      TEXT NOT NULL,
			dim             INTEGER NOT NULL,
			nnz             INTEGER NOT NULL,
			density         REAL NOT NULL,
			iterations      INTEGER NOT NULL,
			seed            INTEGER NOT NULL,
			sparse_mean_ns  INTEGER NOT NULL,
			sparse_std_ns   INTEGER NOT NULL,
			dense_mean_ns   INTEGER NOT NULL,
			dense_std_ns    INTEGER NOT NULL,
			vector_mean_ns  INTEGER NOT NULL,
			vector_std_ns   INTEGER NOT NULL,
			speedup         REAL NOT NULL,
			max_delta       REAL NOT NULL,
			host_blob       BLOB NOT NULL,
			samples_blob    BLOB NOT NULL
		)`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus()

	srv := New(Config{
		Log:       log,
		Cfg:       &config.Config{Port: 0, SweepDims: []int{10}, SweepDensity: 0.1, SweepIters: 10, SweepSchedule: "@hourly"},
		DB:        db,
		Bus:       bus,
		Runner:    benchmarks.NewRunner(bus, log),
		Repo:      benchmarks.NewRepository(db.Conn()),
		Scheduler: scheduler.New(log),
	})

	return srv, bus
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

func TestSystemInfoEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/system/info", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data, "host")
	assert.Contains(t, data, "sweep")
}

func TestExpectationRouteMounted(t *testing.T) {
	srv, _ := setupTestServer(t)

	body := `{
		"operator": {"dim": 2, "values_re": [1, -1], "values_im": [0, 0], "col_index": [0, 1], "row_ptr": [0, 1, 2]},
		"ket": {"re": [1, 0], "im": [0, 0]}
	}`
	req := httptest.NewRequest("POST", "/api/expectation/ket", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBenchmarkRouteMounted(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/benchmarks", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	srv, _ := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventStream(t *testing.T) {
	srv, bus := setupTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, "connected", hello["type"])

	bus.Emit(events.BenchmarkCompleted, "benchmarks", map[string]interface{}{"id": "run-1"})

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.BenchmarkCompleted), msg["type"])

	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "run-1", data["id"])
}

func TestEventStreamTypeFilter(t *testing.T) {
	srv, bus := setupTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws?types=backup_completed"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	require.Equal(t, "connected", hello["type"])

	// Filtered-out type must not arrive; the matching one must
	bus.Emit(events.BenchmarkCompleted, "benchmarks", nil)
	bus.Emit(events.BackupCompleted, "reliability", map[string]interface{}{"archive": "a.tar.gz"})

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.BackupCompleted), msg["type"])
}
