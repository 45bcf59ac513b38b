package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tourfit/internal/config"
	"github.com/copyleftdev/tourfit/internal/logging"
	"github.com/copyleftdev/tourfit/internal/solver"
	"github.com/copyleftdev/tourfit/internal/storage"
	"github.com/copyleftdev/tourfit/internal/tour"
)

// testConfig creates a test configuration with a short search
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"

	cfg.Database.Type = "memory"

	cfg.Optimization = config.Optimization{
		WorkerCount:          1,
		PopulationMin:        10,
		PopulationMax:        20,
		MaxGenerations:       5,
		CrossoverProbability: 0.75,
		MutationProbability:  0.1,
		EliteCount:           1,
		Seed:                 3,
		Seeding:              "random",
		Mutation:             "reverse",
		Selection:            "elite",
	}
	cfg.Fitness = config.Fitness{
		Metric:      "euclidean",
		FieldWeight: 1,
		Scale:       "linear",
		ScaleFactor: 2.4,
	}
	return cfg
}

// testLogger creates a test logger
func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "debug",
		Format: "text",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

type fixture struct {
	srv    *Server
	router chi.Router
	store  storage.Store
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))

	s := solver.New(cfg.Optimization, cfg.Fitness, solver.WithStore(store))
	srv := NewServer(cfg, testLogger(t), s, store)
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return &fixture{srv: srv, router: r, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(method, path, &buf))
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

func unitSquare() []tour.Point {
	return []tour.Point{tour.NewPoint(0, 0), tour.NewPoint(0, 1), tour.NewPoint(1, 1), tour.NewPoint(1, 0)}
}

func TestRegisterRoutes(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/runs", true},
		{"GET", "/api/v1/runs", true},
		{"GET", "/api/v1/runs/123", true},
		{"DELETE", "/api/v1/runs/123", true},
		{"POST", "/api/v1/evaluate", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false},
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := f.do(t, tt.method, tt.path, nil)
			routed := rr.Code != http.StatusNotFound || rr.Header().Get("Content-Type") == "application/json"
			assert.Equal(t, tt.shouldExist, routed, "status %d", rr.Code)
		})
	}
}

func TestRunLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/runs", StartRequest{Points: unitSquare()})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	started := decode[RunStatus](t, rr)
	require.NotEmpty(t, started.ID)
	assert.Equal(t, 4, started.Points)

	f.srv.Wait()

	rr = f.do(t, http.MethodGet, "/api/v1/runs/"+started.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := decode[RunStatus](t, rr)
	assert.Equal(t, storage.StatusCompleted, status.Status)
	assert.Equal(t, 5, status.Generations)
	assert.Len(t, status.Tour, 4)
	assert.Contains(t, status.Summary, "generation limit of 5 reached")

	rr = f.do(t, http.MethodGet, "/api/v1/runs?limit=10", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[struct {
		Runs []storage.RunRecord `json:"runs"`
	}](t, rr)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, started.ID, list.Runs[0].ID)

	rr = f.do(t, http.MethodDelete, "/api/v1/runs/"+started.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRandomInstance(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/runs", StartRequest{Random: &RandomSpec{Count: 25, Seed: 1}})
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, 25, decode[RunStatus](t, rr).Points)

	rr = f.do(t, http.MethodPost, "/api/v1/runs", StartRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = f.do(t, http.MethodPost, "/api/v1/runs", StartRequest{Random: &RandomSpec{Count: maxRandomPoints + 1}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelRun(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Optimization.MaxGenerations = 0
		cfg.Optimization.MaxDuration = time.Hour
	})

	rr := f.do(t, http.MethodPost, "/api/v1/runs", StartRequest{Random: &RandomSpec{Count: 30, Seed: 2}})
	require.Equal(t, http.StatusAccepted, rr.Code)
	id := decode[RunStatus](t, rr).ID

	require.Eventually(t, func() bool {
		rr := f.do(t, http.MethodGet, "/api/v1/runs/"+id, nil)
		return decode[RunStatus](t, rr).Generations > 0
	}, 5*time.Second, 10*time.Millisecond)

	rr = f.do(t, http.MethodDelete, "/api/v1/runs/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	f.srv.Wait()

	status := decode[RunStatus](t, f.do(t, http.MethodGet, "/api/v1/runs/"+id, nil))
	assert.Equal(t, storage.StatusCancelled, status.Status)
	assert.NotEmpty(t, status.Tour)

	stored, ok, err := f.store.GetRun(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storage.StatusCancelled, stored.Status)
}

func TestUnknownRun(t *testing.T) {
	f := newFixture(t, nil)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/v1/runs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/v1/runs/missing", nil).Code)
}

func TestStatusFallsBackToStore(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.SaveRun(context.Background(), storage.RunRecord{
		ID:        "older",
		Status:    storage.StatusCompleted,
		CreatedAt: time.Now().Add(-time.Hour),
		Tour:      []int{1, 0},
	}))

	rr := f.do(t, http.MethodGet, "/api/v1/runs/older", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []int{1, 0}, decode[RunStatus](t, rr).Tour)
}

func TestEvaluateEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rr := f.do(t, http.MethodPost, "/api/v1/evaluate", EvaluateRequest{Points: unitSquare(), Tour: []int{0, 1, 2, 3}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[tour.Result](t, rr)
	assert.InDelta(t, 4.0, res.Distance, 1e-12)
	assert.InDelta(t, 1-4/9.6, res.Fitness, 1e-12)
	assert.Equal(t, 4, res.UniqueCount)

	rr = f.do(t, http.MethodPost, "/api/v1/evaluate", EvaluateRequest{Points: unitSquare(), Tour: []int{0, 0, 2, 3}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[tour.Result](t, rr).UniqueCount)

	rr = f.do(t, http.MethodPost, "/api/v1/evaluate", EvaluateRequest{Points: unitSquare(), Tour: []int{0, 1}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) rpc(t *testing.T, method string, params interface{}) rpcResponse {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/rpc", map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      7,
		"method":  method,
		"params":  params,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	return decode[rpcResponse](t, rr)
}

func TestJSONRPC(t *testing.T) {
	f := newFixture(t, nil)

	resp := f.rpc(t, "run.start", []interface{}{map[string]interface{}{"points": unitSquare()}})
	require.Nil(t, resp.Error)
	assert.EqualValues(t, 7, resp.ID)
	var started RunStatus
	require.NoError(t, json.Unmarshal(resp.Result, &started))
	f.srv.Wait()

	resp = f.rpc(t, "run.status", map[string]string{"run_id": started.ID})
	require.Nil(t, resp.Error)
	var status RunStatus
	require.NoError(t, json.Unmarshal(resp.Result, &status))
	assert.Equal(t, storage.StatusCompleted, status.Status)

	resp = f.rpc(t, "run.list", nil)
	require.Nil(t, resp.Error)

	resp = f.rpc(t, "tour.evaluate", map[string]interface{}{"points": unitSquare(), "tour": []int{3, 2, 1, 0}})
	require.Nil(t, resp.Error)
	var res tour.Result
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	assert.InDelta(t, 4.0, res.Distance, 1e-12)

	resp = f.rpc(t, "run.cancel", map[string]string{"run_id": started.ID})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInvalidParams, resp.Error.Code)

	resp = f.rpc(t, "run.status", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInvalidParams, resp.Error.Code)

	resp = f.rpc(t, "run.status", map[string]string{"run_id": "missing"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcServerError, resp.Error.Code)

	resp = f.rpc(t, "optimization.start", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcMethodNotFound, resp.Error.Code)
}

func TestJSONRPCMalformed(t *testing.T) {
	f := newFixture(t, nil)

	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewBufferString("not json")))
	resp := decode[rpcResponse](t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcParseError, resp.Error.Code)

	rr = f.do(t, http.MethodPost, "/rpc", map[string]interface{}{"jsonrpc": "1.0", "method": "run.list", "id": 1})
	resp = decode[rpcResponse](t, rr)
	require.NotNil(t, resp.Error)
	assert.Equal(t, rpcInvalidRequest, resp.Error.Code)
}

func TestRespondWithError(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
	}{
		{"string id", rpcInvalidParams, "invalid input", "123", "123"},
		{"nil id", rpcServerError, "server error", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.srv.respondWithError(rr, tt.code, tt.message, tt.id)

			assert.Equal(t, http.StatusOK, rr.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

			errObj, ok := response["error"].(map[string]interface{})
			require.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"])
			assert.Equal(t, tt.message, errObj["message"])
			assert.Equal(t, tt.expectedID, response["id"])
		})
	}
}

func TestCloseCancelsRuns(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Optimization.MaxGenerations = 0
		cfg.Optimization.MaxDuration = time.Hour
	})

	rr := f.do(t, http.MethodPost, "/api/v1/runs", StartRequest{Random: &RandomSpec{Count: 20, Seed: 4}})
	require.Equal(t, http.StatusAccepted, rr.Code)
	id := decode[RunStatus](t, rr).ID

	done := make(chan struct{})
	go func() {
		_ = f.srv.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	status, err := f.srv.runStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCancelled, status.Status)
}
