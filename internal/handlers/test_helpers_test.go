package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"imposter/internal/catalog"
	"imposter/internal/config"
	"imposter/internal/metrics"
	"imposter/internal/rooms"
	"imposter/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const foodDomain = "Food / الطعام"

type testEnv struct {
	router   *chi.Mux
	store    *store.MemoryStore
	registry *prometheus.Registry
}

// newTestEnv wires a router over a memory store with rate limiting and
// request logging off
func newTestEnv(t *testing.T, mutate ...func(*config.ServerConfig)) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	st := store.NewMemoryStore()
	return newTestEnvWithStore(t, cfg, st, st)
}

func newTestEnvWithStore(t *testing.T, cfg *config.ServerConfig, st store.Store, mem *store.MemoryStore) *testEnv {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc := rooms.NewService(st, catalog.Default(), cfg.Game, rooms.WithMetrics(metrics.New(reg)))
	h := New(svc, st, cfg, zerolog.Nop())
	router := SetupRouter(h, cfg, &RouterOptions{
		DisableRateLimiting:  true,
		DisableRequestLogger: true,
		Gatherer:             reg,
	})
	return &testEnv{router: router, store: mem, registry: reg}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) action(t *testing.T, code, player string, a map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body := map[string]any{"player": player}
	for k, v := range a {
		body[k] = v
	}
	return e.do(t, http.MethodPost, "/rooms/"+code+"/actions", body)
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) rooms.View {
	t.Helper()
	var v rooms.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

// createRoom opens a room hosted by host and joins the others
func (e *testEnv) createRoom(t *testing.T, host string, others ...string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/rooms", map[string]string{"name": host})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	code := decodeView(t, w).RoomCode

	for _, name := range others {
		w := e.do(t, http.MethodPost, "/rooms/"+code+"/join", map[string]string{"name": name})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	return code
}

// imposterOf reads the imposter straight from the store
func (e *testEnv) imposterOf(t *testing.T, code string) string {
	t.Helper()
	rec, err := e.store.Load(context.Background(), code)
	require.NoError(t, err)
	require.NotNil(t, rec.State.ImposterName)
	return *rec.State.ImposterName
}

// failingStore fails every load
type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Load(context.Context, string) (store.Record, error) {
	return store.Record{}, f.err
}
