package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dag-explorer/cache"
	"dag-explorer/focus"
	"dag-explorer/handlers"
	"dag-explorer/layout"
	"dag-explorer/models"
	"dag-explorer/render"
	"dag-explorer/repository"
	"dag-explorer/routers"
)

type mockLedger struct {
	mu         sync.Mutex
	snapshotFn func(ctx context.Context, limit int) (*models.DagSnapshot, error)
	statusFn   func(ctx context.Context) (*models.NodeStatus, error)
}

func (m *mockLedger) FetchDAGSnapshot(ctx context.Context, limit int) (*models.DagSnapshot, error) {
	m.mu.Lock()
	fn := m.snapshotFn
	m.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no snapshot fn")
	}
	return fn(ctx, limit)
}

func (m *mockLedger) FetchBlockDetail(ctx context.Context, hash string) (*models.BlockDetail, error) {
	return &models.BlockDetail{
		Hash:         hash,
		Transactions: []models.Transaction{{Hash: "tx1", From: "x", To: "y", Value: "1"}},
	}, nil
}

func (m *mockLedger) FetchStatus(ctx context.Context) (*models.NodeStatus, error) {
	m.mu.Lock()
	fn := m.statusFn
	m.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no status fn")
	}
	return fn(ctx)
}

type mockRepo struct {
	mu        sync.Mutex
	viewState models.ViewState
	lastFocus string
}

func (m *mockRepo) PutViewState(vs *models.ViewState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewState = *vs
	return nil
}

func (m *mockRepo) GetViewState() (*models.ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.viewState
	return &vs, nil
}

func (m *mockRepo) PutLastFocusedHash(hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFocus = hash
	return nil
}

func (m *mockRepo) GetLastFocusedHash() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFocus, nil
}

func (m *mockRepo) DeleteLastFocusedHash() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFocus = ""
	return nil
}

type testEnv struct {
	router *mux.Router
	ledger *mockLedger
	cache  *cache.Cache
	engine *layout.Engine
	repo   *mockRepo
}

func testServer(t *testing.T) *testEnv {
	t.Helper()

	ledger := &mockLedger{}
	ledger.snapshotFn = func(ctx context.Context, limit int) (*models.DagSnapshot, error) {
		return &models.DagSnapshot{
			Nodes: []*models.BlockNode{
				{Hash: "0xaa", Height: 0, IsBlue: true, BlueScore: 1, Timestamp: 1700000000000},
				{Hash: "0xbb", Height: 1, SelectedParent: "0xaa", IsBlue: true, BlueScore: 2, Timestamp: 1700000001000},
			},
			Edges:      []models.DagEdge{{Source: "0xaa", Target: "0xbb"}},
			Statistics: models.DagStatistics{TotalBlocks: 2, CurrentTips: 1, BlueBlocks: 2},
		}, nil
	}

	dagCache := cache.NewCache(ledger, cache.DefaultConfig())
	engine := layout.NewEngine(layout.DefaultConfig())
	dagCache.OnRefresh(engine.SetSnapshot)

	repo := &mockRepo{}
	var repoInterface repository.ViewStateRepositoryInterface = repo
	resolver := focus.NewResolver(ledger, dagCache, repoInterface)

	handler := handlers.NewHandler(dagCache, resolver, engine, repoInterface)
	router := mux.NewRouter()
	routers.RegisterRoutes(router, handler)

	return &testEnv{router: router, ledger: ledger, cache: dagCache, engine: engine, repo: repo}
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestGetSnapshot(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	rr := doJSON(t, env.router, http.MethodGet, "/dag/snapshot", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		State    models.CacheState   `json:"state"`
		Notice   string              `json:"notice"`
		Snapshot *models.DagSnapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StatePopulated, resp.State)
	assert.Empty(t, resp.Notice)
	require.NotNil(t, resp.Snapshot)
	assert.Len(t, resp.Snapshot.Nodes, 2)
}

func TestManualRefresh(t *testing.T) {
	env := testServer(t)

	rr := doJSON(t, env.router, http.MethodPost, "/dag/refresh", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		State models.CacheState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StatePopulated, resp.State)
}

func TestDegradedBanner(t *testing.T) {
	env := testServer(t)
	env.ledger.mu.Lock()
	env.ledger.snapshotFn = func(ctx context.Context, limit int) (*models.DagSnapshot, error) {
		return nil, errors.New("service unavailable")
	}
	env.ledger.statusFn = func(ctx context.Context) (*models.NodeStatus, error) {
		return &models.NodeStatus{BlockHeight: 8}, nil
	}
	env.ledger.mu.Unlock()

	rr := doJSON(t, env.router, http.MethodPost, "/dag/refresh", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		State    models.CacheState   `json:"state"`
		Notice   string              `json:"notice"`
		Snapshot *models.DagSnapshot `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StateDegraded, resp.State)
	assert.NotEmpty(t, resp.Notice)
	require.NotNil(t, resp.Snapshot)
	assert.Len(t, resp.Snapshot.Nodes, 9) // heights 0..8
}

func TestFirstLoadFailureReturns503(t *testing.T) {
	env := testServer(t)
	env.ledger.mu.Lock()
	env.ledger.snapshotFn = func(ctx context.Context, limit int) (*models.DagSnapshot, error) {
		return nil, errors.New("down")
	}
	env.ledger.statusFn = func(ctx context.Context) (*models.NodeStatus, error) {
		return nil, errors.New("down")
	}
	env.ledger.mu.Unlock()

	rr := doJSON(t, env.router, http.MethodPost, "/dag/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestFocusEndpoint(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	rr := doJSON(t, env.router, http.MethodPost, "/dag/focus", map[string]string{"hash": "0xBB"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Selection models.Selection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "0xbb", resp.Selection.FocusedHash)
	require.NotNil(t, resp.Selection.Detail)
	assert.Len(t, resp.Selection.Detail.Transactions, 1)

	saved, _ := env.repo.GetLastFocusedHash()
	assert.Equal(t, "0xbb", saved)
}

func TestClearFocusEndpoint(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	rr := doJSON(t, env.router, http.MethodPost, "/dag/focus", map[string]string{"hash": "0xbb"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, env.router, http.MethodDelete, "/dag/focus", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Selection models.Selection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Empty(t, resp.Selection.FocusedHash)
	assert.Nil(t, resp.Selection.Detail)

	saved, _ := env.repo.GetLastFocusedHash()
	assert.Empty(t, saved)
}

func TestUnknownFocusIsDeferredNotAnError(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	rr := doJSON(t, env.router, http.MethodGet, "/dag/blocks/0xdoesnotexist", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Resolved  bool             `json:"resolved"`
		Selection models.Selection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Resolved)
	assert.Empty(t, resp.Selection.FocusedHash)
}

func TestTableEndpoint(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	rr := doJSON(t, env.router, http.MethodGet, "/dag/table?sort=height&order=asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Rows []render.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, int64(0), resp.Rows[0].Height)
	assert.Equal(t, int64(1), resp.Rows[1].Height)
	assert.True(t, resp.Rows[1].IsTip)
}

func TestSceneEndpoint(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	rr := doJSON(t, env.router, http.MethodGet, "/dag/scene", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var scene render.Scene
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &scene))
	assert.Len(t, scene.Nodes, 2)
	assert.Len(t, scene.Edges, 1)
	assert.Equal(t, models.StatePopulated, scene.State)
}

func TestGraphClickFocusesNode(t *testing.T) {
	env := testServer(t)
	_, err := env.cache.Refresh(context.Background())
	require.NoError(t, err)

	pos := env.engine.Positions()["0xbb"]
	rr := doJSON(t, env.router, http.MethodPost, "/dag/graph/click",
		map[string]float64{"x": pos.X, "y": pos.Y})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Hit       bool             `json:"hit"`
		Selection models.Selection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Hit)
	assert.Equal(t, "0xbb", resp.Selection.FocusedHash)
}

func TestAutoRefreshToggle(t *testing.T) {
	env := testServer(t)

	rr := doJSON(t, env.router, http.MethodPost, "/dag/autorefresh",
		map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, env.cache.AutoRefreshEnabled())

	vs, _ := env.repo.GetViewState()
	assert.False(t, vs.AutoRefresh)
}

func TestGraphViewClamped(t *testing.T) {
	env := testServer(t)

	rr := doJSON(t, env.router, http.MethodPost, "/dag/graph/view",
		map[string]float64{"scale": 99, "pan_x": 10, "pan_y": 20})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Scale float64 `json:"scale"`
		PanX  float64 `json:"pan_x"`
		PanY  float64 `json:"pan_y"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, layout.DefaultConfig().MaxScale, resp.Scale)
	assert.Equal(t, 10.0, resp.PanX)
	assert.Equal(t, 20.0, resp.PanY)
}

func TestViewModeRoundTrip(t *testing.T) {
	env := testServer(t)

	rr := doJSON(t, env.router, http.MethodPost, "/dag/view",
		map[string]string{"mode": "table"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, env.router, http.MethodGet, "/dag/view", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var vs models.ViewState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &vs))
	assert.Equal(t, "table", vs.ViewMode)

	rr = doJSON(t, env.router, http.MethodPost, "/dag/view",
		map[string]string{"mode": "sideways"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
