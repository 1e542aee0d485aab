package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"dag-explorer/cache"
	"dag-explorer/focus"
	"dag-explorer/layout"
	"dag-explorer/logger"
	"dag-explorer/models"
	"dag-explorer/render"
	"dag-explorer/repository"
)

// sceneSteps is how many simulation iterations each scene request advances.
// Large graphs relax over successive frames instead of converging at once.
const sceneSteps = 5

// Handler contains the HTTP handlers for the explorer API endpoints
type Handler struct {
	Cache    *cache.Cache
	Resolver *focus.Resolver
	Engine   *layout.Engine
	Repo     repository.ViewStateRepositoryInterface
}

// NewHandler creates and returns a new Handler instance
func NewHandler(c *cache.Cache, r *focus.Resolver, e *layout.Engine, repo repository.ViewStateRepositoryInterface) *Handler {
	return &Handler{Cache: c, Resolver: r, Engine: e, Repo: repo}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// GetSnapshot returns the current cached snapshot with its state and
// degraded-mode notice
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, state, notice := h.Cache.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":    state,
		"notice":   notice,
		"snapshot": snap,
	})
}

// RefreshNow triggers a manual refresh. A refresh already in flight makes
// this a no-op; a failed refresh keeps the previous snapshot and reports
// the failure as a banner notice, never as a blocking error.
func (h *Handler) RefreshNow(w http.ResponseWriter, r *http.Request) {
	_, err := h.Cache.Refresh(r.Context())
	snap, state, notice := h.Cache.Snapshot()
	if err != nil {
		logger.Logger.Warn("Manual refresh failed", zap.Error(err))
		if snap == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"state":  state,
				"notice": notice,
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":    state,
		"notice":   notice,
		"snapshot": snap,
	})
}

// SetAutoRefresh toggles the periodic poll timer
func (h *Handler) SetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Logger.Error("Failed to decode autorefresh toggle", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	h.Cache.SetAutoRefresh(body.Enabled)
	h.persistViewState(func(vs *models.ViewState) { vs.AutoRefresh = body.Enabled })

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"auto_refresh": body.Enabled,
	})
}

// GetBlock focuses the block with the given hash and returns the selection
// including the detail record when the fetch succeeds. An unknown hash is
// deferred, not an error.
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	sel := h.Resolver.ResolveFocus(r.Context(), hash)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selection": sel,
		"resolved":  sel.FocusedHash != "" && strings.EqualFold(sel.FocusedHash, hash),
	})
}

// PostFocus consumes an inbound navigation signal carrying a hash
func (h *Handler) PostFocus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Hash == "" {
		logger.Logger.Error("Failed to decode focus request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	sel := h.Resolver.ResolveFocus(r.Context(), body.Hash)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selection": sel,
	})
}

// ClearFocus deselects the current block and forgets the persisted focus
func (h *Handler) ClearFocus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"selection": h.Resolver.ClearFocus(),
	})
}

// ToggleTransactions flips the transaction list visibility
func (h *Handler) ToggleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"show_transactions": h.Resolver.ToggleTransactions(),
	})
}

// GetTable renders the snapshot as sortable rows
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	snap, state, notice := h.Cache.Snapshot()
	sortKey := r.URL.Query().Get("sort")
	order := r.URL.Query().Get("order")
	rows := render.BuildTable(snap, h.Resolver.Selection(), sortKey, order)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":  state,
		"notice": notice,
		"rows":   rows,
	})
}

// GetScene advances the layout simulation a bounded number of iterations
// and returns the current draw list
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	h.Engine.Step(sceneSteps)
	snap, state, notice := h.Cache.Snapshot()
	scale, panX, panY := h.Engine.View()
	scene := render.BuildScene(snap, state, notice, h.Engine.Positions(),
		h.Resolver.Selection(), scale, panX, panY)
	writeJSON(w, http.StatusOK, scene)
}

// GraphClick hit-tests a pointer coordinate against the layout and focuses
// the node under it
func (h *Handler) GraphClick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Logger.Error("Failed to decode click", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	hash, ok := h.Engine.HitTest(body.X, body.Y)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"hit": false,
		})
		return
	}

	sel := h.Resolver.ResolveFocus(r.Context(), hash)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"hit":       true,
		"selection": sel,
	})
}

// SetGraphView applies a zoom/pan request, clamped to the configured bounds
func (h *Handler) SetGraphView(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Scale float64 `json:"scale"`
		PanX  float64 `json:"pan_x"`
		PanY  float64 `json:"pan_y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Logger.Error("Failed to decode view request", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	scale, panX, panY := h.Engine.SetView(body.Scale, body.PanX, body.PanY)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scale": scale,
		"pan_x": panX,
		"pan_y": panY,
	})
}

// SetViewMode persists the graph/table view switch
func (h *Handler) SetViewMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || (body.Mode != "graph" && body.Mode != "table") {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "mode must be graph or table",
		})
		return
	}

	h.persistViewState(func(vs *models.ViewState) { vs.ViewMode = body.Mode })
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"view_mode": body.Mode,
	})
}

// GetViewState returns the persisted explorer preferences
func (h *Handler) GetViewState(w http.ResponseWriter, r *http.Request) {
	vs, err := h.Repo.GetViewState()
	if err != nil {
		logger.Logger.Error("Failed to read view state", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

// persistViewState applies a mutation to the stored preferences,
// best-effort
func (h *Handler) persistViewState(mutate func(*models.ViewState)) {
	vs, err := h.Repo.GetViewState()
	if err != nil {
		logger.Logger.Warn("Failed to read view state", zap.Error(err))
		return
	}
	mutate(vs)
	if err := h.Repo.PutViewState(vs); err != nil {
		logger.Logger.Warn("Failed to persist view state", zap.Error(err))
	}
}
