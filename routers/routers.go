package routers

import (
	"github.com/gorilla/mux"

	"dag-explorer/handlers"
)

// RegisterRoutes sets up all the HTTP routes for the explorer
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Returns the current cached DAG snapshot with state and notice
	r.HandleFunc("/dag/snapshot", h.GetSnapshot).Methods("GET")

	// Triggers a manual refresh; a no-op while one is already in flight
	r.HandleFunc("/dag/refresh", h.RefreshNow).Methods("POST")

	// Toggles the periodic poll timer
	r.HandleFunc("/dag/autorefresh", h.SetAutoRefresh).Methods("POST")

	// Focuses a block and returns its selection with the detail record
	r.HandleFunc("/dag/blocks/{hash}", h.GetBlock).Methods("GET")

	// Inbound cross-view navigation signal carrying a block hash
	r.HandleFunc("/dag/focus", h.PostFocus).Methods("POST")

	// Deselects the current block and clears the persisted focus
	r.HandleFunc("/dag/focus", h.ClearFocus).Methods("DELETE")

	// Flips transaction list visibility on the current selection
	r.HandleFunc("/dag/focus/transactions", h.ToggleTransactions).Methods("POST")

	// Renders the snapshot as sortable table rows
	r.HandleFunc("/dag/table", h.GetTable).Methods("GET")

	// Advances the layout simulation and returns the draw list
	r.HandleFunc("/dag/scene", h.GetScene).Methods("GET")

	// Hit-tests a pointer coordinate and focuses the node under it
	r.HandleFunc("/dag/graph/click", h.GraphClick).Methods("POST")

	// Applies a zoom/pan request clamped to the configured bounds
	r.HandleFunc("/dag/graph/view", h.SetGraphView).Methods("POST")

	// Persists the graph/table view switch
	r.HandleFunc("/dag/view", h.SetViewMode).Methods("POST")

	// Returns the persisted explorer preferences
	r.HandleFunc("/dag/view", h.GetViewState).Methods("GET")
}
