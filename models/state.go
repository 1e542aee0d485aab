package models

// CacheState is the lifecycle state of the DAG state cache.
type CacheState string

const (
	// StateUninitialized means no refresh has been attempted yet.
	StateUninitialized CacheState = "uninitialized"
	// StateLoading means the first refresh is in flight.
	StateLoading CacheState = "loading"
	// StatePopulated means the cache holds a snapshot from the primary query.
	StatePopulated CacheState = "populated"
	// StateDegraded means the cache holds a synthesized linear chain built
	// from the coarse status query because the primary query failed.
	StateDegraded CacheState = "degraded"
	// StateEmpty means the primary query succeeded but returned no blocks.
	StateEmpty CacheState = "empty"
	// StateUnavailable means the first load failed entirely. It never
	// regresses back to uninitialized.
	StateUnavailable CacheState = "unavailable"
)

// ViewState is the persisted explorer state restored between sessions.
// Loss of this record is not an error, it only costs convenience.
type ViewState struct {
	LastFocusedHash string `json:"last_focused_hash"`
	ViewMode        string `json:"view_mode"` // "graph" or "table"
	AutoRefresh     bool   `json:"auto_refresh"`
	UpdatedAt       int64  `json:"updated_at"` // unix timestamp in ms
}
