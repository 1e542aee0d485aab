package repository

import (
	"encoding/json"

	"dag-explorer/db"
	"dag-explorer/models"
)

// It abstracts the storage layer from the explorer state logic
type ViewStateRepositoryInterface interface {
	PutViewState(vs *models.ViewState) error
	GetViewState() (*models.ViewState, error)
	PutLastFocusedHash(hash string) error
	GetLastFocusedHash() (string, error)
	DeleteLastFocusedHash() error
}

var (
	viewStateKey = []byte("viewstate")
	lastFocusKey = []byte("focus:last")
)

// ViewStateRepository implements the ViewStateRepositoryInterface using LevelDB as the storage backend
type ViewStateRepository struct {
	db *db.LevelDB
}

// NewViewStateRepository creates and returns a new ViewStateRepository instance
func NewViewStateRepository(db *db.LevelDB) *ViewStateRepository {
	return &ViewStateRepository{db: db}
}

// PutViewState stores the persisted explorer preferences
func (r *ViewStateRepository) PutViewState(vs *models.ViewState) error {
	data, err := json.Marshal(vs)
	if err != nil {
		return err
	}
	return r.db.Put(viewStateKey, data)
}

// GetViewState retrieves the persisted explorer preferences. A missing record
// yields a zero-value state, not an error.
func (r *ViewStateRepository) GetViewState() (*models.ViewState, error) {
	ok, err := r.db.Has(viewStateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &models.ViewState{ViewMode: "graph", AutoRefresh: true}, nil
	}
	data, err := r.db.Get(viewStateKey)
	if err != nil {
		return nil, err
	}
	var vs models.ViewState
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, err
	}
	return &vs, nil
}

// PutLastFocusedHash stores the hash the user last focused explicitly
func (r *ViewStateRepository) PutLastFocusedHash(hash string) error {
	return r.db.Put(lastFocusKey, []byte(hash))
}

// GetLastFocusedHash retrieves the last focused hash, empty when none was saved
func (r *ViewStateRepository) GetLastFocusedHash() (string, error) {
	ok, err := r.db.Has(lastFocusKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	data, err := r.db.Get(lastFocusKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeleteLastFocusedHash removes the persisted focus record
func (r *ViewStateRepository) DeleteLastFocusedHash() error {
	return r.db.Delete(lastFocusKey)
}
