package focus

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"dag-explorer/cache"
	"dag-explorer/client"
	"dag-explorer/logger"
	"dag-explorer/models"
	"dag-explorer/repository"
)

// Resolver maps externally supplied block hashes onto nodes in the current
// snapshot and owns the selection state shared by the graph and table views.
// A hash that is not in the snapshot yet stays pending and is retried after
// every successful refresh; new focus requests always win over pending or
// in-flight ones.
type Resolver struct {
	client client.LedgerClient
	cache  *cache.Cache
	repo   repository.ViewStateRepositoryInterface

	mux       sync.Mutex
	selection models.Selection
	pending   string
}

// NewResolver creates a resolver and hooks it into the cache's refresh cycle
func NewResolver(c client.LedgerClient, dagCache *cache.Cache, repo repository.ViewStateRepositoryInterface) *Resolver {
	r := &Resolver{
		client: c,
		cache:  dagCache,
		repo:   repo,
	}
	dagCache.OnRefresh(r.onSnapshot)
	return r
}

// RestoreLastFocus reads the persisted "last focused hash" once at startup
// and submits it as a pending focus. Loss of the persisted value is not an
// error condition.
func (r *Resolver) RestoreLastFocus(ctx context.Context) {
	hash, err := r.repo.GetLastFocusedHash()
	if err != nil {
		logger.Logger.Warn("Failed reading persisted focus", zap.Error(err))
		return
	}
	if hash == "" {
		return
	}
	r.ResolveFocus(ctx, hash)
}

// ResolveFocus looks up hash case-insensitively against the current
// snapshot. When found it becomes the focused node and its detail record is
// fetched; when absent the request stays pending without raising an error.
// The focus write-through to the repository is best-effort.
func (r *Resolver) ResolveFocus(ctx context.Context, hash string) models.Selection {
	node := r.lookup(hash)

	r.mux.Lock()
	if node == nil {
		r.pending = hash
		sel := r.selection
		r.mux.Unlock()
		logger.Logger.Debug("Focus hash not in snapshot, deferred",
			zap.String("hash", hash))
		return sel
	}

	r.pending = ""
	r.selection.FocusedHash = node.Hash
	r.selection.Detail = nil
	r.selection.DetailUnavailable = false
	r.mux.Unlock()

	if err := r.repo.PutLastFocusedHash(node.Hash); err != nil {
		logger.Logger.Warn("Failed persisting focus", zap.Error(err))
	}

	r.fetchDetail(ctx, node.Hash)

	r.mux.Lock()
	sel := r.selection
	r.mux.Unlock()
	return sel
}

// fetchDetail retrieves the extended record for hash. A response that
// arrives after the focus has moved on is discarded by hash comparison; a
// failed fetch marks the detail unavailable without touching the selection.
func (r *Resolver) fetchDetail(ctx context.Context, hash string) {
	detail, err := r.client.FetchBlockDetail(ctx, hash)

	r.mux.Lock()
	defer r.mux.Unlock()

	if !strings.EqualFold(hash, r.selection.FocusedHash) {
		logger.Logger.Debug("Dropping stale detail response",
			zap.String("hash", hash),
			zap.String("focused", r.selection.FocusedHash))
		return
	}
	if err != nil {
		logger.Logger.Warn("Block detail fetch failed", zap.Error(err))
		r.selection.Detail = nil
		r.selection.DetailUnavailable = true
		return
	}
	r.selection.Detail = detail
	r.selection.DetailUnavailable = false
}

// lookup finds a node by hash, case-insensitively, in the current snapshot
func (r *Resolver) lookup(hash string) *models.BlockNode {
	snap, _, _ := r.cache.Snapshot()
	if snap == nil {
		return nil
	}
	for _, node := range snap.Nodes {
		if strings.EqualFold(node.Hash, hash) {
			return node
		}
	}
	return nil
}

// onSnapshot retries a pending focus after each successful refresh
func (r *Resolver) onSnapshot(_ *models.DagSnapshot) {
	r.mux.Lock()
	pending := r.pending
	r.mux.Unlock()
	if pending == "" {
		return
	}
	go r.retryPending(context.Background(), pending)
}

// retryPending re-resolves a deferred focus. The commit happens only while
// the retried hash is still the pending one; any focus event that arrived
// in the meantime has already superseded it and wins.
func (r *Resolver) retryPending(ctx context.Context, hash string) {
	node := r.lookup(hash)
	if node == nil {
		return
	}

	r.mux.Lock()
	if r.pending != hash {
		r.mux.Unlock()
		return
	}
	r.pending = ""
	r.selection.FocusedHash = node.Hash
	r.selection.Detail = nil
	r.selection.DetailUnavailable = false
	r.mux.Unlock()

	if err := r.repo.PutLastFocusedHash(node.Hash); err != nil {
		logger.Logger.Warn("Failed persisting focus", zap.Error(err))
	}

	r.fetchDetail(ctx, node.Hash)
}

// ClearFocus drops the current selection and any pending focus, and
// removes the persisted last-focus record best-effort
func (r *Resolver) ClearFocus() models.Selection {
	r.mux.Lock()
	r.pending = ""
	r.selection = models.Selection{}
	sel := r.selection
	r.mux.Unlock()

	if err := r.repo.DeleteLastFocusedHash(); err != nil {
		logger.Logger.Warn("Failed clearing persisted focus", zap.Error(err))
	}
	return sel
}

// ToggleTransactions flips the transaction list visibility. It is pure
// client state with no network effect and only applies when the current
// detail record has transactions to show.
func (r *Resolver) ToggleTransactions() bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.selection.Detail == nil || len(r.selection.Detail.Transactions) == 0 {
		r.selection.ShowTransactions = false
		return false
	}
	r.selection.ShowTransactions = !r.selection.ShowTransactions
	return r.selection.ShowTransactions
}

// Selection returns a copy of the current selection state
func (r *Resolver) Selection() models.Selection {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.selection
}
