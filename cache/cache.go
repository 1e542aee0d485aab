package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dag-explorer/client"
	"dag-explorer/logger"
	"dag-explorer/models"
)

// Config holds the cache tunables. The defaults mirror the node console's
// behavior: 100-block snapshots, a 20-block fallback lookback and a 5 second
// poll interval.
type Config struct {
	SnapshotLimit    int
	FallbackLookback int64
	PollInterval     time.Duration
}

// DefaultConfig returns the stock cache configuration
func DefaultConfig() Config {
	return Config{
		SnapshotLimit:    100,
		FallbackLookback: 20,
		PollInterval:     5 * time.Second,
	}
}

// Cache owns the current in-memory DAG snapshot. It refreshes the snapshot
// on a timer and on demand, and falls back to a synthesized linear chain
// when the primary DAG query fails. The snapshot is replaced wholesale on
// every successful refresh; readers never observe a partial update.
type Cache struct {
	client client.LedgerClient
	cfg    Config

	mux       sync.RWMutex
	snapshot  *models.DagSnapshot
	state     models.CacheState
	notice    string
	listeners []func(*models.DagSnapshot)

	inFlight    atomic.Bool
	autoRefresh atomic.Bool
	toggleCh    chan struct{}
}

// NewCache creates a cache over the given ledger client
func NewCache(c client.LedgerClient, cfg Config) *Cache {
	cache := &Cache{
		client:   c,
		cfg:      cfg,
		state:    models.StateUninitialized,
		toggleCh: make(chan struct{}, 1),
	}
	cache.autoRefresh.Store(true)
	return cache
}

// OnRefresh registers a listener invoked after every snapshot swap. The
// callback runs synchronously on the refreshing goroutine.
func (c *Cache) OnRefresh(fn func(*models.DagSnapshot)) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns the current snapshot, cache state and degraded-mode
// notice. The snapshot may be nil before the first successful refresh.
func (c *Cache) Snapshot() (*models.DagSnapshot, models.CacheState, string) {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return c.snapshot, c.state, c.notice
}

// Refresh fetches a new snapshot and swaps it in atomically. The ladder is:
// primary DAG query, then the coarse status query feeding the linear-chain
// reconstruction, then keep the previous snapshot and report the original
// primary error. A refresh already in flight makes this call a no-op that
// returns the current snapshot.
func (c *Cache) Refresh(ctx context.Context) (*models.DagSnapshot, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		snap, _, _ := c.Snapshot()
		return snap, nil
	}
	defer c.inFlight.Store(false)

	c.mux.Lock()
	if c.state == models.StateUninitialized {
		c.state = models.StateLoading
	}
	c.mux.Unlock()

	snap, primaryErr := c.client.FetchDAGSnapshot(ctx, c.cfg.SnapshotLimit)
	if primaryErr == nil {
		normalize(snap)
		state := models.StatePopulated
		if len(snap.Nodes) == 0 {
			state = models.StateEmpty
		}
		c.swap(snap, state, "")
		return snap, nil
	}

	logger.Logger.Warn("Primary DAG query failed, attempting fallback",
		zap.Error(primaryErr))

	status, statusErr := c.client.FetchStatus(ctx)
	if statusErr == nil && status.BlockHeight < 0 {
		statusErr = fmt.Errorf("invalid block height %d", status.BlockHeight)
	}
	if statusErr != nil {
		return c.keepStale(primaryErr, statusErr)
	}

	synthesized := c.synthesizeChain(status.BlockHeight)
	c.swap(synthesized, models.StateDegraded,
		"DAG query unavailable, showing reconstructed chain")
	return synthesized, nil
}

// swap replaces the snapshot atomically and notifies listeners
func (c *Cache) swap(snap *models.DagSnapshot, state models.CacheState, notice string) {
	c.mux.Lock()
	c.snapshot = snap
	c.state = state
	c.notice = notice
	listeners := make([]func(*models.DagSnapshot), len(c.listeners))
	copy(listeners, c.listeners)
	c.mux.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// keepStale handles the case where both queries failed: the previous
// snapshot stays in place and the original primary error propagates.
func (c *Cache) keepStale(primaryErr, statusErr error) (*models.DagSnapshot, error) {
	logger.Logger.Error("Fallback status query failed too",
		zap.Error(statusErr))

	c.mux.Lock()
	defer c.mux.Unlock()
	if c.snapshot != nil && len(c.snapshot.Nodes) > 0 {
		c.notice = "node unavailable, showing last known DAG"
	} else {
		c.state = models.StateUnavailable
		c.notice = "no DAG data available"
	}
	return c.snapshot, client.NewFetchError(client.KindFallbackUnavailable, "refresh", primaryErr)
}

// synthesizeChain builds a degraded-mode linear chain covering the last
// FallbackLookback heights up to tip. Every block is classified blue with
// blueScore equal to its height; only the tip height is marked as tip.
func (c *Cache) synthesizeChain(tipHeight int64) *models.DagSnapshot {
	start := tipHeight - c.cfg.FallbackLookback
	if start < 0 {
		start = 0
	}

	now := nowMillis()
	count := tipHeight - start + 1
	nodes := make([]*models.BlockNode, 0, count)
	edges := make([]models.DagEdge, 0, count-1)
	var scoreSum int64

	for h := start; h <= tipHeight; h++ {
		node := &models.BlockNode{
			Hash:      syntheticHash(h),
			Height:    h,
			Timestamp: now - (tipHeight-h)*1000,
			BlueScore: h,
			IsBlue:    true,
			IsTip:     h == tipHeight,
		}
		if h > start {
			node.SelectedParent = syntheticHash(h - 1)
			edges = append(edges, models.DagEdge{Source: node.SelectedParent, Target: node.Hash})
		}
		nodes = append(nodes, node)
		scoreSum += h
	}

	return &models.DagSnapshot{
		Nodes: nodes,
		Edges: edges,
		Statistics: models.DagStatistics{
			TotalBlocks:      int(count),
			MaxHeight:        tipHeight,
			CurrentTips:      1,
			BlueBlocks:       int(count),
			RedBlocks:        0,
			AverageBlueScore: float64(scoreSum) / float64(count),
		},
	}
}

// normalize de-duplicates nodes by hash (last write wins) and re-derives
// the tip flags from parent linkage, so the tip invariant holds even when
// the upstream snapshot ships inconsistent duplicates. Statistics are left
// untouched; they are displayed as reported, stale or not.
func normalize(snap *models.DagSnapshot) {
	index := make(map[string]int, len(snap.Nodes))
	deduped := snap.Nodes[:0]
	for _, node := range snap.Nodes {
		key := strings.ToLower(node.Hash)
		if i, ok := index[key]; ok {
			deduped[i] = node
			continue
		}
		index[key] = len(deduped)
		deduped = append(deduped, node)
	}
	snap.Nodes = deduped

	hasChild := make(map[string]bool, len(snap.Nodes))
	for _, node := range snap.Nodes {
		if node.SelectedParent != "" {
			hasChild[strings.ToLower(node.SelectedParent)] = true
		}
		for _, p := range node.MergeParents {
			hasChild[strings.ToLower(p)] = true
		}
	}
	for _, node := range snap.Nodes {
		node.IsTip = !hasChild[strings.ToLower(node.Hash)]
	}
}

// SetAutoRefresh toggles the poll timer. Turning it off disposes the
// ticker inside Run so no further periodic refresh can fire.
func (c *Cache) SetAutoRefresh(enabled bool) {
	c.autoRefresh.Store(enabled)
	select {
	case c.toggleCh <- struct{}{}:
	default:
	}
}

// AutoRefreshEnabled reports whether the poll timer is active
func (c *Cache) AutoRefreshEnabled() bool {
	return c.autoRefresh.Load()
}

// Run drives the periodic refresh until ctx is cancelled. The ticker is
// created only while auto-refresh is enabled and fully disposed when it is
// turned off or the loop exits.
func (c *Cache) Run(ctx context.Context) {
	var ticker *time.Ticker
	var tick <-chan time.Time

	startTicker := func() {
		ticker = time.NewTicker(c.cfg.PollInterval)
		tick = ticker.C
	}
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tick = nil
		}
	}

	if c.autoRefresh.Load() {
		startTicker()
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.toggleCh:
			if c.autoRefresh.Load() {
				if ticker == nil {
					startTicker()
				}
			} else {
				stopTicker()
			}
		case <-tick:
			if _, err := c.Refresh(ctx); err != nil {
				logger.Logger.Warn("Periodic refresh failed", zap.Error(err))
			}
		}
	}
}

func syntheticHash(height int64) string {
	return fmt.Sprintf("synthetic-%d", height)
}

// nowMillis returns current time in milliseconds
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
