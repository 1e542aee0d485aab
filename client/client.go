package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"dag-explorer/models"
)

// LedgerClient is the query surface of the local node consumed by the
// explorer. Failure of the snapshot call is expected and handled by the
// cache's fallback path, not treated as fatal.
type LedgerClient interface {
	FetchDAGSnapshot(ctx context.Context, limit int) (*models.DagSnapshot, error)
	FetchBlockDetail(ctx context.Context, hash string) (*models.BlockDetail, error)
	FetchStatus(ctx context.Context) (*models.NodeStatus, error)
}

// NodeClient implements LedgerClient against the node's local HTTP API
type NodeClient struct {
	rest *resty.Client
}

// NewNodeClient creates a NodeClient for the given node endpoint
func NewNodeClient(baseURL string, timeout time.Duration) *NodeClient {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &NodeClient{rest: rest}
}

// FetchDAGSnapshot queries the primary DAG endpoint for up to limit blocks
func (c *NodeClient) FetchDAGSnapshot(ctx context.Context, limit int) (*models.DagSnapshot, error) {
	var snap models.DagSnapshot
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&snap).
		Get("/api/v1/dag")
	if err != nil {
		return nil, NewFetchError(KindPrimaryUnavailable, "fetch dag snapshot", err)
	}
	if resp.IsError() {
		return nil, NewFetchError(KindPrimaryUnavailable, "fetch dag snapshot",
			fmt.Errorf("node returned %s", resp.Status()))
	}
	return &snap, nil
}

// FetchBlockDetail queries the extended record for one block hash
func (c *NodeClient) FetchBlockDetail(ctx context.Context, hash string) (*models.BlockDetail, error) {
	var detail models.BlockDetail
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&detail).
		Get("/api/v1/blocks/" + hash)
	if err != nil {
		return nil, NewFetchError(KindDetailUnavailable, "fetch block detail", err)
	}
	if resp.IsError() {
		return nil, NewFetchError(KindDetailUnavailable, "fetch block detail",
			fmt.Errorf("node returned %s", resp.Status()))
	}
	return &detail, nil
}

// FetchStatus queries the coarse node status used by the fallback path. It
// goes through a separate endpoint so it can succeed while the DAG query
// is unavailable.
func (c *NodeClient) FetchStatus(ctx context.Context) (*models.NodeStatus, error) {
	var status models.NodeStatus
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/api/v1/status")
	if err != nil {
		return nil, NewFetchError(KindFallbackUnavailable, "fetch status", err)
	}
	if resp.IsError() {
		return nil, NewFetchError(KindFallbackUnavailable, "fetch status",
			fmt.Errorf("node returned %s", resp.Status()))
	}
	return &status, nil
}
