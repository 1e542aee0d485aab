package models

// BlockNode is one observed block in the DAG snapshot.
type BlockNode struct {
	Hash             string   `json:"hash"`              // unique id
	Height           int64    `json:"height"`            // chain height, >= 0
	Timestamp        int64    `json:"timestamp"`         // unix timestamp in ms
	SelectedParent   string   `json:"selected_parent"`   // canonical parent hash, empty for genesis
	MergeParents     []string `json:"merge_parents"`     // secondary DAG parents
	BlueScore        int64    `json:"blue_score"`        // consensus ordering key
	IsBlue           bool     `json:"is_blue"`           // consensus classification, computed upstream
	IsTip            bool     `json:"is_tip"`            // no known child in this snapshot
	TransactionCount int      `json:"transaction_count"` // summary tx count
	SizeBytes        int64    `json:"size_bytes"`        // serialized block size
	Proposer         string   `json:"proposer"`          // block proposer identity
}

// DagEdge is a directed parent-to-child link. IsSelected marks edges on the
// currently highlighted path; it is a rendering flag, not a consensus property.
type DagEdge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	IsSelected bool   `json:"is_selected"`
}

// DagStatistics is the pre-aggregated summary shipped with a snapshot. The
// node reports it alongside the nodes; we display it as-is and tolerate it
// being slightly stale relative to the node list.
type DagStatistics struct {
	TotalBlocks      int     `json:"total_blocks"`
	MaxHeight        int64   `json:"max_height"`
	CurrentTips      int     `json:"current_tips"`
	BlueBlocks       int     `json:"blue_blocks"`
	RedBlocks        int     `json:"red_blocks"`
	AverageBlueScore float64 `json:"average_blue_score"`
}

// DagSnapshot is the full graph state returned by one query. It is replaced
// wholesale on every refresh, never patched incrementally.
type DagSnapshot struct {
	Nodes      []*BlockNode  `json:"nodes"`
	Edges      []DagEdge     `json:"edges"`
	Statistics DagStatistics `json:"statistics"`
}

// NodeStatus is the coarse status record used by the fallback path.
type NodeStatus struct {
	BlockHeight int64 `json:"block_height"`
}
