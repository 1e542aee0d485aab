package render

import (
	"sort"
	"strings"
	"time"

	"dag-explorer/models"
)

// Row is one table entry of the non-spatial view. Clicking a row routes to
// the same focus resolver as a graph click.
type Row struct {
	Hash             string `json:"hash"`
	ShortHash        string `json:"short_hash"`
	Height           int64  `json:"height"`
	BlueScore        int64  `json:"blue_score"`
	IsBlue           bool   `json:"is_blue"`
	IsTip            bool   `json:"is_tip"`
	Timestamp        string `json:"timestamp"`
	TransactionCount int    `json:"transaction_count"`
	SizeBytes        int64  `json:"size_bytes"`
	Proposer         string `json:"proposer"`
	Focused          bool   `json:"focused"`
}

// Sort keys accepted by BuildTable. Unknown keys fall back to height.
const (
	SortByHeight    = "height"
	SortByBlueScore = "blueScore"
	SortByTime      = "time"
)

// BuildTable renders the snapshot's node set as sorted rows. Default order
// is height descending, newest first.
func BuildTable(snap *models.DagSnapshot, sel models.Selection, sortKey, order string) []Row {
	if snap == nil {
		return nil
	}

	rows := make([]Row, 0, len(snap.Nodes))
	for _, node := range snap.Nodes {
		rows = append(rows, Row{
			Hash:             node.Hash,
			ShortHash:        truncateHash(node.Hash),
			Height:           node.Height,
			BlueScore:        node.BlueScore,
			IsBlue:           node.IsBlue,
			IsTip:            node.IsTip,
			Timestamp:        formatTimestamp(node.Timestamp),
			TransactionCount: node.TransactionCount,
			SizeBytes:        node.SizeBytes,
			Proposer:         node.Proposer,
			Focused:          strings.EqualFold(node.Hash, sel.FocusedHash),
		})
	}

	asc := order == "asc"
	less := func(a, b Row) bool { return a.Height < b.Height }
	switch sortKey {
	case SortByBlueScore:
		less = func(a, b Row) bool { return a.BlueScore < b.BlueScore }
	case SortByTime:
		less = func(a, b Row) bool { return a.Timestamp < b.Timestamp }
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return less(rows[i], rows[j])
		}
		return less(rows[j], rows[i])
	})
	return rows
}

// truncateHash shortens a hash for display, keeping both ends
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:10] + "..." + hash[len(hash)-4:]
}

// formatTimestamp renders epoch millis as a sortable UTC string
func formatTimestamp(millis int64) string {
	if millis == 0 {
		return "-"
	}
	return time.UnixMilli(millis).UTC().Format("2006-01-02 15:04:05")
}
