package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dag-explorer/models"
	"dag-explorer/render"
)

func tableSnapshot() *models.DagSnapshot {
	return &models.DagSnapshot{
		Nodes: []*models.BlockNode{
			{Hash: "0xaaaaaaaaaaaaaaaaaaaaaaaa", Height: 2, BlueScore: 9, Timestamp: 1700000002000, IsBlue: true},
			{Hash: "0xbb", Height: 5, BlueScore: 3, Timestamp: 1700000005000, IsBlue: true, IsTip: true},
			{Hash: "0xcc", Height: 3, BlueScore: 7, Timestamp: 1700000003000},
		},
	}
}

func heights(rows []render.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Height
	}
	return out
}

func TestBuildTableDefaultSort(t *testing.T) {
	rows := render.BuildTable(tableSnapshot(), models.Selection{}, "", "")
	// height descending by default, newest first
	assert.Equal(t, []int64{5, 3, 2}, heights(rows))
}

func TestBuildTableSortKeys(t *testing.T) {
	rows := render.BuildTable(tableSnapshot(), models.Selection{}, render.SortByHeight, "asc")
	assert.Equal(t, []int64{2, 3, 5}, heights(rows))

	rows = render.BuildTable(tableSnapshot(), models.Selection{}, render.SortByBlueScore, "desc")
	assert.Equal(t, []int64{2, 3, 5}, heights(rows)) // blue scores 9, 7, 3

	rows = render.BuildTable(tableSnapshot(), models.Selection{}, render.SortByTime, "asc")
	assert.Equal(t, []int64{2, 3, 5}, heights(rows))
}

func TestRowFormatting(t *testing.T) {
	rows := render.BuildTable(tableSnapshot(), models.Selection{FocusedHash: "0xCC"}, render.SortByHeight, "asc")
	require.Len(t, rows, 3)

	// long hashes are truncated keeping both ends, short ones untouched
	assert.Equal(t, "0xaaaaaaaa...aaaa", rows[0].ShortHash)
	assert.Equal(t, "0xcc", rows[1].ShortHash)

	assert.Equal(t, "2023-11-14 22:13:23", rows[1].Timestamp)

	// focus match is case-insensitive and marks exactly one row
	assert.False(t, rows[0].Focused)
	assert.True(t, rows[1].Focused)
	assert.False(t, rows[2].Focused)

	assert.True(t, rows[2].IsTip)
}

func TestZeroTimestampRendersPlaceholder(t *testing.T) {
	snap := &models.DagSnapshot{Nodes: []*models.BlockNode{{Hash: "a"}}}
	rows := render.BuildTable(snap, models.Selection{}, "", "")
	require.Len(t, rows, 1)
	assert.Equal(t, "-", rows[0].Timestamp)
}

func TestNilSnapshotYieldsNoRows(t *testing.T) {
	assert.Nil(t, render.BuildTable(nil, models.Selection{}, "", ""))
}
